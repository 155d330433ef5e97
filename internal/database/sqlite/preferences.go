package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kozaktomas/photo-story/internal/apperr"
)

// GetPreference returns the value stored under key.
func (s *Store) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Storage("get preference", err)
	}
	return value, true, nil
}

// SetPreference upserts the value under key.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return apperr.Storage("set preference", err)
	}
	return nil
}

// DeletePreference removes key. A missing key is not an error.
func (s *Store) DeletePreference(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return apperr.Storage("delete preference", err)
	}
	return nil
}

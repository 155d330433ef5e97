// Package sqlite is the default local PhotoStore and PreferenceStore, backed
// by a single SQLite file through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-story/internal/config"
	"github.com/kozaktomas/photo-story/internal/database"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed photo and preference store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ database.PhotoStore      = (*Store)(nil)
	_ database.PreferenceStore = (*Store)(nil)
)

// Open opens (creating if needed) the database file at cfg.Path.
// ":memory:" opens a private in-memory database.
func Open(cfg *config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errors.New("database path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection serializes all writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// DB returns the underlying sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) ([]int, error) {
	m := database.NewMigrator(s.db, dialect{}, migrations, s.logger)
	return m.Up(ctx)
}

// MigrationsApplied returns the applied schema versions.
func (s *Store) MigrationsApplied(ctx context.Context) ([]int, error) {
	m := database.NewMigrator(s.db, dialect{}, migrations, s.logger)
	return m.Applied(ctx)
}

type dialect struct{}

func (dialect) Placeholder(int) string { return "?" }

func (dialect) TableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

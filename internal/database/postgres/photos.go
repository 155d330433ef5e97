package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
)

// Store provides PostgreSQL-backed photo storage with an optional in-memory HNSW index.
type Store struct {
	pool          *Pool
	hnswIndex     *database.HNSWIndex
	hnswEnabled   bool
	hnswIndexPath string
	hnswMu        sync.RWMutex
}

var (
	_ database.PhotoStore      = (*Store)(nil)
	_ database.PreferenceStore = (*Store)(nil)
	_ database.VectorSearcher  = (*Store)(nil)
)

// NewStore creates a store over an already migrated pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Close saves the HNSW index (when persistent) and closes the pool.
func (s *Store) Close() error {
	if err := s.SaveHNSWIndex(context.Background()); err != nil {
		s.pool.logger.Warn("saving HNSW index failed", "error", err)
	}
	return s.pool.Close()
}

const selectPhotos = `SELECT ` + database.PhotoColumns + `, embedding FROM photos`

const insertPhoto = `INSERT INTO photos (file_path, date_taken, region, locality, sub_locality, street,
	latitude, longitude, detected_objects, hashtags, caption, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (database.PhotoRecord, error) {
	var cols database.RowColumns
	var raw []byte
	if err := row.Scan(append(cols.Targets(), &raw)...); err != nil {
		return database.PhotoRecord{}, err
	}
	p, err := cols.Record()
	if err != nil {
		return p, err
	}
	if raw != nil {
		var vec pgvector.Vector
		if err := vec.Scan(raw); err != nil {
			return p, fmt.Errorf("decoding embedding: %w", err)
		}
		p.Embedding = vec.Slice()
	}
	return p, nil
}

func (s *Store) queryPhotos(ctx context.Context, query string, args ...any) ([]database.PhotoRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("query photos", err)
	}
	defer rows.Close()

	photos := []database.PhotoRecord{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, apperr.Storage("scan photo", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate photos", err)
	}
	return photos, nil
}

func insertArgs(p *database.PhotoRecord) ([]any, error) {
	args, err := database.InsertArgs(p)
	if err != nil {
		return nil, err
	}
	var vec any
	if p.Embedding != nil {
		vec = pgvector.NewVector(p.Embedding)
	}
	return append(args, vec), nil
}

// Insert stores one photo with a single statement.
func (s *Store) Insert(ctx context.Context, photo *database.PhotoRecord) (int64, error) {
	if photo == nil || photo.FilePath == "" {
		return 0, apperr.Invalid("file path is required")
	}
	args, err := insertArgs(photo)
	if err != nil {
		return 0, apperr.Storage("encode photo", err)
	}

	var id int64
	if err := s.pool.QueryRow(ctx, insertPhoto, args...).Scan(&id); err != nil {
		return 0, apperr.Storage("insert photo", err)
	}
	photo.ID = id
	s.indexAdd(id, photo.Embedding)
	return id, nil
}

// InsertBatch stores all photos in one transaction.
func (s *Store) InsertBatch(ctx context.Context, photos []*database.PhotoRecord) ([]int64, error) {
	for _, p := range photos {
		if p == nil || p.FilePath == "" {
			return nil, apperr.Invalid("file path is required")
		}
	}

	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	ids := make([]int64, 0, len(photos))
	for _, p := range photos {
		args, err := insertArgs(p)
		if err != nil {
			return nil, apperr.Storage("encode photo", err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx, insertPhoto, args...).Scan(&id); err != nil {
			return nil, apperr.Storage("insert photo", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("commit batch", err)
	}
	for i, p := range photos {
		p.ID = ids[i]
		s.indexAdd(ids[i], p.Embedding)
	}
	return ids, nil
}

// Get returns the photo with id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id int64) (*database.PhotoRecord, error) {
	p, err := scanPhoto(s.pool.QueryRow(ctx, selectPhotos+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get photo", err)
	}
	return &p, nil
}

// ExistsByPath reports whether any photo has filePath.
func (s *Store) ExistsByPath(ctx context.Context, filePath string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM photos WHERE file_path = $1)", filePath).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("check photo path", err)
	}
	return exists, nil
}

// FindByDate returns photos whose date_taken starts with date.
func (s *Store) FindByDate(ctx context.Context, date string) ([]database.PhotoRecord, error) {
	return s.queryPhotos(ctx, selectPhotos+` WHERE left(date_taken, length($1)) = $1 ORDER BY id`, date)
}

// FindByHashtag returns photos whose hashtags contain tag.
func (s *Store) FindByHashtag(ctx context.Context, tag string) ([]database.PhotoRecord, error) {
	return s.queryPhotos(ctx, selectPhotos+` WHERE strpos(hashtags, $1) > 0 ORDER BY id`, tag)
}

// FindAll returns every photo ordered by id.
func (s *Store) FindAll(ctx context.Context) ([]database.PhotoRecord, error) {
	return s.queryPhotos(ctx, selectPhotos+` ORDER BY id`)
}

// DistinctDates returns the distinct capture days, ascending.
func (s *Store) DistinctDates(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT left(date_taken, 10) AS day FROM photos
		WHERE date_taken IS NOT NULL AND length(date_taken) >= 10 ORDER BY day`)
	if err != nil {
		return nil, apperr.Storage("query dates", err)
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, apperr.Storage("scan date", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("iterate dates", err)
	}
	return dates, nil
}

// Count returns the number of stored photos.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM photos").Scan(&n); err != nil {
		return 0, apperr.Storage("count photos", err)
	}
	return n, nil
}

// DeleteAll removes every photo and resets the HNSW index.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM photos"); err != nil {
		return apperr.Storage("delete photos", err)
	}
	s.hnswMu.RLock()
	if s.hnswIndex != nil {
		s.hnswIndex.Reset()
	}
	s.hnswMu.RUnlock()
	return nil
}

// DeleteDuplicates keeps the lowest id per file path.
func (s *Store) DeleteDuplicates(ctx context.Context) (int64, error) {
	rows, err := s.pool.Query(ctx, `DELETE FROM photos
		WHERE id NOT IN (SELECT MIN(id) FROM photos GROUP BY file_path) RETURNING id`)
	if err != nil {
		return 0, apperr.Storage("delete duplicate photos", err)
	}
	defer rows.Close()

	var removed int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return removed, apperr.Storage("scan deleted id", err)
		}
		s.indexDelete(id)
		removed++
	}
	if err := rows.Err(); err != nil {
		return removed, apperr.Storage("iterate deleted ids", err)
	}
	if removed > 0 {
		s.pool.logger.Info("removed duplicate photos", "count", removed)
	}
	return removed, nil
}

// GetPreference returns the value stored under key.
func (s *Store) GetPreference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, "SELECT value FROM preferences WHERE key = $1", key).Scan(&value)
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
	_, err := s.pool.Exec(ctx, `INSERT INTO preferences (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now())
	if err != nil {
		return apperr.Storage("set preference", err)
	}
	return nil
}

// DeletePreference removes key. A missing key is not an error.
func (s *Store) DeletePreference(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM preferences WHERE key = $1", key); err != nil {
		return apperr.Storage("delete preference", err)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
)

const selectPhotos = `SELECT ` + database.PhotoColumns + `, embedding FROM photos`

const insertPhoto = `INSERT INTO photos (file_path, date_taken, region, locality, sub_locality, street,
	latitude, longitude, detected_objects, hashtags, caption, embedding)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// encodeEmbedding packs the vector as little-endian float32; nil stays NULL.
func encodeEmbedding(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if b == nil {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (database.PhotoRecord, error) {
	var cols database.RowColumns
	var blob []byte
	if err := row.Scan(append(cols.Targets(), &blob)...); err != nil {
		return database.PhotoRecord{}, err
	}
	p, err := cols.Record()
	if err != nil {
		return p, err
	}
	p.Embedding, err = decodeEmbedding(blob)
	return p, err
}

func (s *Store) queryPhotos(ctx context.Context, query string, args ...any) ([]database.PhotoRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	return append(args, encodeEmbedding(p.Embedding)), nil
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

	res, err := s.db.ExecContext(ctx, insertPhoto, args...)
	if err != nil {
		return 0, apperr.Storage("insert photo", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Storage("read inserted id", err)
	}
	photo.ID = id
	return id, nil
}

// InsertBatch stores all photos in one transaction.
func (s *Store) InsertBatch(ctx context.Context, photos []*database.PhotoRecord) ([]int64, error) {
	for _, p := range photos {
		if p == nil || p.FilePath == "" {
			return nil, apperr.Invalid("file path is required")
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, insertPhoto)
	if err != nil {
		return nil, apperr.Storage("prepare insert", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(photos))
	for _, p := range photos {
		args, err := insertArgs(p)
		if err != nil {
			return nil, apperr.Storage("encode photo", err)
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, apperr.Storage("insert photo", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, apperr.Storage("read inserted id", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("commit batch", err)
	}
	for i, p := range photos {
		p.ID = ids[i]
	}
	return ids, nil
}

// Get returns the photo with id, or nil if there is none.
func (s *Store) Get(ctx context.Context, id int64) (*database.PhotoRecord, error) {
	p, err := scanPhoto(s.db.QueryRowContext(ctx, selectPhotos+` WHERE id = ?`, id))
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
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM photos WHERE file_path = ?)`, filePath).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("check photo path", err)
	}
	return exists, nil
}

// FindByDate returns photos whose date_taken starts with date.
func (s *Store) FindByDate(ctx context.Context, date string) ([]database.PhotoRecord, error) {
	return s.queryPhotos(ctx, selectPhotos+` WHERE substr(date_taken, 1, length(?)) = ? ORDER BY id`, date, date)
}

// FindByHashtag returns photos whose hashtags contain tag.
func (s *Store) FindByHashtag(ctx context.Context, tag string) ([]database.PhotoRecord, error) {
	return s.queryPhotos(ctx, selectPhotos+` WHERE instr(hashtags, ?) > 0 ORDER BY id`, tag)
}

// FindAll returns every photo ordered by id.
func (s *Store) FindAll(ctx context.Context) ([]database.PhotoRecord, error) {
	return s.queryPhotos(ctx, selectPhotos+` ORDER BY id`)
}

// DistinctDates returns the distinct capture days, ascending.
func (s *Store) DistinctDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT substr(date_taken, 1, 10) AS day FROM photos
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
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos`).Scan(&n); err != nil {
		return 0, apperr.Storage("count photos", err)
	}
	return n, nil
}

// DeleteAll removes every photo.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM photos`); err != nil {
		return apperr.Storage("delete photos", err)
	}
	return nil
}

// DeleteDuplicates keeps the lowest id per file path.
func (s *Store) DeleteDuplicates(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM photos
		WHERE id NOT IN (SELECT MIN(id) FROM photos GROUP BY file_path)`)
	if err != nil {
		return 0, apperr.Storage("delete duplicate photos", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage("read deleted count", err)
	}
	if n > 0 {
		s.logger.Info("removed duplicate photos", "count", n)
	}
	return n, nil
}

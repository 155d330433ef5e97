package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
)

// EnableHNSW builds the in-memory HNSW index. With a path, a saved index is
// reused when its metadata still matches the table; otherwise it is rebuilt.
func (s *Store) EnableHNSW(ctx context.Context, path string) error {
	index := database.NewHNSWIndex()

	liveIDs, maxID, err := s.embeddedIDs(ctx)
	if err != nil {
		return err
	}

	loaded := false
	if path != "" {
		meta, metaErr := database.LoadHNSWMetadata(path)
		if metaErr == nil && meta.PhotoCount == int64(len(liveIDs)) && meta.MaxPhotoID == maxID {
			if err := index.Load(path, liveIDs); err != nil {
				s.pool.logger.Warn("loading HNSW index failed, rebuilding", "path", path, "error", err)
			} else {
				loaded = !index.IsEmpty() || len(liveIDs) == 0
			}
		}
	}

	if !loaded {
		start := time.Now()
		photos, err := s.queryPhotos(ctx, selectPhotos+` WHERE embedding IS NOT NULL ORDER BY id`)
		if err != nil {
			return err
		}
		index.Build(photos)
		s.pool.logger.Info("built HNSW index", "photos", index.Count(), "duration", time.Since(start))
	}

	s.hnswMu.Lock()
	s.hnswIndex = index
	s.hnswEnabled = true
	s.hnswIndexPath = path
	s.hnswMu.Unlock()
	return nil
}

// SaveHNSWIndex persists the index when a path was configured.
func (s *Store) SaveHNSWIndex(ctx context.Context) error {
	s.hnswMu.RLock()
	index, path := s.hnswIndex, s.hnswIndexPath
	s.hnswMu.RUnlock()
	if index == nil || path == "" {
		return nil
	}

	liveIDs, maxID, err := s.embeddedIDs(ctx)
	if err != nil {
		return err
	}
	return index.Save(path, database.HNSWIndexMetadata{
		PhotoCount: int64(len(liveIDs)),
		MaxPhotoID: maxID,
		BuildTime:  time.Now(),
	})
}

func (s *Store) embeddedIDs(ctx context.Context) ([]int64, int64, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM photos WHERE embedding IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, 0, apperr.Storage("query embedded photo ids", err)
	}
	defer rows.Close()

	var ids []int64
	var maxID int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, 0, apperr.Storage("scan photo id", err)
		}
		ids = append(ids, id)
		maxID = max(maxID, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("iterate photo ids", err)
	}
	return ids, maxID, nil
}

func (s *Store) indexAdd(id int64, embedding []float32) {
	s.hnswMu.RLock()
	defer s.hnswMu.RUnlock()
	if s.hnswIndex == nil {
		return
	}
	if err := s.hnswIndex.Add(id, embedding); err != nil {
		s.pool.logger.Warn("photo not added to HNSW index", "id", id, "error", err)
	}
}

func (s *Store) indexDelete(id int64) {
	s.hnswMu.RLock()
	defer s.hnswMu.RUnlock()
	if s.hnswIndex != nil {
		s.hnswIndex.Delete(id)
	}
}

// HasOtherDimensions reports whether any stored embedding is not dim long.
func (s *Store) HasOtherDimensions(ctx context.Context, dim int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(
		SELECT 1 FROM photos WHERE embedding IS NOT NULL AND vector_dims(embedding) <> $1)`, dim).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("failed to check embedding dimensions", err)
	}
	return exists, nil
}

// NearestByEmbedding returns up to k candidate photos near query.
// Uses the in-memory HNSW index if enabled, otherwise falls back to pgvector.
func (s *Store) NearestByEmbedding(ctx context.Context, query []float32, k int) ([]database.PhotoRecord, error) {
	if k <= 0 || len(query) == 0 {
		return []database.PhotoRecord{}, nil
	}

	s.hnswMu.RLock()
	index := s.hnswIndex
	enabled := s.hnswEnabled && index != nil
	s.hnswMu.RUnlock()

	if enabled && !index.IsEmpty() {
		ids, _, err := index.Search(query, k)
		if err != nil {
			return nil, fmt.Errorf("HNSW search: %w", err)
		}
		if len(ids) == 0 {
			return []database.PhotoRecord{}, nil
		}
		return s.queryPhotos(ctx, selectPhotos+` WHERE id = ANY($1)`, pq.Array(ids))
	}

	return s.queryPhotos(ctx, selectPhotos+`
		WHERE embedding IS NOT NULL AND vector_dims(embedding) = $2
		ORDER BY embedding <=> $1 LIMIT $3`,
		pgvector.NewVector(query), len(query), k)
}

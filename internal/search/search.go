// Package search ranks stored photos by cosine similarity to a query embedding.
package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
)

// candidateMultiplier widens ANN candidate lists before exact re-ranking.
const candidateMultiplier = 4

// Match is a scored photo. Score is the cosine similarity in [-1, 1].
type Match struct {
	Record database.PhotoRecord `json:"record"`
	Score  float64              `json:"score"`
}

// Engine scores every stored embedding against a query. With a
// VectorSearcher it ranks only the backend's nearest candidates.
type Engine struct {
	store    database.PhotoReader
	searcher database.VectorSearcher
	logger   *slog.Logger
}

// NewEngine creates an engine that scans all records.
func NewEngine(store database.PhotoReader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// NewIndexedEngine creates an engine that asks searcher for candidates first.
// An empty candidate list or a searcher failure falls back to a full scan.
func NewIndexedEngine(store database.PhotoReader, searcher database.VectorSearcher, logger *slog.Logger) *Engine {
	e := NewEngine(store, logger)
	e.searcher = searcher
	return e
}

// Search returns the single best match, or nil when no record has an
// embedding. Ties keep the first record in store order.
func (e *Engine) Search(ctx context.Context, query []float32) (*Match, error) {
	matches, err := e.SearchTopK(ctx, query, 1)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return &matches[0], nil
}

// SearchTopK returns up to k matches in descending score order.
// A stored embedding whose length differs from the query is an error.
func (e *Engine) SearchTopK(ctx context.Context, query []float32, k int) ([]Match, error) {
	if len(query) == 0 {
		return nil, apperr.Invalid("query embedding is empty")
	}
	if k <= 0 {
		return nil, apperr.Invalid("k must be positive, got %d", k)
	}

	if e.searcher != nil {
		if matches, ok := e.searchIndexed(ctx, query, k); ok {
			return matches, nil
		}
	}

	photos, err := e.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return rank(query, photos, k)
}

// searchIndexed ranks the backend's candidates. It reports false when the
// full scan must run instead: the index failed, returned nothing, or the
// store holds embeddings of another length, which the scan reports as a
// dimension mismatch.
func (e *Engine) searchIndexed(ctx context.Context, query []float32, k int) ([]Match, bool) {
	mixed, err := e.searcher.HasOtherDimensions(ctx, len(query))
	if err != nil {
		e.logger.Warn("embedding dimension check failed, scanning all photos", "error", err)
		return nil, false
	}
	if mixed {
		return nil, false
	}

	candidates, err := e.searcher.NearestByEmbedding(ctx, query, k*candidateMultiplier)
	if err != nil {
		e.logger.Warn("vector index search failed, scanning all photos", "error", err)
		return nil, false
	}
	if len(candidates) == 0 {
		return nil, false
	}
	matches, err := rank(query, candidates, k)
	if err != nil {
		return nil, false
	}
	return matches, true
}

// rank scores records with embeddings and keeps the k best. The stable sort
// preserves input order among equal scores.
func rank(query []float32, photos []database.PhotoRecord, k int) ([]Match, error) {
	matches := make([]Match, 0, len(photos))
	for i := range photos {
		if photos[i].Embedding == nil {
			continue
		}
		score, err := database.CosineSimilarity(query, photos[i].Embedding)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Record: photos[i], Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/constants"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/search"
)

// TextSearch is the part of search.TextSearcher the handler needs.
type TextSearch interface {
	Search(ctx context.Context, text, imagePath string, k int) ([]search.Match, error)
}

// SearchHandler serves similarity and text search.
type SearchHandler struct {
	engine *search.Engine
	text   TextSearch // nil when no text encoder is configured
	store  database.PhotoReader
	topK   int
	logger *slog.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(engine *search.Engine, text TextSearch, store database.PhotoReader, topK int, logger *slog.Logger) *SearchHandler {
	if topK <= 0 {
		topK = 5
	}
	return &SearchHandler{engine: engine, text: text, store: store, topK: topK, logger: logger}
}

// SimilarRequest searches by a raw embedding or by a stored photo's embedding.
type SimilarRequest struct {
	Embedding []float32 `json:"embedding"`
	PhotoID   int64     `json:"photo_id"`
	K         int       `json:"k"`
}

// TextSearchRequest is the body of POST /search/text.
type TextSearchRequest struct {
	Query     string `json:"query"`
	ImagePath string `json:"image_path"`
	K         int    `json:"k"`
}

// SearchResponse lists matches best first.
type SearchResponse struct {
	Matches []search.Match `json:"matches"`
}

func (h *SearchHandler) clampK(k int) int {
	if k <= 0 {
		return h.topK
	}
	return min(k, constants.MaxTopK)
}

func respondMatches(w http.ResponseWriter, matches []search.Match) {
	if matches == nil {
		matches = []search.Match{}
	}
	for i := range matches {
		matches[i].Record.Embedding = nil
	}
	respondJSON(w, http.StatusOK, SearchResponse{Matches: matches})
}

// Similar ranks photos against an embedding. With photo_id the photo itself
// is left out of the results.
func (h *SearchHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	k := h.clampK(req.K)

	query := req.Embedding
	if req.PhotoID > 0 {
		photo, err := h.store.Get(r.Context(), req.PhotoID)
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		if photo == nil {
			respondError(w, http.StatusNotFound, apperr.CodeNotFound, "photo not found")
			return
		}
		if len(photo.Embedding) == 0 {
			respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "photo has no embedding")
			return
		}
		query = photo.Embedding
		k++
	}
	if len(query) == 0 {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "embedding or photo_id is required")
		return
	}

	matches, err := h.engine.SearchTopK(r.Context(), query, k)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	if req.PhotoID > 0 {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Record.ID != req.PhotoID {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
		if len(matches) > k-1 {
			matches = matches[:k-1]
		}
	}
	respondMatches(w, matches)
}

// Text embeds a free-text query and ranks photos against it.
func (h *SearchHandler) Text(w http.ResponseWriter, r *http.Request) {
	if h.text == nil {
		respondError(w, http.StatusServiceUnavailable, apperr.CodeInternal, "text search is not configured")
		return
	}

	var req TextSearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "query is required")
		return
	}

	matches, err := h.text.Search(r.Context(), req.Query, req.ImagePath, h.clampK(req.K))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondMatches(w, matches)
}

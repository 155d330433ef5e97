package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/fingerprint"
	"github.com/kozaktomas/photo-story/internal/history"
)

// Translator rewrites a query into the language the text encoder expects.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// TextSearcher answers free-text queries by embedding them and ranking photos.
type TextSearcher struct {
	engine     *Engine
	encoder    fingerprint.TextEncoder
	translator Translator
	ledger     *history.Ledger
	logger     *slog.Logger
	now        func() time.Time
}

// NewTextSearcher creates a text searcher. translator and ledger are optional.
func NewTextSearcher(engine *Engine, encoder fingerprint.TextEncoder, translator Translator, ledger *history.Ledger, logger *slog.Logger) *TextSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextSearcher{
		engine:     engine,
		encoder:    encoder,
		translator: translator,
		ledger:     ledger,
		logger:     logger,
		now:        time.Now,
	}
}

// Search records the query in the history ledger and returns the k best
// photos. imagePath is stored with the history entry as its thumbnail.
func (s *TextSearcher) Search(ctx context.Context, text, imagePath string, k int) ([]Match, error) {
	query := norm.NFC.String(strings.TrimSpace(text))
	if query == "" {
		return nil, apperr.Invalid("search text is required")
	}

	if s.ledger != nil {
		item := database.SearchHistoryItem{Query: query, ImagePath: imagePath, Timestamp: s.now()}
		if err := s.ledger.Record(ctx, item); err != nil {
			s.logger.Warn("failed to record search history", "query", query, "error", err)
		}
	}

	encoded := query
	if s.translator != nil {
		translated, err := s.translator.Translate(ctx, query)
		if err != nil {
			s.logger.Warn("query translation failed, using original text", "error", err)
		}
		if translated != "" {
			encoded = translated
		}
		s.logger.Debug("query translated", "query", query, "translated", encoded)
	}

	embedding, err := s.encoder.ComputeTextEmbedding(ctx, encoded)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to embed search text", err)
	}

	return s.engine.SearchTopK(ctx, embedding, k)
}

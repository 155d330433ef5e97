package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/photo-story/internal/history"
)

// HistoryHandler serves the recent searches list.
type HistoryHandler struct {
	ledger *history.Ledger
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(ledger *history.Ledger, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{ledger: ledger, logger: logger}
}

// List returns recent searches, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.List(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items, "capacity": h.ledger.Capacity()})
}

// Clear removes all recent searches.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Clear(r.Context()); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

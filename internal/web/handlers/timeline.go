package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/timeline"
)

// TimelineHandler serves day timelines and story edits.
type TimelineHandler struct {
	builder *timeline.Builder
	logger  *slog.Logger
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(builder *timeline.Builder, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{builder: builder, logger: logger}
}

// TimelineResponse is the ordered timeline of one day.
type TimelineResponse struct {
	Date  string          `json:"date"`
	Items []timeline.Item `json:"items"`
}

// StoryRequest is the body of PUT /timeline/{date}/story.
type StoryRequest struct {
	FilePath string `json:"file_path"`
	Story    string `json:"story"`
}

// Get builds the timeline for {date}.
func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(chi.URLParam(r, "date"))
	if date == "" {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "missing date")
		return
	}

	items, err := h.builder.BuildTimeline(r.Context(), date)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, TimelineResponse{Date: date, Items: items})
}

// UpdateStory publishes a story edit to timeline subscribers.
func (h *TimelineHandler) UpdateStory(w http.ResponseWriter, r *http.Request) {
	var req StoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.builder.UpdateStory(chi.URLParam(r, "date"), req.FilePath, req.Story); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// Events streams timeline events via SSE until the client disconnects.
func (h *TimelineHandler) Events(w http.ResponseWriter, r *http.Request) {
	events := h.builder.Events()
	ch := events.Subscribe()
	defer events.Unsubscribe(ch)

	flusher, ok := setupSSE(w)
	if !ok {
		return
	}
	sendSSEEvent(w, flusher, "connected", map[string]int{"subscribers": events.Subscribers()})

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, ev.Type, ev)
		}
	}
}

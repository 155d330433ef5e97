package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/constants"
	"github.com/kozaktomas/photo-story/internal/database"
)

// PhotosHandler exposes the photo store's filters.
type PhotosHandler struct {
	store  database.PhotoStore
	logger *slog.Logger
}

// NewPhotosHandler creates a new photos handler.
func NewPhotosHandler(store database.PhotoStore, logger *slog.Logger) *PhotosHandler {
	return &PhotosHandler{store: store, logger: logger}
}

// PhotoListResponse is a page of photos.
type PhotoListResponse struct {
	Photos []database.PhotoRecord `json:"photos"`
	Total  int                    `json:"total"`
}

// withoutEmbeddings drops vectors from list responses.
func withoutEmbeddings(photos []database.PhotoRecord) []database.PhotoRecord {
	for i := range photos {
		photos[i].Embedding = nil
	}
	return photos
}

// List returns photos ordered by ID with limit/offset paging.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", constants.DefaultPageSize, constants.MaxPageSize)
	if !ok {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "invalid limit")
		return
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "invalid offset")
			return
		}
		offset = n
	}

	photos, err := h.store.FindAll(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	total := len(photos)
	start := min(offset, total)
	end := min(start+limit, total)
	respondJSON(w, http.StatusOK, PhotoListResponse{
		Photos: withoutEmbeddings(photos[start:end]),
		Total:  total,
	})
}

// Get returns one photo including its embedding.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "invalid photo ID")
		return
	}

	photo, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, apperr.CodeNotFound, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// ByDate returns photos whose capture date starts with the {date} prefix.
func (h *PhotosHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(chi.URLParam(r, "date"))
	if date == "" || len(date) > len(database.DateLayout) {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "invalid date")
		return
	}

	photos, err := h.store.FindByDate(r.Context(), date)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, PhotoListResponse{Photos: withoutEmbeddings(photos), Total: len(photos)})
}

// ByHashtag returns photos whose hashtags contain {tag}.
func (h *PhotosHandler) ByHashtag(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(chi.URLParam(r, "tag"))
	if tag == "" {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "missing hashtag")
		return
	}

	photos, err := h.store.FindByHashtag(r.Context(), tag)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, PhotoListResponse{Photos: withoutEmbeddings(photos), Total: len(photos)})
}

// Dates returns the distinct capture days.
func (h *PhotosHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.store.DistinctDates(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"dates": dates})
}

// Dedupe removes duplicate records per file path, keeping the oldest.
func (h *PhotosHandler) Dedupe(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.DeleteDuplicates(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	h.logger.Info("removed duplicate photos", "removed", removed)
	respondJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// DeleteAll removes every photo.
func (h *PhotosHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAll(r.Context()); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	h.logger.Warn("all photos deleted", "remote", sanitizeForLog(r.RemoteAddr))
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

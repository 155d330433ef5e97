package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/constants"
	"github.com/kozaktomas/photo-story/internal/enrich"
)

// BatchEnricher is the part of enrich.Pipeline the handler needs.
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, photos []enrich.RawPhoto, opts enrich.BatchOptions) *enrich.BatchResult
}

// EnrichHandler runs enrichment jobs in the background.
type EnrichHandler struct {
	pipeline           BatchEnricher
	jobs               *JobManager
	defaultConcurrency int
	logger             *slog.Logger
}

// NewEnrichHandler creates a new enrich handler.
func NewEnrichHandler(pipeline BatchEnricher, jobs *JobManager, defaultConcurrency int, logger *slog.Logger) *EnrichHandler {
	return &EnrichHandler{pipeline: pipeline, jobs: jobs, defaultConcurrency: defaultConcurrency, logger: logger}
}

// EnrichRequest is the body of POST /enrich.
type EnrichRequest struct {
	Photos       []enrich.RawPhoto `json:"photos"`
	Concurrency  int               `json:"concurrency"`
	SkipExisting bool              `json:"skip_existing"`
}

// Start validates the batch and starts a job.
func (h *EnrichHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Photos) == 0 {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "at least one photo is required")
		return
	}
	if len(req.Photos) > constants.MaxJobPhotos {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "too many photos in one job")
		return
	}
	for _, p := range req.Photos {
		if strings.TrimSpace(p.Ref) == "" {
			respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "every photo needs a ref")
			return
		}
	}
	if req.Concurrency <= 0 {
		req.Concurrency = h.defaultConcurrency
	}

	job := h.jobs.CreateJob(len(req.Photos), EnrichJobOptions{
		Concurrency:  req.Concurrency,
		SkipExisting: req.SkipExisting,
	})
	go h.runEnrichJob(job, req.Photos)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(JobStatusPending),
	})
}

// List returns all known jobs.
func (h *EnrichHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

// Status returns one job.
func (h *EnrichHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job progress via SSE until the job finishes.
func (h *EnrichHandler) Events(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}

	eventCh := job.AddListener()
	defer job.RemoveListener(eventCh)

	flusher, ok := setupSSE(w)
	if !ok {
		return
	}

	snapshot := job.Snapshot()
	sendSSEEvent(w, flusher, "status", snapshot)
	if isJobTerminal(snapshot.Status) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
			if event.Type == "completed" || event.Type == "cancelled" {
				return
			}
		}
	}
}

// Cancel cancels a running job. Photos already in progress still finish.
func (h *EnrichHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": job.Cancel()})
}

func (h *EnrichHandler) lookup(w http.ResponseWriter, r *http.Request) *EnrichJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, apperr.CodeInvalid, "missing job ID")
		return nil
	}
	job := h.jobs.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, apperr.CodeNotFound, "job not found")
		return nil
	}
	return job
}

// runEnrichJob executes the job in the background
func (h *EnrichHandler) runEnrichJob(job *EnrichJob, photos []enrich.RawPhoto) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !job.start(cancel) {
		// Cancelled before it started
		job.finish(&enrich.BatchResult{Cancelled: len(photos)})
		return
	}
	job.SendEvent(JobEvent{Type: "started", Message: "Enrichment started", Data: job.Snapshot()})

	res := h.pipeline.EnrichBatch(ctx, photos, enrich.BatchOptions{
		Concurrency:  job.Options.Concurrency,
		SkipExisting: job.Options.SkipExisting,
		OnProgress: func(p enrich.Progress) {
			job.recordProgress(p)
			job.SendEvent(JobEvent{Type: "progress", Data: p})
		},
	})

	job.finish(res)
	snapshot := job.Snapshot()
	h.logger.Info("enrichment job finished",
		"job_id", job.ID,
		"status", snapshot.Status,
		"enriched", res.Enriched,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"cancelled", res.Cancelled)

	if snapshot.Status == JobStatusCompleted {
		job.SendEvent(JobEvent{Type: "completed", Message: "Enrichment completed", Data: snapshot})
	}
}

package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-story/internal/web/handlers"
)

const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	logger := s.logger
	concurrency := 0
	topK := 0
	if cfg := s.deps.Config; cfg != nil {
		concurrency = cfg.Defaults.Enrich.Concurrency
		topK = cfg.Defaults.Search.TopK
	}

	photosHandler := handlers.NewPhotosHandler(s.deps.Store, logger)
	enrichHandler := handlers.NewEnrichHandler(s.deps.Pipeline, s.jobManager, concurrency, logger)
	timelineHandler := handlers.NewTimelineHandler(s.deps.Timeline, logger)
	searchHandler := handlers.NewSearchHandler(s.deps.Engine, s.deps.Text, s.deps.Store, topK, logger)
	historyHandler := handlers.NewHistoryHandler(s.deps.Ledger, logger)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Streaming endpoints stay open without a deadline
		r.Get("/enrich/{jobId}/events", enrichHandler.Events)
		r.Get("/timeline/events", timelineHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			// Photos
			r.Get("/photos", photosHandler.List)
			r.Delete("/photos", photosHandler.DeleteAll)
			r.Get("/photos/dates", photosHandler.Dates)
			r.Post("/photos/dedupe", photosHandler.Dedupe)
			r.Get("/photos/date/{date}", photosHandler.ByDate)
			r.Get("/photos/hashtag/{tag}", photosHandler.ByHashtag)
			r.Get("/photos/{id}", photosHandler.Get)

			// Enrichment jobs
			r.Post("/enrich", enrichHandler.Start)
			r.Get("/enrich", enrichHandler.List)
			r.Get("/enrich/{jobId}", enrichHandler.Status)
			r.Delete("/enrich/{jobId}", enrichHandler.Cancel)

			// Timeline
			r.Get("/timeline/{date}", timelineHandler.Get)
			r.Put("/timeline/{date}/story", timelineHandler.UpdateStory)

			// Search
			r.Post("/search/similar", searchHandler.Similar)
			r.Post("/search/text", searchHandler.Text)

			// Search history
			r.Get("/history", historyHandler.List)
			r.Delete("/history", historyHandler.Clear)
		})
	})
}

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-story/internal/config"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/history"
	"github.com/kozaktomas/photo-story/internal/search"
	"github.com/kozaktomas/photo-story/internal/timeline"
	"github.com/kozaktomas/photo-story/internal/web/handlers"
	"github.com/kozaktomas/photo-story/internal/web/middleware"
)

// Deps are the components the API serves. Text may be nil when no text
// encoder is configured.
type Deps struct {
	Config   *config.Config
	Store    database.PhotoStore
	Pipeline handlers.BatchEnricher
	Timeline *timeline.Builder
	Engine   *search.Engine
	Text     handlers.TextSearch
	Ledger   *history.Ledger
	Logger   *slog.Logger
}

// Server represents the web server
type Server struct {
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	jobManager *handlers.JobManager
	logger     *slog.Logger
}

// NewServer creates a new web server
func NewServer(deps Deps, host string, port int) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := chi.NewRouter()

	s := &Server{
		deps:       deps,
		router:     r,
		jobManager: handlers.NewJobManager(),
		logger:     deps.Logger,
	}

	var allowedOrigins []string
	if deps.Config != nil {
		allowedOrigins = deps.Config.Web.AllowedOrigins
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kozaktomas/photo-story/internal/ai"
	"github.com/kozaktomas/photo-story/internal/config"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/database/postgres"
	"github.com/kozaktomas/photo-story/internal/database/sqlite"
	"github.com/kozaktomas/photo-story/internal/enrich"
	"github.com/kozaktomas/photo-story/internal/fingerprint"
	"github.com/kozaktomas/photo-story/internal/geo"
	"github.com/kozaktomas/photo-story/internal/history"
	"github.com/kozaktomas/photo-story/internal/logging"
	"github.com/kozaktomas/photo-story/internal/photosource"
	"github.com/kozaktomas/photo-story/internal/search"
	"github.com/kozaktomas/photo-story/internal/timeline"
)

// storeHandle is the single store every component shares.
type storeHandle interface {
	database.PhotoStore
	database.PreferenceStore
	Close() error
}

// app holds the configuration, logger and store of one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storeHandle
}

// newApp loads configuration and opens (and migrates) the configured store.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Log, os.Stderr)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storeHandle, error) {
	switch cfg.Database.Driver {
	case "", "sqlite":
		store, err := sqlite.Open(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		if _, err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, errors.New("DATABASE_URL environment variable is required for the postgres driver")
		}
		store, err := postgres.Open(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q (use sqlite or postgres)", cfg.Database.Driver)
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store failed", "error", err)
	}
}

// engine uses the backend's vector index when it has one.
func (a *app) engine() *search.Engine {
	if vs, ok := a.store.(database.VectorSearcher); ok {
		return search.NewIndexedEngine(a.store, vs, a.logger)
	}
	return search.NewEngine(a.store, a.logger)
}

func (a *app) ledger() *history.Ledger {
	return history.NewLedger(a.store, a.cfg.Defaults.History.Capacity, a.logger)
}

func (a *app) timeline(events *timeline.Events) *timeline.Builder {
	return timeline.NewBuilder(a.store, events, a.cfg.Defaults.Timeline.DescriptionPrefix, a.logger)
}

func (a *app) encoder() *fingerprint.EmbeddingClient {
	return fingerprint.NewEmbeddingClient(a.cfg.Embedding.URL)
}

// textSearcher wires the encoder, optional translator and history ledger.
// Callers pass the ledger they serve history from so both share its lock.
func (a *app) textSearcher(engine *search.Engine, ledger *history.Ledger) *search.TextSearcher {
	var translator search.Translator
	if a.cfg.OpenAI.TranslateQueries {
		if a.cfg.OpenAI.Token == "" {
			a.logger.Warn("OPENAI_TRANSLATE_QUERIES is set but OPENAI_TOKEN is empty, queries stay untranslated")
		} else {
			translator = ai.NewQueryTranslator(a.cfg.OpenAI.Token)
		}
	}
	return search.NewTextSearcher(engine, a.encoder(), translator, ledger, a.logger)
}

// pipeline builds the enrichment pipeline. Relative file references resolve
// against filesRoot.
func (a *app) pipeline(ctx context.Context, filesRoot string) (*enrich.Pipeline, error) {
	classifier, err := ai.NewClassifier(ctx, a.cfg)
	switch {
	case errors.Is(err, ai.ErrNoClassifier):
		a.logger.Info("no classifier configured, object detection disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	var labeler *geo.Labeler
	if a.cfg.Geocoder.URL != "" {
		timeout := time.Duration(a.cfg.Defaults.Geocoder.TimeoutSeconds) * time.Second
		provider := geo.NewNominatim(a.cfg.Geocoder.URL, a.cfg.Geocoder.UserAgent, a.cfg.Geocoder.Language, timeout)
		labeler = geo.NewLabeler(provider, a.logger)
	} else {
		a.logger.Info("GEOCODER_URL not set, location labels disabled")
	}

	router := &photosource.Router{Files: photosource.FileOpener{Root: filesRoot}}
	objects, err := photosource.NewObjectOpener(a.cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if objects != nil {
		router.Objects = objects
	}

	return enrich.NewPipeline(enrich.Options{
		Store:         a.store,
		Opener:        router,
		Labeler:       labeler,
		Classifier:    classifier,
		Encoder:       a.encoder(),
		Logger:        a.logger,
		MinConfidence: a.cfg.Defaults.Classifier.MinConfidence,
	})
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

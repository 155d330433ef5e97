package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("HISTORY_CAPACITY", "")
	t.Setenv("ENRICH_CONCURRENCY", "")

	cfg := Load()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Database.Path != "photo-story.db" {
		t.Errorf("expected default path, got %q", cfg.Database.Path)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Defaults.History.Capacity != 10 {
		t.Errorf("expected history capacity 10, got %d", cfg.Defaults.History.Capacity)
	}
	if cfg.Defaults.Enrich.Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d", cfg.Defaults.Enrich.Concurrency)
	}
	if cfg.Defaults.Timeline.DescriptionPrefix == "" {
		t.Error("expected a description prefix from defaults.yaml")
	}
	if cfg.Defaults.Classifier.MaxImageSize <= 0 {
		t.Error("expected positive max image size")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("HISTORY_CAPACITY", "20")
	t.Setenv("CLASSIFIER_MIN_CONFIDENCE", "0.75")
	t.Setenv("OPENAI_TRANSLATE_QUERIES", "true")
	t.Setenv("MINIO_USE_SSL", "1")
	t.Setenv("TIMELINE_DESCRIPTION_PREFIX", "")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://photos.example.com, ,https://story.example.com")

	cfg := Load()

	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://story.example.com" {
		t.Errorf("unexpected origins %v", cfg.Web.AllowedOrigins)
	}

	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected lowercased driver, got %q", cfg.Database.Driver)
	}
	if cfg.Database.URL != "postgres://u:p@localhost/db" {
		t.Errorf("unexpected URL %q", cfg.Database.URL)
	}
	if cfg.Defaults.History.Capacity != 20 {
		t.Errorf("expected capacity 20, got %d", cfg.Defaults.History.Capacity)
	}
	if cfg.Defaults.Classifier.MinConfidence != 0.75 {
		t.Errorf("expected min confidence 0.75, got %v", cfg.Defaults.Classifier.MinConfidence)
	}
	if !cfg.OpenAI.TranslateQueries {
		t.Error("expected TranslateQueries")
	}
	if !cfg.MinIO.UseSSL {
		t.Error("expected UseSSL")
	}
	if cfg.Defaults.Timeline.DescriptionPrefix != "" {
		t.Errorf("expected explicit empty prefix, got %q", cfg.Defaults.Timeline.DescriptionPrefix)
	}
}

func TestEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "12", 12},
		{"zero", "0", 7},
		{"negative", "-3", 7},
		{"garbage", "abc", 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_INT", tc.value)
			if got := envInt("TEST_ENV_INT", 7); got != tc.want {
				t.Errorf("envInt() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLoad_InvalidMinConfidenceIgnored(t *testing.T) {
	t.Setenv("CLASSIFIER_MIN_CONFIDENCE", "1.5")
	cfg := Load()
	if cfg.Defaults.Classifier.MinConfidence != 0.3 {
		t.Errorf("expected default 0.3, got %v", cfg.Defaults.Classifier.MinConfidence)
	}
}

package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Embedding  EmbeddingConfig
	Classifier ClassifierConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Ollama     OllamaConfig
	Geocoder   GeocoderConfig
	MinIO      MinIOConfig
	PhotoPrism PhotoPrismConfig
	Log        LogConfig
	Web        WebConfig
	Defaults   Defaults
}

type DatabaseConfig struct {
	Driver        string // sqlite (default) or postgres
	URL           string // PostgreSQL connection URL
	Path          string // SQLite database file, defaults to photo-story.db
	MaxOpenConns  int    // Maximum open connections (default 25, postgres only)
	MaxIdleConns  int    // Maximum idle connections (default 5, postgres only)
	HNSWIndexPath string // Path to persist the embedding HNSW index (optional, postgres only)
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type ClassifierConfig struct {
	Provider string // openai, gemini or ollama; empty disables classification
}

type OpenAIConfig struct {
	Token            string
	TranslateQueries bool // translate text search queries to English first
}

type GeminiConfig struct {
	APIKey string
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

type GeocoderConfig struct {
	URL       string // Nominatim base URL; empty disables geocoding
	UserAgent string
	Language  string
}

type MinIOConfig struct {
	Endpoint  string // empty disables s3:// references
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type PhotoPrismConfig struct {
	DatabaseURL   string // MariaDB DSN (e.g., photoprism:photoprism@tcp(mariadb:3306)/photoprism)
	OriginalsPath string // where PhotoPrism originals are mounted locally
}

type WebConfig struct {
	AllowedOrigins []string // extra CORS origins besides localhost
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Defaults holds the tunables from the embedded defaults.yaml.
type Defaults struct {
	History struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"history"`
	Timeline struct {
		DescriptionPrefix string `yaml:"description_prefix"`
	} `yaml:"timeline"`
	Classifier struct {
		MinConfidence float64 `yaml:"min_confidence"`
		MaxLabels     int     `yaml:"max_labels"`
		MaxImageSize  int     `yaml:"max_image_size"`
	} `yaml:"classifier"`
	Enrich struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"enrich"`
	Geocoder struct {
		Language       string `yaml:"language"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"geocoder"`
	Search struct {
		TopK int `yaml:"top_k"`
	} `yaml:"search"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads a boolean environment variable; unset or invalid yields false.
func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadDefaults() Defaults {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	defaults := loadDefaults()
	defaults.History.Capacity = envInt("HISTORY_CAPACITY", defaults.History.Capacity)
	defaults.Enrich.Concurrency = envInt("ENRICH_CONCURRENCY", defaults.Enrich.Concurrency)
	if p, ok := os.LookupEnv("TIMELINE_DESCRIPTION_PREFIX"); ok {
		defaults.Timeline.DescriptionPrefix = p
	}
	if s := os.Getenv("CLASSIFIER_MIN_CONFIDENCE"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
			defaults.Classifier.MinConfidence = f
		}
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:        strings.ToLower(envString("DATABASE_DRIVER", "sqlite")),
			URL:           os.Getenv("DATABASE_URL"),
			Path:          envString("DATABASE_PATH", "photo-story.db"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Classifier: ClassifierConfig{
			Provider: strings.ToLower(os.Getenv("CLASSIFIER_PROVIDER")),
		},
		OpenAI: OpenAIConfig{
			Token:            os.Getenv("OPENAI_TOKEN"),
			TranslateQueries: envBool("OPENAI_TRANSLATE_QUERIES"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Geocoder: GeocoderConfig{
			URL:       os.Getenv("GEOCODER_URL"),
			UserAgent: envString("GEOCODER_USER_AGENT", "photo-story"),
			Language:  envString("GEOCODER_LANGUAGE", defaults.Geocoder.Language),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    envBool("MINIO_USE_SSL"),
		},
		PhotoPrism: PhotoPrismConfig{
			DatabaseURL:   os.Getenv("PHOTOPRISM_DATABASE_URL"),
			OriginalsPath: os.Getenv("PHOTOPRISM_ORIGINALS_PATH"),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Web: WebConfig{
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Defaults: defaults,
	}
}

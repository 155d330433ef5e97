package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-story/internal/config"
)

//go:embed prompts/classify.txt
var classifyPrompt string

const (
	defaultMaxImageSize = 800
	defaultMaxLabels    = 10
	maxRetries          = 5
)

// Classifier detects objects in an image. Implementations return labels with
// confidences in [0,1]; ordering is not guaranteed.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, imageData []byte) ([]LabelWithConfidence, error)
}

// LabelWithConfidence represents a label with its confidence score.
type LabelWithConfidence struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Usage tracks token usage of a remote model.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Options tune how images are sent and how many labels are requested.
type Options struct {
	MaxImageSize int // longest side in pixels
	MaxLabels    int
}

func (o Options) withDefaults() Options {
	if o.MaxImageSize <= 0 {
		o.MaxImageSize = defaultMaxImageSize
	}
	if o.MaxLabels <= 0 {
		o.MaxLabels = defaultMaxLabels
	}
	return o
}

type classification struct {
	Labels []LabelWithConfidence `json:"labels"`
}

func buildClassifyPrompt(maxLabels int) string {
	return fmt.Sprintf(classifyPrompt, maxLabels)
}

// parseLabels decodes the model's JSON answer, dropping empty names and
// clamping confidences into [0,1].
func parseLabels(content string) ([]LabelWithConfidence, error) {
	var c classification
	if err := json.Unmarshal([]byte(extractJSON(content)), &c); err != nil {
		return nil, err
	}
	labels := make([]LabelWithConfidence, 0, len(c.Labels))
	for _, l := range c.Labels {
		name := strings.ToLower(strings.TrimSpace(l.Name))
		if name == "" {
			continue
		}
		labels = append(labels, LabelWithConfidence{Name: name, Confidence: min(max(l.Confidence, 0), 1)})
	}
	return labels, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	// Find matching closing brace
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return content[start:]
}

func parseRetryMessage(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Output ONLY valid JSON, no other text.", err)
}

// ErrNoClassifier is returned by NewClassifier when no provider is configured.
var ErrNoClassifier = errors.New("no classifier provider configured")

// NewClassifier builds the classifier named by cfg.Classifier.Provider.
func NewClassifier(ctx context.Context, cfg *config.Config) (Classifier, error) {
	opts := Options{
		MaxImageSize: cfg.Defaults.Classifier.MaxImageSize,
		MaxLabels:    cfg.Defaults.Classifier.MaxLabels,
	}

	switch cfg.Classifier.Provider {
	case "":
		return nil, ErrNoClassifier
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN is required for the openai classifier")
		}
		return NewOpenAIClassifier(cfg.OpenAI.Token, opts), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for the gemini classifier")
		}
		return NewGeminiClassifier(ctx, cfg.Gemini.APIKey, opts)
	case "ollama":
		return NewOllamaClassifier(cfg.Ollama.URL, cfg.Ollama.Model, opts), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q (use openai, gemini or ollama)", cfg.Classifier.Provider)
	}
}

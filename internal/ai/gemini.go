package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiClassifier labels photos with a Gemini model.
type GeminiClassifier struct {
	client *genai.Client
	opts   Options

	mu    sync.Mutex
	usage Usage
}

func NewGeminiClassifier(ctx context.Context, apiKey string, opts Options) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClassifier{client: client, opts: opts.withDefaults()}, nil
}

func (p *GeminiClassifier) Name() string {
	return geminiModel
}

// GetUsage returns the accumulated token usage.
func (p *GeminiClassifier) GetUsage() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

func (p *GeminiClassifier) trackUsage(inputTokens, outputTokens int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage.InputTokens += int(inputTokens)
	p.usage.OutputTokens += int(outputTokens)
}

func (p *GeminiClassifier) Classify(ctx context.Context, imageData []byte) ([]LabelWithConfidence, error) {
	resizedData, err := ResizeImage(imageData, p.opts.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildClassifyPrompt(p.opts.MaxLabels)},
				{InlineData: &genai.Blob{Data: resizedData, MIMEType: "image/jpeg"}},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}
		if result.UsageMetadata != nil {
			p.trackUsage(result.UsageMetadata.PromptTokenCount, result.UsageMetadata.CandidatesTokenCount)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		labels, err := parseLabels(content)
		if err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{Role: "model", Parts: []*genai.Part{{Text: content}}},
				&genai.Content{Role: "user", Parts: []*genai.Part{{Text: parseRetryMessage(err)}}},
			)
			continue
		}
		return labels, nil
	}

	return nil, fmt.Errorf("failed to parse labels JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2-vision:11b"
)

// OllamaClassifier labels photos with a local Ollama vision model.
type OllamaClassifier struct {
	baseURL string
	model   string
	client  *http.Client
	opts    Options

	mu    sync.Mutex
	usage Usage
}

func NewOllamaClassifier(baseURL, model string, opts Options) *OllamaClassifier {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaClassifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
		opts:    opts.withDefaults(),
	}
}

func (p *OllamaClassifier) Name() string {
	return p.model
}

// GetUsage returns the accumulated token counts.
func (p *OllamaClassifier) GetUsage() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usage
}

// ollamaRequest represents a request to the Ollama chat API
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64 encoded images
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

// ollamaResponse represents a response from the Ollama chat API
type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (p *OllamaClassifier) Classify(ctx context.Context, imageData []byte) ([]LabelWithConfidence, error) {
	resizedData, err := ResizeImage(imageData, p.opts.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	messages := []ollamaMessage{
		{Role: "system", Content: buildClassifyPrompt(p.opts.MaxLabels)},
		{
			Role:    "user",
			Content: "Label this photo.",
			Images:  []string{base64.StdEncoding.EncodeToString(resizedData)},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.sendRequest(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("ollama API error: %w", err)
		}

		p.mu.Lock()
		p.usage.InputTokens += resp.PromptEvalCount
		p.usage.OutputTokens += resp.EvalCount
		p.mu.Unlock()

		content := resp.Message.Content
		lastResponse = content

		labels, err := parseLabels(content)
		if err != nil {
			lastError = err
			messages = append(messages,
				ollamaMessage{Role: "assistant", Content: content},
				ollamaMessage{Role: "user", Content: parseRetryMessage(err)},
			)
			continue
		}
		return labels, nil
	}

	return nil, fmt.Errorf("failed to parse labels JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}

func (p *OllamaClassifier) sendRequest(ctx context.Context, messages []ollamaMessage) (*ollamaResponse, error) {
	reqBody := ollamaRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Format:   "json",
		Options:  ollamaOptions{NumPredict: 400},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &ollamaResp, nil
}

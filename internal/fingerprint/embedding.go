// Package fingerprint computes semantic embeddings of images and text through
// an external embedding server. Tokenization happens on the server.
package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultEmbeddingURL = "http://localhost:8000"
	defaultTimeout      = 60 * time.Second
)

// ImageEncoder maps image bytes to a fixed-length vector.
type ImageEncoder interface {
	ComputeEmbedding(ctx context.Context, imageData []byte) ([]float32, error)
}

// TextEncoder maps a text query into the same space as ImageEncoder.
type TextEncoder interface {
	ComputeTextEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingClient computes image and text embeddings using the embedding server
type EmbeddingClient struct {
	baseURL string
	client  *http.Client
}

var (
	_ ImageEncoder = (*EmbeddingClient)(nil)
	_ TextEncoder  = (*EmbeddingClient)(nil)
)

// NewEmbeddingClient creates a new embedding client
func NewEmbeddingClient(baseURL string) *EmbeddingClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &EmbeddingClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// embeddingResponse represents the response from the embedding server
type embeddingResponse struct {
	Dim        int       `json:"dim"`
	Embedding  []float32 `json:"embedding"`
	Model      string    `json:"model"`
	Pretrained string    `json:"pretrained"`
}

// textEmbeddingRequest represents the request body for text embedding
type textEmbeddingRequest struct {
	Text string `json:"text"`
}

// ComputeEmbedding computes the embedding for an image
func (c *EmbeddingClient) ComputeEmbedding(ctx context.Context, imageData []byte) ([]float32, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", http.DetectContentType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return c.post(ctx, "/embed/image", writer.FormDataContentType(), &buf)
}

// ComputeTextEmbedding computes the embedding for a text query
func (c *EmbeddingClient) ComputeTextEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}
	reqBody, err := json.Marshal(textEmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.post(ctx, "/embed/text", "application/json", bytes.NewReader(reqBody))
}

func (c *EmbeddingClient) post(ctx context.Context, endpoint, contentType string, body io.Reader) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(data))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(data, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if embResp.Dim != 0 && embResp.Dim != len(embResp.Embedding) {
		return nil, fmt.Errorf("server reported dim %d but sent %d values", embResp.Dim, len(embResp.Embedding))
	}
	return embResp.Embedding, nil
}

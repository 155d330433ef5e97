package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/kozaktomas/photo-story/internal/config"
)

// Helper functions for creating test images

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy(), format
}

// --- ResizeImage tests ---

func TestResizeImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxSize       int
		wantW, wantH  int
	}{
		{"no resize needed", 100, 100, 200, 100, 100},
		{"landscape", 2000, 1000, 500, 500, 250},
		{"portrait", 1000, 2000, 500, 250, 500},
		{"square", 1000, 1000, 200, 200, 200},
		{"exactly max size", 500, 500, 500, 500, 500},
		{"one dimension at max", 500, 300, 500, 500, 300},
		{"four by three", 1600, 1200, 400, 400, 300},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := encodeJPEG(createTestImage(tc.width, tc.height, color.White))

			resized, err := ResizeImage(data, tc.maxSize)
			if err != nil {
				t.Fatalf("ResizeImage failed: %v", err)
			}
			w, h, format := decodeSize(t, resized)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tc.wantW, tc.wantH, w, h)
			}
			if format != "jpeg" {
				t.Errorf("expected jpeg, got %s", format)
			}
		})
	}
}

func TestResizeImage_SmallJPEGReturnedUnchanged(t *testing.T) {
	data := encodeJPEG(createTestImage(50, 40, color.White))
	resized, err := ResizeImage(data, 100)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}
	if !bytes.Equal(resized, data) {
		t.Error("expected the original bytes for a JPEG that already fits")
	}
}

func TestResizeImage_PNGInput(t *testing.T) {
	data := encodePNG(createTestImage(100, 100, color.White))

	resized, err := ResizeImage(data, 200)
	if err != nil {
		t.Fatalf("ResizeImage failed for PNG: %v", err)
	}
	if _, _, format := decodeSize(t, resized); format != "jpeg" {
		t.Errorf("expected jpeg output format, got %s", format)
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	if _, err := ResizeImage([]byte("not an image"), 500); err == nil {
		t.Error("expected error for invalid image data")
	}
	if _, err := ResizeImage([]byte{}, 500); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestFitWithin(t *testing.T) {
	if w, h := fitWithin(3000, 10, 300); w != 300 || h != 1 {
		t.Errorf("expected 300x1, got %dx%d", w, h)
	}
	if w, h := fitWithin(640, 480, 0); w != 640 || h != 480 {
		t.Errorf("expected no change for maxSize 0, got %dx%d", w, h)
	}
}

// --- Label parsing ---

func TestParseLabels(t *testing.T) {
	content := `Sure! {"labels": [{"name": " Dog ", "confidence": 0.9}, {"name": "", "confidence": 0.5}, {"name": "sky", "confidence": 1.7}]} hope that helps`
	labels, err := parseLabels(content)
	if err != nil {
		t.Fatalf("parseLabels: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %+v", labels)
	}
	if labels[0].Name != "dog" || labels[0].Confidence != 0.9 {
		t.Errorf("unexpected first label: %+v", labels[0])
	}
	if labels[1].Confidence != 1 {
		t.Errorf("expected clamped confidence, got %v", labels[1].Confidence)
	}

	if _, err := parseLabels("no json here"); err == nil {
		t.Error("expected error without JSON")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`text {"a":{"b":2}} tail`, `{"a":{"b":2}}`},
		{`{"a":1`, `{"a":1`},
		{`plain`, `plain`},
	}
	for _, tc := range tests {
		if got := extractJSON(tc.in); got != tc.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildClassifyPrompt(t *testing.T) {
	if !strings.Contains(buildClassifyPrompt(7), "at most 7 labels") {
		t.Error("expected label limit in prompt")
	}
}

// --- Ollama ---

func TestOllamaClassifier_RetriesOnBadJSON(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) < 2 || len(req.Messages[1].Images) != 1 {
			t.Errorf("expected image in user message")
		}

		content := `{"labels": [{"name": "cat", "confidence": 0.8}]}`
		if calls.Add(1) == 1 {
			content = `{"labels": [`
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"message":           map[string]string{"role": "assistant", "content": content},
			"done":              true,
			"prompt_eval_count": 10,
			"eval_count":        5,
		})
	}))
	defer server.Close()

	c := NewOllamaClassifier(server.URL+"/", "", Options{MaxImageSize: 64})
	if c.Name() != defaultOllamaModel {
		t.Errorf("expected default model, got %s", c.Name())
	}

	labels, err := c.Classify(context.Background(), encodeJPEG(createTestImage(200, 100, color.Black)))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "cat" {
		t.Errorf("unexpected labels: %+v", labels)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
	if u := c.GetUsage(); u.InputTokens != 20 || u.OutputTokens != 10 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestOllamaClassifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewOllamaClassifier(server.URL, "llava", Options{})
	_, err := c.Classify(context.Background(), encodeJPEG(createTestImage(10, 10, color.White)))
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestOllamaClassifier_UndecodableImage(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewOllamaClassifier(server.URL, "llava", Options{})
	if _, err := c.Classify(context.Background(), []byte("not an image")); err == nil {
		t.Fatal("expected resize error")
	}
	if calls.Load() != 0 {
		t.Errorf("expected no request, got %d", calls.Load())
	}
}

// --- OpenAI ---

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4.1-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
	}
}

func TestOpenAIClassifier_Classify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"labels": [{"name": "tree", "confidence": 0.6}]}`))
	}))
	defer server.Close()

	c := NewOpenAIClassifier("test-key", Options{}, option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	labels, err := c.Classify(context.Background(), encodePNG(createTestImage(20, 20, color.White)))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "tree" {
		t.Errorf("unexpected labels: %+v", labels)
	}
	if u := c.GetUsage(); u.InputTokens != 12 || u.OutputTokens != 4 {
		t.Errorf("unexpected usage: %+v", u)
	}
}

func TestQueryTranslator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion("  dog on the beach \n"))
	}))
	defer server.Close()

	tr := NewQueryTranslator("test-key", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	got, err := tr.Translate(context.Background(), "pes na pláži")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "dog on the beach" {
		t.Errorf("unexpected translation %q", got)
	}
}

func TestQueryTranslator_FailureKeepsOriginal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	tr := NewQueryTranslator("bad", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	got, err := tr.Translate(context.Background(), "západ slunce")
	if err == nil {
		t.Fatal("expected error")
	}
	if got != "západ slunce" {
		t.Errorf("expected original text, got %q", got)
	}
}

// --- Factory ---

func TestNewClassifier(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	if _, err := NewClassifier(ctx, cfg); err != ErrNoClassifier {
		t.Errorf("expected ErrNoClassifier, got %v", err)
	}

	cfg.Classifier.Provider = "openai"
	if _, err := NewClassifier(ctx, cfg); err == nil {
		t.Error("expected error without OpenAI token")
	}

	cfg.Classifier.Provider = "ollama"
	c, err := NewClassifier(ctx, cfg)
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if _, ok := c.(*OllamaClassifier); !ok {
		t.Errorf("expected *OllamaClassifier, got %T", c)
	}

	cfg.Classifier.Provider = "clip"
	if _, err := NewClassifier(ctx, cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

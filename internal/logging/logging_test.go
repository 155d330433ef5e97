package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-story/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(config.LogConfig{Level: "info", Format: "json"}, &buf)
		logger.Debug("hidden")
		logger.Info("visible", "photos", 3)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected one line, got %q", buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("not json: %v", err)
		}
		if entry["msg"] != "visible" || entry["photos"] != float64(3) {
			t.Errorf("unexpected entry %v", entry)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		New(config.LogConfig{Level: "debug", Format: "text"}, &buf).Debug("shown", "ref", "a.jpg")
		if !strings.Contains(buf.String(), "msg=shown") || !strings.Contains(buf.String(), "ref=a.jpg") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

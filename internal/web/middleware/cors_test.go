package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS([]string{"https://story.example.com"})(next)

	tests := []struct {
		name       string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		{"listed origin", "https://story.example.com", http.MethodGet, "https://story.example.com", http.StatusOK},
		{"localhost with port", "http://localhost:5173", http.MethodGet, "http://localhost:5173", http.StatusOK},
		{"localhost lookalike", "http://localhost.evil.com", http.MethodGet, "", http.StatusOK},
		{"unknown origin", "https://evil.example.com", http.MethodGet, "", http.StatusOK},
		{"preflight", "https://story.example.com", http.MethodOptions, "https://story.example.com", http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/photos", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("allow origin = %q, want %q", got, tc.wantOrigin)
			}
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/database/mock"
	"github.com/kozaktomas/photo-story/internal/history"
	"github.com/kozaktomas/photo-story/internal/search"
)

type fixedEncoder struct{ vector []float32 }

func (e fixedEncoder) ComputeTextEmbedding(context.Context, string) ([]float32, error) {
	return e.vector, nil
}

func TestHistoryHandler(t *testing.T) {
	prefs := mock.NewMockPreferenceStore()
	ledger := history.NewLedger(prefs, 3, discardLogger())
	handler := NewHistoryHandler(ledger, discardLogger())

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, q := range []string{"beach", "palace", "market"} {
		if err := ledger.Record(context.Background(), database.SearchHistoryItem{Query: q, Timestamp: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Items    []database.SearchHistoryItem `json:"items"`
		Capacity int                          `json:"capacity"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Capacity != 3 || len(resp.Items) != 3 || resp.Items[0].Query != "market" {
		t.Errorf("unexpected history %+v", resp)
	}

	rec = httptest.NewRecorder()
	handler.Clear(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil))
	assertStatusCode(t, rec, http.StatusOK)

	items, err := ledger.List(context.Background())
	if err != nil || len(items) != 0 {
		t.Errorf("expected empty history, got %v (%v)", items, err)
	}
}

func TestHistoryHandler_StorageError(t *testing.T) {
	prefs := mock.NewMockPreferenceStore()
	prefs.GetError = errors.New("database is locked")
	handler := NewHistoryHandler(history.NewLedger(prefs, 10, discardLogger()), discardLogger())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assertStatusCode(t, rec, http.StatusServiceUnavailable)
	assertJSONError(t, rec, "", "STORAGE_ERROR")
}

func TestHistoryHandler_SharedWithTextSearch(t *testing.T) {
	store, engine := newSearchFixture()
	prefs := mock.NewMockPreferenceStore()
	ledger := history.NewLedger(prefs, 10, discardLogger())
	text := search.NewTextSearcher(engine, fixedEncoder{vector: []float32{1, 0}}, nil, ledger, discardLogger())
	searchHandler := NewSearchHandler(engine, text, store, 5, discardLogger())
	historyHandler := NewHistoryHandler(ledger, discardLogger())

	listHistory := func() []database.SearchHistoryItem {
		rec := httptest.NewRecorder()
		historyHandler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
		assertStatusCode(t, rec, http.StatusOK)
		var resp struct {
			Items []database.SearchHistoryItem `json:"items"`
		}
		parseJSONResponse(t, rec, &resp)
		return resp.Items
	}

	for _, q := range []string{"beach", "harbor"} {
		rec := httptest.NewRecorder()
		searchHandler.Text(rec, jsonRequest(t, http.MethodPost, "/api/v1/search/text", TextSearchRequest{Query: q}))
		assertStatusCode(t, rec, http.StatusOK)
	}
	if items := listHistory(); len(items) != 2 {
		t.Fatalf("expected both searches in history, got %+v", items)
	}

	rec := httptest.NewRecorder()
	historyHandler.Clear(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil))
	assertStatusCode(t, rec, http.StatusOK)
	if items := listHistory(); len(items) != 0 {
		t.Errorf("expected cleared history, got %+v", items)
	}

	rec = httptest.NewRecorder()
	searchHandler.Text(rec, jsonRequest(t, http.MethodPost, "/api/v1/search/text", TextSearchRequest{Query: "market"}))
	assertStatusCode(t, rec, http.StatusOK)
	if items := listHistory(); len(items) != 1 || items[0].Query != "market" {
		t.Errorf("expected only the search after clearing, got %+v", items)
	}
}

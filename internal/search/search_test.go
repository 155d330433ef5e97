package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/database/mock"
)

func storeWith(embeddings map[string][]float32, order ...string) *mock.MockPhotoStore {
	store := mock.NewMockPhotoStore()
	for _, path := range order {
		store.AddPhoto(database.PhotoRecord{FilePath: path, DateTaken: "2024-05-01 10:00:00", Embedding: embeddings[path]})
	}
	return store
}

func TestSearch_ExactMatch(t *testing.T) {
	store := storeWith(map[string][]float32{"x.jpg": {1, 0}, "y.jpg": {0, 1}}, "x.jpg", "y.jpg")

	match, err := NewEngine(store, nil).Search(context.Background(), []float32{1, 0})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if match == nil || match.Record.FilePath != "x.jpg" {
		t.Fatalf("expected x.jpg, got %+v", match)
	}
	if math.Abs(match.Score-1) > 1e-9 {
		t.Errorf("score = %v", match.Score)
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	tests := map[string]*mock.MockPhotoStore{
		"no photos":     mock.NewMockPhotoStore(),
		"no embeddings": storeWith(nil, "a.jpg", "b.jpg"),
	}
	for name, store := range tests {
		t.Run(name, func(t *testing.T) {
			match, err := NewEngine(store, nil).Search(context.Background(), []float32{1, 0})
			if err != nil || match != nil {
				t.Errorf("expected no match, got %+v, %v", match, err)
			}
		})
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	store := storeWith(map[string][]float32{"a.jpg": {1, 0, 0}}, "a.jpg")
	_, err := NewEngine(store, nil).Search(context.Background(), []float32{1, 0})
	if !apperr.Is(err, apperr.CodeDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestSearch_ScaleInvariance(t *testing.T) {
	store := storeWith(map[string][]float32{
		"a.jpg": {0.9, 0.1, 0.3},
		"b.jpg": {0.2, 0.8, 0.1},
		"c.jpg": {0.4, 0.4, 0.9},
	}, "a.jpg", "b.jpg", "c.jpg")
	engine := NewEngine(store, nil)
	q := []float32{0.3, 0.7, 0.2}

	ranked := func(query []float32) []string {
		t.Helper()
		matches, err := engine.SearchTopK(context.Background(), query, 3)
		if err != nil {
			t.Fatal(err)
		}
		out := make([]string, len(matches))
		for i, m := range matches {
			out[i] = m.Record.FilePath
		}
		return out
	}

	want := ranked(q)
	for _, k := range []float32{0.01, 2, 1000} {
		scaled := make([]float32, len(q))
		for i, v := range q {
			scaled[i] = v * k
		}
		got := ranked(scaled)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("scale %v: got %v, want %v", k, got, want)
				break
			}
		}
	}
	if want[0] != "b.jpg" {
		t.Errorf("expected b.jpg first, got %v", want)
	}
}

func TestSearch_TiesKeepFirst(t *testing.T) {
	store := storeWith(map[string][]float32{"first.jpg": {1, 1}, "second.jpg": {2, 2}}, "first.jpg", "second.jpg")
	match, err := NewEngine(store, nil).Search(context.Background(), []float32{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if match.Record.FilePath != "first.jpg" {
		t.Errorf("expected first maximum, got %s", match.Record.FilePath)
	}
}

func TestSearch_ZeroNormScoresZero(t *testing.T) {
	store := storeWith(map[string][]float32{"zero.jpg": {0, 0}, "neg.jpg": {-1, 0}}, "zero.jpg", "neg.jpg")
	matches, err := NewEngine(store, nil).SearchTopK(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].Record.FilePath != "zero.jpg" || matches[0].Score != 0 || matches[1].Score != -1 {
		t.Errorf("unexpected ranking %+v", matches)
	}
}

func TestSearchTopK(t *testing.T) {
	store := storeWith(map[string][]float32{
		"a.jpg": {1, 0},
		"b.jpg": {0.7, 0.7},
		"c.jpg": {0, 1},
	}, "c.jpg", "a.jpg", "b.jpg")
	engine := NewEngine(store, nil)

	matches, err := engine.SearchTopK(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].Record.FilePath != "a.jpg" || matches[1].Record.FilePath != "b.jpg" {
		t.Errorf("unexpected top 2 %+v", matches)
	}

	for name, tc := range map[string]struct {
		q []float32
		k int
	}{
		"empty query": {nil, 1},
		"zero k":      {[]float32{1, 0}, 0},
	} {
		if _, err := engine.SearchTopK(context.Background(), tc.q, tc.k); !apperr.Is(err, apperr.CodeInvalid) {
			t.Errorf("%s: expected invalid input, got %v", name, err)
		}
	}
}

func TestSearch_StorageError(t *testing.T) {
	store := mock.NewMockPhotoStore()
	store.FindError = apperr.Storage("scan failed", errors.New("closed"))
	if _, err := NewEngine(store, nil).Search(context.Background(), []float32{1}); !apperr.Is(err, apperr.CodeStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestIndexedEngine(t *testing.T) {
	store := storeWith(map[string][]float32{"x.jpg": {1, 0}, "y.jpg": {0, 1}}, "x.jpg", "y.jpg")

	t.Run("uses index candidates", func(t *testing.T) {
		searcher := &mock.MockVectorSearcher{Store: store}
		match, err := NewIndexedEngine(store, searcher, nil).Search(context.Background(), []float32{0, 1})
		if err != nil {
			t.Fatal(err)
		}
		if match.Record.FilePath != "y.jpg" || searcher.Calls != 1 {
			t.Errorf("got %+v after %d calls", match, searcher.Calls)
		}
	})

	t.Run("falls back on index failure", func(t *testing.T) {
		searcher := &mock.MockVectorSearcher{Store: store, NearestError: errors.New("index corrupt")}
		match, err := NewIndexedEngine(store, searcher, nil).Search(context.Background(), []float32{1, 0})
		if err != nil {
			t.Fatal(err)
		}
		if match.Record.FilePath != "x.jpg" {
			t.Errorf("got %+v", match)
		}
	})

	t.Run("no candidates scans and reports mismatch", func(t *testing.T) {
		searcher := &mock.MockVectorSearcher{Store: store}
		_, err := NewIndexedEngine(store, searcher, nil).Search(context.Background(), []float32{1, 0, 0})
		if !apperr.Is(err, apperr.CodeDimensionMismatch) {
			t.Errorf("expected dimension mismatch, got %v", err)
		}
	})

	t.Run("mixed dimensions report mismatch despite candidates", func(t *testing.T) {
		mixed := storeWith(map[string][]float32{"x.jpg": {1, 0}, "z.jpg": {1, 0, 0}}, "x.jpg", "z.jpg")
		searcher := &mock.MockVectorSearcher{Store: mixed}
		_, err := NewIndexedEngine(mixed, searcher, nil).Search(context.Background(), []float32{1, 0})
		if !apperr.Is(err, apperr.CodeDimensionMismatch) {
			t.Errorf("expected dimension mismatch, got %v", err)
		}
		if searcher.Calls != 0 {
			t.Errorf("expected index to be skipped, got %d calls", searcher.Calls)
		}
	})

	t.Run("falls back when dimension check fails", func(t *testing.T) {
		searcher := &mock.MockVectorSearcher{Store: store, DimensionsError: errors.New("connection reset")}
		match, err := NewIndexedEngine(store, searcher, nil).Search(context.Background(), []float32{0, 1})
		if err != nil {
			t.Fatal(err)
		}
		if match.Record.FilePath != "y.jpg" || searcher.Calls != 0 {
			t.Errorf("got %+v after %d calls", match, searcher.Calls)
		}
	})
}

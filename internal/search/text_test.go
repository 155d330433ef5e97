package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database/mock"
	"github.com/kozaktomas/photo-story/internal/history"
)

type stubTextEncoder struct {
	vectors map[string][]float32
	got     []string
	err     error
}

func (s *stubTextEncoder) ComputeTextEmbedding(_ context.Context, text string) ([]float32, error) {
	s.got = append(s.got, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

type stubTranslator struct {
	out string
	err error
}

func (s *stubTranslator) Translate(_ context.Context, text string) (string, error) {
	if s.err != nil {
		return text, s.err
	}
	return s.out, nil
}

func TestTextSearcher(t *testing.T) {
	store := storeWith(map[string][]float32{"beach.jpg": {1, 0}, "forest.jpg": {0, 1}}, "beach.jpg", "forest.jpg")
	engine := NewEngine(store, nil)

	t.Run("records history and ranks", func(t *testing.T) {
		ledger := history.NewLedger(mock.NewMockPreferenceStore(), 10, nil)
		enc := &stubTextEncoder{vectors: map[string][]float32{"beach": {1, 0}}}

		matches, err := NewTextSearcher(engine, enc, nil, ledger, nil).Search(context.Background(), "  beach ", "/thumbs/b.jpg", 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(matches) != 1 || matches[0].Record.FilePath != "beach.jpg" {
			t.Errorf("got %+v", matches)
		}

		items, _ := ledger.List(context.Background())
		if len(items) != 1 || items[0].Query != "beach" || items[0].ImagePath != "/thumbs/b.jpg" {
			t.Errorf("history = %+v", items)
		}
	})

	t.Run("normalizes to NFC", func(t *testing.T) {
		enc := &stubTextEncoder{vectors: map[string][]float32{"caf\u00e9": {1, 0}}}
		if _, err := NewTextSearcher(engine, enc, nil, nil, nil).Search(context.Background(), "cafe\u0301", "", 1); err != nil {
			t.Fatal(err)
		}
		if enc.got[0] != "caf\u00e9" {
			t.Errorf("encoder got %q", enc.got[0])
		}
	})

	t.Run("translates before encoding", func(t *testing.T) {
		ledger := history.NewLedger(mock.NewMockPreferenceStore(), 10, nil)
		enc := &stubTextEncoder{vectors: map[string][]float32{"forest": {0, 1}}}
		tr := &stubTranslator{out: "forest"}

		matches, err := NewTextSearcher(engine, enc, tr, ledger, nil).Search(context.Background(), "les", "", 1)
		if err != nil {
			t.Fatal(err)
		}
		if matches[0].Record.FilePath != "forest.jpg" {
			t.Errorf("got %+v", matches)
		}
		items, _ := ledger.List(context.Background())
		if items[0].Query != "les" {
			t.Errorf("history should keep the original query, got %q", items[0].Query)
		}
	})

	t.Run("translation failure uses original text", func(t *testing.T) {
		enc := &stubTextEncoder{vectors: map[string][]float32{"beach": {1, 0}}}
		tr := &stubTranslator{err: errors.New("quota")}
		if _, err := NewTextSearcher(engine, enc, tr, nil, nil).Search(context.Background(), "beach", "", 1); err != nil {
			t.Fatal(err)
		}
		if enc.got[0] != "beach" {
			t.Errorf("encoder got %q", enc.got[0])
		}
	})

	t.Run("errors", func(t *testing.T) {
		s := NewTextSearcher(engine, &stubTextEncoder{}, nil, nil, nil)
		if _, err := s.Search(context.Background(), " ", "", 1); !apperr.Is(err, apperr.CodeInvalid) {
			t.Errorf("expected invalid input, got %v", err)
		}

		failing := NewTextSearcher(engine, &stubTextEncoder{err: errors.New("down")}, nil, nil, nil)
		if _, err := failing.Search(context.Background(), "beach", "", 1); err == nil {
			t.Error("expected encoder error")
		}
	})

	t.Run("history failure does not fail search", func(t *testing.T) {
		prefs := mock.NewMockPreferenceStore()
		prefs.SetError = errors.New("read only")
		ledger := history.NewLedger(prefs, 10, nil)
		enc := &stubTextEncoder{vectors: map[string][]float32{"beach": {1, 0}}}
		if _, err := NewTextSearcher(engine, enc, nil, ledger, nil).Search(context.Background(), "beach", "", 1); err != nil {
			t.Errorf("unexpected error %v", err)
		}
	})
}

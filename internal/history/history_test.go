package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/database/mock"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func item(query string, minutes int) database.SearchHistoryItem {
	return database.SearchHistoryItem{Query: query, Timestamp: base.Add(time.Duration(minutes) * time.Minute)}
}

func queries(items []database.SearchHistoryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Query
	}
	return out
}

func TestRecord_IdempotentOnQuery(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(mock.NewMockPreferenceStore(), 10, nil)

	for _, it := range []database.SearchHistoryItem{item("beach", 1), item("mountain", 2), item("beach", 3)} {
		if err := l.Record(ctx, it); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	items, err := l.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 entries, got %v", queries(items))
	}
	if items[0].Query != "beach" || !items[0].Timestamp.Equal(base.Add(3*time.Minute)) {
		t.Errorf("expected promoted beach first, got %+v", items[0])
	}
	if items[1].Query != "mountain" {
		t.Errorf("second entry = %q", items[1].Query)
	}
}

func TestRecord_Capacity(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(mock.NewMockPreferenceStore(), 0, nil)
	if l.Capacity() != DefaultCapacity {
		t.Fatalf("capacity = %d", l.Capacity())
	}

	for i := range 25 {
		if err := l.Record(ctx, item(fmt.Sprintf("q%d", i), i)); err != nil {
			t.Fatalf("Record: %v", err)
		}
		items, err := l.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) > DefaultCapacity {
			t.Fatalf("ledger grew to %d", len(items))
		}
	}

	items, _ := l.List(ctx)
	if items[0].Query != "q24" || items[len(items)-1].Query != "q15" {
		t.Errorf("unexpected window %v", queries(items))
	}
}

func TestRecord_Validation(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(mock.NewMockPreferenceStore(), 10, nil)
	if err := l.Record(ctx, database.SearchHistoryItem{Query: "   "}); !apperr.Is(err, apperr.CodeInvalid) {
		t.Errorf("expected invalid input, got %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	if err := l.Record(ctx, database.SearchHistoryItem{Query: " sunset ", ImagePath: "/p/a.jpg"}); err != nil {
		t.Fatal(err)
	}
	items, _ := l.List(ctx)
	if items[0].Query != "sunset" || !items[0].Timestamp.Equal(now) || items[0].ImagePath != "/p/a.jpg" {
		t.Errorf("unexpected entry %+v", items[0])
	}
}

func TestList_SortsByTimestamp(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockPreferenceStore()
	store.SetPreference(ctx, database.PreferenceSearchHistory,
		`[{"query":"old","timestamp":"2024-01-01T00:00:00Z"},{"query":"new","timestamp":"2024-06-01T00:00:00Z"}]`)

	items, err := NewLedger(store, 10, nil).List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := queries(items); len(got) != 2 || got[0] != "new" || got[1] != "old" {
		t.Errorf("got %v", got)
	}
}

func TestLedger_CorruptAndClear(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockPreferenceStore()
	store.SetPreference(ctx, database.PreferenceSearchHistory, "{not json")
	l := NewLedger(store, 10, nil)

	items, err := l.List(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty list, got %v, %v", items, err)
	}

	if err := l.Record(ctx, item("lake", 0)); err != nil {
		t.Fatal(err)
	}
	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	items, _ = l.List(ctx)
	if len(items) != 0 {
		t.Errorf("expected cleared ledger, got %v", queries(items))
	}
}

func TestLedger_StorageErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	store := mock.NewMockPreferenceStore()
	store.SetError = boom
	if err := NewLedger(store, 10, nil).Record(ctx, item("a", 0)); !apperr.Is(err, apperr.CodeStorage) {
		t.Errorf("Record: expected storage error, got %v", err)
	}

	store = mock.NewMockPreferenceStore()
	store.GetError = boom
	if _, err := NewLedger(store, 10, nil).List(ctx); !apperr.Is(err, apperr.CodeStorage) {
		t.Errorf("List: expected storage error, got %v", err)
	}

	store = mock.NewMockPreferenceStore()
	store.DeleteError = boom
	if err := NewLedger(store, 10, nil).Clear(ctx); !apperr.Is(err, apperr.CodeStorage) {
		t.Errorf("Clear: expected storage error, got %v", err)
	}
}

func TestRecord_Concurrent(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(mock.NewMockPreferenceStore(), 10, nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := l.Record(ctx, item(fmt.Sprintf("query-%d", n), n)); err != nil {
				t.Errorf("Record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	items, err := l.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 8 {
		t.Errorf("lost entries under concurrency: %v", queries(items))
	}
}

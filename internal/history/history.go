// Package history keeps the bounded list of recent text searches.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
)

// DefaultCapacity is the number of searches kept when none is configured.
const DefaultCapacity = 10

// Ledger stores recent searches newest-first under a single preference key.
// Entries are unique by query text; recording a query again promotes it.
type Ledger struct {
	store    database.PreferenceStore
	capacity int
	logger   *slog.Logger
	now      func() time.Time

	// mu guards the whole load-modify-save sequence.
	mu sync.Mutex
}

// NewLedger creates a ledger. A non-positive capacity uses DefaultCapacity.
func NewLedger(store database.PreferenceStore, capacity int, logger *slog.Logger) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, capacity: capacity, logger: logger, now: time.Now}
}

// Capacity returns the maximum number of kept entries.
func (l *Ledger) Capacity() int {
	return l.capacity
}

// Record adds item at the front, replacing any entry with the same query.
func (l *Ledger) Record(ctx context.Context, item database.SearchHistoryItem) error {
	item.Query = strings.TrimSpace(item.Query)
	if item.Query == "" {
		return apperr.Invalid("search query is required")
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.load(ctx)
	if err != nil {
		return err
	}

	updated := make([]database.SearchHistoryItem, 0, len(items)+1)
	updated = append(updated, item)
	for _, existing := range items {
		if existing.Query != item.Query {
			updated = append(updated, existing)
		}
	}
	if len(updated) > l.capacity {
		updated = updated[:l.capacity]
	}

	return l.save(ctx, updated)
}

// List returns the entries, most recent first.
func (l *Ledger) List(ctx context.Context) ([]database.SearchHistoryItem, error) {
	l.mu.Lock()
	items, err := l.load(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > l.capacity {
		items = items[:l.capacity]
	}
	return items, nil
}

// Clear removes every entry.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.DeletePreference(ctx, database.PreferenceSearchHistory); err != nil {
		return apperr.Storage("failed to clear search history", err)
	}
	return nil
}

func (l *Ledger) load(ctx context.Context) ([]database.SearchHistoryItem, error) {
	raw, found, err := l.store.GetPreference(ctx, database.PreferenceSearchHistory)
	if err != nil {
		return nil, apperr.Storage("failed to load search history", err)
	}
	items := []database.SearchHistoryItem{}
	if !found || raw == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// A corrupt slot is overwritten by the next Record
		l.logger.Warn("discarding unreadable search history", "error", err)
		return []database.SearchHistoryItem{}, nil
	}
	return items, nil
}

func (l *Ledger) save(ctx context.Context, items []database.SearchHistoryItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "failed to encode search history", err)
	}
	if err := l.store.SetPreference(ctx, database.PreferenceSearchHistory, string(data)); err != nil {
		return apperr.Storage("failed to save search history", err)
	}
	return nil
}

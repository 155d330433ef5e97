// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/kozaktomas/photo-story/internal/database"
)

// MockPhotoStore is an in-memory implementation of database.PhotoStore
type MockPhotoStore struct {
	mu     sync.RWMutex
	photos []database.PhotoRecord
	nextID int64

	// Error injection
	GetError              error
	ExistsError           error
	FindError             error
	CountError            error
	InsertError           error
	DeleteError           error
	DistinctDatesError    error
	InsertCalls           int
	ExistsByPathCallPaths []string
}

var _ database.PhotoStore = (*MockPhotoStore)(nil)

// NewMockPhotoStore creates a new empty mock photo store
func NewMockPhotoStore() *MockPhotoStore {
	return &MockPhotoStore{nextID: 1}
}

// clone deep-copies a record so callers never share slices with the store.
func clone(p database.PhotoRecord) database.PhotoRecord {
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	if p.Coordinates != nil {
		c := *p.Coordinates
		p.Coordinates = &c
	}
	p.DetectedObjects = slices.Clone(p.DetectedObjects)
	p.Embedding = slices.Clone(p.Embedding)
	return p
}

// AddPhoto stores a record directly and returns its assigned ID
func (m *MockPhotoStore) AddPhoto(p database.PhotoRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(p)
}

func (m *MockPhotoStore) addLocked(p database.PhotoRecord) int64 {
	p = clone(p)
	p.ID = m.nextID
	m.nextID++
	m.photos = append(m.photos, p)
	return p.ID
}

// Photos returns a copy of every stored record
func (m *MockPhotoStore) Photos() []database.PhotoRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(database.PhotoRecord) bool { return true })
}

func (m *MockPhotoStore) filterLocked(keep func(database.PhotoRecord) bool) []database.PhotoRecord {
	out := []database.PhotoRecord{}
	for _, p := range m.photos {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

// Insert stores a photo
func (m *MockPhotoStore) Insert(ctx context.Context, photo *database.PhotoRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	id := m.addLocked(*photo)
	photo.ID = id
	return id, nil
}

// InsertBatch stores all photos or none
func (m *MockPhotoStore) InsertBatch(ctx context.Context, photos []*database.PhotoRecord) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return nil, m.InsertError
	}
	ids := make([]int64, 0, len(photos))
	for _, p := range photos {
		id := m.addLocked(*p)
		p.ID = id
		ids = append(ids, id)
	}
	return ids, nil
}

// Get retrieves a photo by ID
func (m *MockPhotoStore) Get(ctx context.Context, id int64) (*database.PhotoRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.photos {
		if p.ID == id {
			c := clone(p)
			return &c, nil
		}
	}
	return nil, nil
}

// ExistsByPath checks whether a photo with the path exists
func (m *MockPhotoStore) ExistsByPath(ctx context.Context, filePath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsByPathCallPaths = append(m.ExistsByPathCallPaths, filePath)
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	for _, p := range m.photos {
		if p.FilePath == filePath {
			return true, nil
		}
	}
	return false, nil
}

// FindByDate returns photos whose date starts with date
func (m *MockPhotoStore) FindByDate(ctx context.Context, date string) ([]database.PhotoRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(p database.PhotoRecord) bool {
		return p.DateTaken != "" && strings.HasPrefix(p.DateTaken, date)
	}), nil
}

// FindByHashtag returns photos whose hashtags contain tag
func (m *MockPhotoStore) FindByHashtag(ctx context.Context, tag string) ([]database.PhotoRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterLocked(func(p database.PhotoRecord) bool {
		return p.Hashtags != "" && strings.Contains(p.Hashtags, tag)
	}), nil
}

// FindAll returns all photos ordered by ID
func (m *MockPhotoStore) FindAll(ctx context.Context) ([]database.PhotoRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	return m.Photos(), nil
}

// DistinctDates returns the distinct day prefixes, ascending
func (m *MockPhotoStore) DistinctDates(ctx context.Context) ([]string, error) {
	if m.DistinctDatesError != nil {
		return nil, m.DistinctDatesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	dates := []string{}
	for i := range m.photos {
		day := m.photos[i].Day()
		if day == "" {
			continue
		}
		if _, ok := seen[day]; !ok {
			seen[day] = struct{}{}
			dates = append(dates, day)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// Count returns the number of photos
func (m *MockPhotoStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.photos), nil
}

// DeleteAll removes every photo
func (m *MockPhotoStore) DeleteAll(ctx context.Context) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = nil
	return nil
}

// DeleteDuplicates keeps the first (lowest ID) photo per path
func (m *MockPhotoStore) DeleteDuplicates(ctx context.Context) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	kept := m.photos[:0]
	var removed int64
	for _, p := range m.photos {
		if _, ok := seen[p.FilePath]; ok {
			removed++
			continue
		}
		seen[p.FilePath] = struct{}{}
		kept = append(kept, p)
	}
	m.photos = kept
	return removed, nil
}

// MockPreferenceStore is an in-memory implementation of database.PreferenceStore
type MockPreferenceStore struct {
	mu     sync.RWMutex
	values map[string]string

	// Error injection
	GetError    error
	SetError    error
	DeleteError error
}

var _ database.PreferenceStore = (*MockPreferenceStore)(nil)

// NewMockPreferenceStore creates a new empty mock preference store
func NewMockPreferenceStore() *MockPreferenceStore {
	return &MockPreferenceStore{values: make(map[string]string)}
}

// GetPreference returns the value for key
func (m *MockPreferenceStore) GetPreference(ctx context.Context, key string) (string, bool, error) {
	if m.GetError != nil {
		return "", false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// SetPreference stores value under key
func (m *MockPreferenceStore) SetPreference(ctx context.Context, key, value string) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// DeletePreference removes key
func (m *MockPreferenceStore) DeletePreference(ctx context.Context, key string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// MockVectorSearcher returns candidates from a MockPhotoStore by exact distance
type MockVectorSearcher struct {
	Store *MockPhotoStore

	// Error injection
	NearestError    error
	DimensionsError error
	Calls           int
}

var _ database.VectorSearcher = (*MockVectorSearcher)(nil)

// NearestByEmbedding returns the k photos with the smallest cosine distance
func (m *MockVectorSearcher) NearestByEmbedding(ctx context.Context, query []float32, k int) ([]database.PhotoRecord, error) {
	m.Calls++
	if m.NearestError != nil {
		return nil, m.NearestError
	}
	photos := m.Store.Photos()
	candidates := photos[:0]
	for _, p := range photos {
		if p.Embedding != nil && len(p.Embedding) == len(query) {
			candidates = append(candidates, p)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return database.CosineDistance(query, candidates[i].Embedding) < database.CosineDistance(query, candidates[j].Embedding)
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// HasOtherDimensions reports whether a stored embedding is not dim long
func (m *MockVectorSearcher) HasOtherDimensions(ctx context.Context, dim int) (bool, error) {
	if m.DimensionsError != nil {
		return false, m.DimensionsError
	}
	for _, p := range m.Store.Photos() {
		if p.Embedding != nil && len(p.Embedding) != dim {
			return true, nil
		}
	}
	return false, nil
}

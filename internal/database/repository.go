package database

import (
	"context"
)

// PhotoReader provides read-only access to enriched photos.
type PhotoReader interface {
	// Get retrieves a photo by ID, returns nil if not found
	Get(ctx context.Context, id int64) (*PhotoRecord, error)
	// ExistsByPath reports whether any record has the given file path.
	// The answer is advisory: a concurrent insert may follow it.
	ExistsByPath(ctx context.Context, filePath string) (bool, error)
	// FindByDate returns records whose date_taken starts with date, unordered
	FindByDate(ctx context.Context, date string) ([]PhotoRecord, error)
	// FindByHashtag returns records whose hashtags contain tag
	FindByHashtag(ctx context.Context, tag string) ([]PhotoRecord, error)
	// FindAll returns every record ordered by ID
	FindAll(ctx context.Context) ([]PhotoRecord, error)
	// DistinctDates returns the distinct yyyy-MM-dd prefixes, ascending
	DistinctDates(ctx context.Context) ([]string, error)
	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)
}

// PhotoWriter provides write access to enriched photos.
type PhotoWriter interface {
	// Insert stores one record with a single statement and returns its ID.
	Insert(ctx context.Context, photo *PhotoRecord) (int64, error)
	// InsertBatch stores all records in one transaction.
	InsertBatch(ctx context.Context, photos []*PhotoRecord) ([]int64, error)
	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error
	// DeleteDuplicates keeps the lowest ID per file path and returns how many rows were removed.
	DeleteDuplicates(ctx context.Context) (int64, error)
}

// PhotoStore is the full query and mutation surface over photo records.
type PhotoStore interface {
	PhotoReader
	PhotoWriter
}

// PreferenceStore is a small durable key-value slot.
type PreferenceStore interface {
	// GetPreference returns the stored value and whether the key exists
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}

// VectorSearcher is implemented by backends that keep an approximate
// nearest-neighbor index over photo embeddings.
type VectorSearcher interface {
	// NearestByEmbedding returns up to k candidate records closest to query.
	// Candidates are unscored; callers re-rank them exactly.
	NearestByEmbedding(ctx context.Context, query []float32, k int) ([]PhotoRecord, error)
	// HasOtherDimensions reports whether any stored embedding has a length
	// other than dim. Such rows never appear among the candidates.
	HasOtherDimensions(ctx context.Context, dim int) (bool, error)
}

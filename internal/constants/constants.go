// Package constants provides shared constants used by the CLI and the HTTP API.
package constants

// Listing constants
const (
	// DefaultPageSize is the default number of photos returned by list endpoints
	DefaultPageSize = 100

	// MaxPageSize caps the limit query parameter
	MaxPageSize = 1000
)

// Search constants
const (
	// MaxTopK caps the number of matches a single search may return
	MaxTopK = 100
)

// Enrichment job constants
const (
	// MaxJobPhotos is the largest batch accepted by one enrichment job
	MaxJobPhotos = 10000

	// FinishedJobRetention is how many finished jobs the job manager keeps
	FinishedJobRetention = 50
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for SSE listener channels
	EventChannelBuffer = 100
)

// HTTP constants
const (
	// MaxRequestBodySize limits JSON request bodies (1MB)
	MaxRequestBodySize = 1 << 20
)

package database

// PreferenceSearchHistory is the preference key holding the search history.
const PreferenceSearchHistory = "search_history"

// HNSW index parameters for photo embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// so exact re-ranking still has enough to choose from.
	HNSWSearchMultiplier = 3
)

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSWIndexMetadata is written next to a saved graph to detect stale indexes.
type HNSWIndexMetadata struct {
	PhotoCount int64     `json:"photo_count"`
	MaxPhotoID int64     `json:"max_photo_id"`
	Dimension  int       `json:"dimension"`
	BuildTime  time.Time `json:"build_time"`
	Version    int       `json:"version"`
}

const hnswMetadataVersion = 1

// ErrIndexNotInitialized is returned when searching an index with no graph.
var ErrIndexNotInitialized = errors.New("index not initialized")

// HNSWIndex wraps the HNSW graph for photo embedding search, keyed by photo ID.
type HNSWIndex struct {
	graph      *hnsw.Graph[int64]
	savedGraph *hnsw.SavedGraph[int64]
	live       map[int64]struct{} // IDs still present in the store
	dimension  int
	mu         sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{live: make(map[int64]struct{})}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index contents with every photo that has an embedding.
func (h *HNSWIndex) Build(photos []PhotoRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.savedGraph = nil
	h.dimension = 0
	h.live = make(map[int64]struct{}, len(photos))

	for i := range photos {
		_ = h.addLocked(photos[i].ID, photos[i].Embedding)
	}
}

// Add inserts a single embedding. Embeddings whose dimension differs from
// the indexed ones are skipped and reported.
func (h *HNSWIndex) Add(id int64, embedding []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addLocked(id, embedding)
}

func (h *HNSWIndex) addLocked(id int64, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}
	if h.dimension != 0 && len(embedding) != h.dimension {
		return fmt.Errorf("embedding for photo %d has dimension %d, index has %d", id, len(embedding), h.dimension)
	}
	if h.graph == nil {
		if h.savedGraph != nil {
			h.graph = h.savedGraph.Graph
			h.savedGraph = nil
		} else {
			h.graph = newGraph()
		}
	}
	h.dimension = len(embedding)
	h.graph.Add(hnsw.MakeNode(id, embedding))
	h.live[id] = struct{}{}
	return nil
}

// Search finds up to k nearest live IDs and their cosine distances.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		return nil, nil, ErrIndexNotInitialized
	}
	if h.dimension != 0 && len(query) != h.dimension {
		return nil, nil, fmt.Errorf("query dimension %d, index has %d", len(query), h.dimension)
	}

	var neighbors []hnsw.Node[int64]
	if h.savedGraph != nil {
		neighbors = h.savedGraph.Search(query, k*HNSWSearchMultiplier)
	} else {
		neighbors = h.graph.Search(query, k*HNSWSearchMultiplier)
	}

	ids := make([]int64, 0, k)
	distances := make([]float64, 0, k)
	for _, n := range neighbors {
		if _, ok := h.live[n.Key]; !ok {
			continue
		}
		ids = append(ids, n.Key)
		distances = append(distances, CosineDistance(query, n.Value))
		if len(ids) == k {
			break
		}
	}
	return ids, distances, nil
}

// Delete hides an ID from search results. HNSW has no true deletion.
func (h *HNSWIndex) Delete(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.live, id)
}

// Reset drops the whole graph.
func (h *HNSWIndex) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = nil
	h.savedGraph = nil
	h.dimension = 0
	h.live = make(map[int64]struct{})
}

// Count returns the number of live indexed photos.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.live)
}

// IsEmpty returns true if no graph is loaded.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil && h.savedGraph == nil
}

// Save persists the graph and its metadata. An empty index removes both files.
func (h *HNSWIndex) Save(path string, metadata HNSWIndexMetadata) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("creating HNSW index file: %w", err)
	}
	defer f.Close()

	if h.savedGraph != nil {
		err = h.savedGraph.Export(f)
	} else {
		err = h.graph.Export(f)
	}
	if err != nil {
		return fmt.Errorf("exporting HNSW graph: %w", err)
	}

	metadata.Version = hnswMetadataVersion
	metadata.Dimension = h.dimension
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", data, 0600); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	return nil
}

// Load reads a saved graph. live lists the photo IDs that still exist in the
// store. A missing file leaves the index empty.
func (h *HNSWIndex) Load(path string, live []int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("loading HNSW index: %w", err)
	}
	meta, err := LoadHNSWMetadata(path)
	if err != nil {
		return err
	}

	h.graph = nil
	h.savedGraph = saved
	h.dimension = meta.Dimension
	h.live = make(map[int64]struct{}, len(live))
	for _, id := range live {
		h.live[id] = struct{}{}
	}
	return nil
}

// LoadHNSWMetadata loads metadata from the .meta file next to path.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("reading metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	return metadata, nil
}

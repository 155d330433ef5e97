package database

import (
	"fmt"
	"math"

	"github.com/kozaktomas/photo-story/internal/apperr"
)

// CosineSimilarity computes q·v / (|q||v|).
// Vectors of different length are an error. A zero-norm vector scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, apperr.New(apperr.CodeDimensionMismatch,
			fmt.Sprintf("embedding dimensions differ: %d vs %d", len(a), len(b)))
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity, nil
}

// CosineDistance is 1 - CosineSimilarity. Invalid input yields the maximum distance 2.
func CosineDistance(a, b []float32) float64 {
	if len(a) == 0 {
		return 2.0
	}
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 2.0
	}
	return 1 - sim
}

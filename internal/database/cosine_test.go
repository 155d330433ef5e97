package database

import (
	"math"
	"testing"

	"github.com/kozaktomas/photo-story/internal/apperr"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 2}, []float32{-1, -2}, -1},
		{"zero query", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero stored", []float32{1, 1}, []float32{0, 0}, 0},
		{"empty", []float32{}, []float32{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CosineSimilarity(tc.a, tc.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosineSimilarity_ScaleInvariant(t *testing.T) {
	q := []float32{0.3, -1.2, 4}
	v := []float32{2, 0.5, 1}
	base, err := CosineSimilarity(q, v)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []float32{0.001, 2, 1000} {
		scaled := make([]float32, len(q))
		for i := range q {
			scaled[i] = q[i] * c
		}
		got, err := CosineSimilarity(scaled, v)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-base) > 1e-6 {
			t.Errorf("scale %v: got %v, want %v", c, got, base)
		}
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	if !apperr.Is(err, apperr.CodeDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("expected 0, got %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{1}); d != 2 {
		t.Errorf("expected 2 for mismatch, got %v", d)
	}
	if d := CosineDistance(nil, nil); d != 2 {
		t.Errorf("expected 2 for empty, got %v", d)
	}
}

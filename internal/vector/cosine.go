package vector

import (
	"math"

	"github.com/reactivedb/reactive/internal/engineerr"
)

// CosineSimilarity computes (Σ aᵢbᵢ) / (√Σaᵢ² · √Σbᵢ²), returning 0 when
// either vector has zero norm (spec.md §4.5).
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, engineerr.Validation("embedding length mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// CosineDistance is 1 - CosineSimilarity, satisfying 0 <= d <= 2 and
// d(v, v) == 0 for any non-zero vector v (spec.md §8).
func CosineDistance(a, b []float64) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

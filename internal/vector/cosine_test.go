package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarityOfIdenticalVectorsIsOne(t *testing.T) {
	v := []float64{1, 2, 3}
	sim, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("expected similarity 1, got %v", sim)
	}
}

func TestCosineSimilarityOfOrthogonalVectorsIsZero(t *testing.T) {
	sim, err := CosineSimilarity([]float64{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if math.Abs(sim) > 1e-9 {
		t.Fatalf("expected similarity 0, got %v", sim)
	}
}

func TestCosineSimilarityZeroNormIsZero(t *testing.T) {
	sim, err := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim != 0 {
		t.Fatalf("expected similarity 0 for zero-norm vector, got %v", sim)
	}
}

func TestCosineSimilarityRejectsLengthMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3})
	if err == nil {
		t.Fatalf("expected an error for mismatched lengths")
	}
}

func TestCosineDistanceSelfIsZero(t *testing.T) {
	v := []float64{3, 4, 0}
	d, err := CosineDistance(v, v)
	if err != nil {
		t.Fatalf("CosineDistance: %v", err)
	}
	if math.Abs(d) > 1e-9 {
		t.Fatalf("expected distance 0 for identical vectors, got %v", d)
	}
}

func TestCosineDistanceOppositeVectorsIsTwo(t *testing.T) {
	d, err := CosineDistance([]float64{1, 0}, []float64{-1, 0})
	if err != nil {
		t.Fatalf("CosineDistance: %v", err)
	}
	if math.Abs(d-2) > 1e-9 {
		t.Fatalf("expected distance 2 for opposite vectors, got %v", d)
	}
}

func TestCosineDistanceStaysWithinZeroToTwo(t *testing.T) {
	pairs := [][2][]float64{
		{{1, 2, 3}, {4, -5, 6}},
		{{0.1, 0.2}, {0.3, -0.1}},
		{{1, 1, 1}, {1, 1, 1}},
	}
	for _, p := range pairs {
		d, err := CosineDistance(p[0], p[1])
		if err != nil {
			t.Fatalf("CosineDistance: %v", err)
		}
		if d < 0 || d > 2 {
			t.Fatalf("distance %v out of [0,2] range for %v, %v", d, p[0], p[1])
		}
	}
}

package core

import (
	"errors"
	"fmt"
	"math"
)

// CosineDistance returns 1 - cos(a, b), the metric pgvector's <=> operator computes.
// ok is false when the vectors differ in length, are empty, or either has zero norm;
// such a pair has no defined distance.
func CosineDistance(a, b []float32) (distance float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), true
}

// ErrDegenerateVector marks a vector with zero norm or a non-finite component.
var ErrDegenerateVector = errors.New("degenerate embedding vector")

// CheckVector rejects vectors that have no direction. Cosine distance is undefined for them.
func CheckVector(v []float32) error {
	var norm float64
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrDegenerateVector, i, x)
		}
		norm += f * f
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero norm", ErrDegenerateVector)
	}
	return nil
}

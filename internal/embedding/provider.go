// Package embedding turns text into vectors for semantic comparison.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Provider encodes text into a fixed-length vector.
// Implementations must be deterministic for identical input and safe for
// concurrent use once constructed.
type Provider interface {
	// Available reports whether Encode can be called at all.
	// Callers check it before every use.
	Available() bool
	Encode(ctx context.Context, text string) ([]float32, error)
}

// ErrUnavailable is returned by Encode on a provider that is switched off.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Unavailable is the Provider used when embeddings are disabled by config.
type Unavailable struct{}

var _ Provider = Unavailable{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Encode(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// A zero vector has no direction and yields 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.New("cosine similarity: empty vector")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity: dimension mismatch (%d vs %d)", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Float error can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

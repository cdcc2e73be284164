package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable is returned when embeddings cannot be produced and callers should fall back.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider turns a batch of texts into same-length, same-order vectors, or fails.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cosine returns the cosine similarity of two vectors.
// ok is false for mismatched lengths and zero vectors.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0, false
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	return sim, true
}

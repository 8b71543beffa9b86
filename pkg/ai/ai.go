package ai

import (
	"context"
	"math"
)

// ModelMetrics contains accumulated usage counters from embedding requests.
type ModelMetrics struct {
	InputTokens int   `json:"input_tokens"`
	TotalTokens int   `json:"total_tokens"`
	Requests    int   `json:"requests"`
	DurationMs  int64 `json:"duration_ms"`
}

// Embedder produces vector embeddings for text inputs. Implementations
// wrap either a locally hosted model server or a remote API.
type Embedder interface {
	// Embed returns one vector per input, in input order.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)

	// Available probes whether the backend is reachable and able to
	// serve embedding requests. Callers use this to decide between
	// semantic matching and cheaper fallbacks.
	Available(ctx context.Context) bool

	ResetMetrics()
	GetMetrics() ModelMetrics
}

// Cosine returns the cosine similarity of two vectors, or 0 when either
// has zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Package embedding turns text into vectors: a remote HTTP embedder, a
// deterministic local pseudo-embedder, and a Provider that combines them.
package embedding

import "context"

// Embedder produces a vector embedding for text. Implementations may fail.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

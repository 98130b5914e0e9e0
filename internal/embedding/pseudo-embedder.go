package embedding

import (
	"context"
	"unicode/utf16"
)

const (
	// DefaultFallbackDimensions is the dimension of pseudo-embeddings.
	DefaultFallbackDimensions = 64

	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// PseudoEmbedder is a deterministic, dependency-free stand-in for a real
// embedding model. The same text always yields the same vector; the vector
// carries no semantic meaning.
type PseudoEmbedder struct {
	dimensions int
}

// NewPseudoEmbedder returns a pseudo-embedder of the given dimension.
// Non-positive dimensions fall back to DefaultFallbackDimensions.
func NewPseudoEmbedder(dimensions int) *PseudoEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultFallbackDimensions
	}
	return &PseudoEmbedder{dimensions: dimensions}
}

// Vector computes the pseudo-embedding of text.
//
// A running FNV-1a hash is updated with each UTF-16 code unit; the low 16 bits
// of the hash, scaled to [0,1], are added to slot i mod dim. The result is
// mean-centered.
func (e *PseudoEmbedder) Vector(text string) []float64 {
	out := make([]float64, e.dimensions)
	h := fnvOffset32
	for i, unit := range utf16.Encode([]rune(text)) {
		h ^= uint32(unit)
		h *= fnvPrime32
		out[i%e.dimensions] += float64(h&0xFFFF) / 0xFFFF
	}
	var sum float64
	for _, v := range out {
		sum += v
	}
	mean := sum / float64(e.dimensions)
	for i := range out {
		out[i] -= mean
	}
	return out
}

// Embed returns Vector(text). It never fails.
func (e *PseudoEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return e.Vector(text), nil
}

// Dimensions returns the embedding dimension.
func (e *PseudoEmbedder) Dimensions() int {
	return e.dimensions
}

// Package vector provides similarity helpers for embedding vectors.
//
// Vectors of different lengths are compared over the shorter length; a length
// mismatch is never an error.
package vector

import "math"

// Dot returns the sum of element-wise products over min(len(a), len(b)).
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean (L2) magnitude of a.
func Norm(a []float64) float64 {
	var sum float64
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b. It returns 0 when either
// vector has zero norm.
func Cosine(a, b []float64) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// L2Normalize returns a new vector with unit norm. A zero vector is returned
// as an unscaled copy.
func L2Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Package embedding turns short skill phrases into fixed-size vectors and
// compares them.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when two vectors of different sizes are compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder maps texts to L2-normalised vectors of a fixed dimension.
type Embedder interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}

// Centroid returns the normalised mean of the given vectors.
func Centroid(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dims := len(vectors[0])
	out := make([]float32, dims)
	for _, v := range vectors {
		if len(v) != dims {
			return nil, ErrDimensionMismatch
		}
		for i, x := range v {
			out[i] += x
		}
	}
	inv := 1 / float32(len(vectors))
	for i := range out {
		out[i] *= inv
	}
	return Normalize(out), nil
}

package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultHashedDims = 256

// Hashed is a deterministic bag of character trigrams and words projected into
// a fixed number of buckets with signed feature hashing. It needs no model
// files, so it is the default in development and tests.
type Hashed struct {
	dims int
}

// NewHashed returns a hashed embedder with the given dimension.
func NewHashed(dims int) *Hashed {
	if dims <= 0 {
		dims = defaultHashedDims
	}
	return &Hashed{dims: dims}
}

func (h *Hashed) Name() string    { return "hashed-ngram-v1" }
func (h *Hashed) Dimensions() int { return h.dims }

func (h *Hashed) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashed) vector(text string) []float32 {
	v := make([]float32, h.dims)
	for _, word := range words(text) {
		h.add(v, "w:"+word, 2)
		padded := []rune("#" + word + "#")
		if len(padded) < 3 {
			continue
		}
		for i := 0; i+3 <= len(padded); i++ {
			h.add(v, "g:"+string(padded[i:i+3]), 1)
		}
	}
	return Normalize(v)
}

func (h *Hashed) add(v []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#')
	})
}

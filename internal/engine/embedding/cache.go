package embedding

import (
	"context"
	"sync"
)

// Cached memoises vectors of an inner embedder. Safe for concurrent use.
type Cached struct {
	inner Embedder
	mu    sync.RWMutex
	items map[string][]float32
	max   int
}

// NewCached wraps inner with a cache holding at most max entries (0 = unbounded).
func NewCached(inner Embedder, max int) *Cached {
	return &Cached{inner: inner, items: make(map[string][]float32), max: max}
}

func (c *Cached) Name() string    { return c.inner.Name() }
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	c.mu.RLock()
	for i, t := range texts {
		if v, ok := c.items[t]; ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	c.mu.RUnlock()
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for j, v := range vectors {
		out[missingIdx[j]] = v
		if c.max > 0 && len(c.items) >= c.max {
			continue
		}
		c.items[missing[j]] = v
	}
	return out, nil
}

// Len reports the number of cached vectors.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	cache *lru.Cache[string, []float32]
}

// NewEmbeddingCache creates a new cache with the given capacity. Non-positive
// capacities fall back to 1000 entries.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1000
	}
	c, err := lru.New[string, []float32](capacity)
	if err != nil {
		c, _ = lru.New[string, []float32](1000)
	}
	return &EmbeddingCache{cache: c}
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	return c.cache.Get(key)
}

// Set stores the embedding for key, evicting the least recently used entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.cache.Add(key, value)
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	return c.cache.Len()
}

// CachedEmbedder serves repeated texts from an EmbeddingCache. Failures are not cached.
type CachedEmbedder struct {
	inner Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached embedding for text or asks the wrapped embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := checkVector(v, c.inner.Dimensions()); err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch sends only cache misses to the wrapped embedder, in one batch.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	fetched, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		if err := checkVector(fetched[j], c.inner.Dimensions()); err != nil {
			return nil, err
		}
		out[i] = fetched[j]
		c.cache.Set(missTexts[j], fetched[j])
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (c *CachedEmbedder) Close() error {
	return c.inner.Close()
}

package embedder

import (
	"context"
	"sync"
)

// CachedClient wraps a Client with an in-memory cache keyed by the exact
// input text. Repeated embeddings of identical texts, common when the same
// query is asked twice or chunks overlap, hit the cache instead of the
// backend.
type CachedClient struct {
	client Client

	mu    sync.RWMutex
	cache map[string][]float32

	hits   int64
	misses int64
}

// NewCachedClient creates a caching wrapper around the given client.
func NewCachedClient(client Client) *CachedClient {
	return &CachedClient{
		client: client,
		cache:  make(map[string][]float32),
	}
}

// Embed returns one vector per input text, serving cached entries where
// possible and embedding only the misses.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.RLock()
	for i, text := range texts {
		if v, ok := c.cache[text]; ok {
			vectors[i] = v
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	c.mu.RUnlock()

	c.mu.Lock()
	c.hits += int64(len(texts) - len(missing))
	c.misses += int64(len(missing))
	c.mu.Unlock()

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.client.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for j, v := range fresh {
		c.cache[missing[j]] = v
		vectors[missingIdx[j]] = v
	}
	c.mu.Unlock()

	return vectors, nil
}

// EmbedSingle returns the vector for a single text.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return EmbedSingle(ctx, c, text)
}

// Close closes the underlying client.
func (c *CachedClient) Close() error {
	return c.client.Close()
}

// Stats returns the cache hit and miss counters.
func (c *CachedClient) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Len returns the number of cached entries.
func (c *CachedClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

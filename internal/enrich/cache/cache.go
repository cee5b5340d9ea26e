// Package cache implements the embedding cache (C2): a bounded,
// TTL-expiring map from normalized query text to its embedding vector,
// with eviction done inline on insert rather than by a background sweep.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
)

// EmbedFunc computes the embedding for a single piece of text on a cache
// miss. It is typically runtime.Client.EmbedBatch called with one input.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

type entry struct {
	vector []float32
	ts     time.Time
}

// EmbeddingCache is safe for concurrent use. A miss never blocks another
// goroutine's hit; concurrent misses on the same key may compute the
// embedding more than once, and the last writer wins.
type EmbeddingCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string // insertion order, front is oldest

	maxSize int
	ttl     time.Duration
	embed   EmbedFunc

	hits   int64
	misses int64
}

// New constructs an EmbeddingCache. maxSize <= 0 disables the size bound;
// ttl <= 0 disables expiry.
func New(maxSize int, ttl time.Duration, embed EmbedFunc) *EmbeddingCache {
	return &EmbeddingCache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		embed:   embed,
	}
}

// NormalizeKey collapses whitespace, lowercases, trims, and caps the key
// length so that trivially-different queries ("Hi there", "hi  there ")
// share a cache entry.
func NormalizeKey(text string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			if lastSpace {
				continue
			}
			lastSpace = true
			b.WriteRune(' ')
			continue
		}
		lastSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	out := b.String()
	const maxKeyLen = 200
	if len(out) > maxKeyLen {
		out = out[:maxKeyLen]
	}
	return out
}

// GetOrCompute returns the cached embedding for text if present and
// unexpired, otherwise computes it via embed, stores it, and evicts the
// oldest entry if the cache is over its size bound. hit reports whether
// the value came from the cache.
func (c *EmbeddingCache) GetOrCompute(ctx context.Context, text string) (vector []float32, hit bool, err error) {
	key := NormalizeKey(text)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.ttl <= 0 || time.Since(e.ts) < c.ttl {
			c.mu.Unlock()
			atomic.AddInt64(&c.hits, 1)
			return e.vector, true, nil
		}
		delete(c.entries, key)
		c.removeFromOrderLocked(key)
	}
	c.mu.Unlock()

	atomic.AddInt64(&c.misses, 1)
	vector, err = c.embed(ctx, text)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = &entry{vector: vector, ts: time.Now()}
	c.evictIfNeededLocked()
	return vector, false, nil
}

func (c *EmbeddingCache) evictIfNeededLocked() {
	for c.maxSize > 0 && len(c.entries) > c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *EmbeddingCache) removeFromOrderLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Invalidate drops every cached entry.
func (c *EmbeddingCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order = nil
}

// Len returns the current number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit/miss counts since construction (Invalidate
// does not reset the counters, only the entries).
func (c *EmbeddingCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

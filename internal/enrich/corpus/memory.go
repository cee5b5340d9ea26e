// Package corpus implements CorpusReader backends for the vector index:
// an in-memory slice (default, and what tests use) and a Postgres-backed
// reader for the memory/chat/telegram sources.
package corpus

import (
	"context"
	"sync"

	"enrichcore/internal/enrich/index"
)

// InMemory is a CorpusReader backed by a mutex-guarded slice, populated by
// whatever out-of-scope ingestion pipeline produces chunks for this
// source. ReadAll returns a defensive copy so callers never observe a
// partially-mutated slice.
type InMemory struct {
	source index.Source

	mu     sync.RWMutex
	chunks []index.Chunk
}

// NewInMemory constructs an empty in-memory reader for the given source.
func NewInMemory(source index.Source) *InMemory {
	return &InMemory{source: source}
}

func (m *InMemory) Source() index.Source { return m.source }

func (m *InMemory) ReadAll(_ context.Context) ([]index.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]index.Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out, nil
}

// Add appends one chunk, as an ingestion pipeline would after embedding a
// new piece of text. Safe for concurrent use alongside ReadAll.
func (m *InMemory) Add(c index.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, c)
}

// Replace swaps the full chunk set in one step.
func (m *InMemory) Replace(chunks []index.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = chunks
}

// Package index implements the vector index (C3): an in-memory,
// cosine-similarity nearest-neighbor search over chunks drawn from one or
// more corpus sources, held as a row-major float32 matrix with a parallel
// metadata slice and swapped atomically on (re)load.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"enrichcore/internal/enrich/errs"
)

// Source identifies which corpus a chunk was read from.
type Source string

const (
	SourceMemory   Source = "memory"
	SourceChat     Source = "chat"
	SourceTelegram Source = "telegram"
)

// Metadata carries the non-vector fields of an indexed chunk.
type Metadata struct {
	Source    Source
	Text      string
	File      string
	StartLine int
	EndLine   int
	SessionID string
	StartTs   time.Time
	EndTs     time.Time
}

// Chunk is one unit read from a corpus: a vector plus its metadata.
type Chunk struct {
	Vector []float32
	Meta   Metadata
}

// CorpusReader reads every chunk currently available from one corpus
// source. Implementations are handed a long-lived handle prepared once and
// reused across reloads until the index is invalidated.
type CorpusReader interface {
	Source() Source
	ReadAll(ctx context.Context) ([]Chunk, error)
}

// Item is one scored retrieval hit.
type Item struct {
	Source Source
	Text   string
	Meta   Metadata
	Score  float64
}

// snapshot is the fully-built, read-only state swapped in atomically.
type snapshot struct {
	dim     int
	vectors []float32 // row-major n*dim, each row L2-normalized
	meta    []Metadata
}

// Index holds the current snapshot and reloads it from its readers when
// stale. Concurrent loads are permitted; the last writer to finish wins.
type Index struct {
	readers    []CorpusReader
	staleAfter time.Duration

	snap     atomic.Pointer[snapshot]
	loadedAt atomic.Int64 // unix nanoseconds of the last completed load
}

// New constructs an Index over the given readers. staleAfter <= 0 means
// the index never auto-reloads (only Invalidate or the first Search
// triggers a load).
func New(readers []CorpusReader, staleAfter time.Duration) *Index {
	return &Index{readers: readers, staleAfter: staleAfter}
}

// Invalidate forces the next Search to reload before searching.
func (ix *Index) Invalidate() {
	ix.loadedAt.Store(0)
}

// Search embeds nothing itself: queryVector must already be the caller's
// embedding of the query. It returns up to topK items with score >=
// minScore, restricted to sourceFilter when non-empty, sorted by
// descending score with ties broken by the order chunks were read in.
func (ix *Index) Search(ctx context.Context, queryVector []float32, topK int, minScore float64, sourceFilter map[Source]bool) ([]Item, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := ix.ensureFresh(ctx); err != nil {
		return nil, err
	}
	snap := ix.snap.Load()
	if snap == nil || snap.dim == 0 {
		return nil, nil
	}
	if len(queryVector) != snap.dim {
		return nil, fmt.Errorf("enrich: query vector dimension %d does not match index dimension %d: %w", len(queryVector), snap.dim, errs.ErrInvalidResponse)
	}
	qnorm := normalize(queryVector)

	type scored struct {
		idx   int
		score float64
	}
	n := len(snap.meta)
	candidates := make([]scored, 0, n)
	for i := 0; i < n; i++ {
		if len(sourceFilter) > 0 && !sourceFilter[snap.meta[i].Source] {
			continue
		}
		row := snap.vectors[i*snap.dim : (i+1)*snap.dim]
		score := dot(qnorm, row)
		if score < minScore {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: score})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	out := make([]Item, len(candidates))
	for i, c := range candidates {
		m := snap.meta[c.idx]
		out[i] = Item{Source: m.Source, Text: m.Text, Meta: m, Score: c.score}
	}
	return out, nil
}

func (ix *Index) ensureFresh(ctx context.Context) error {
	last := ix.loadedAt.Load()
	if last != 0 && (ix.staleAfter <= 0 || time.Since(time.Unix(0, last)) < ix.staleAfter) {
		return nil
	}
	return ix.reload(ctx)
}

func (ix *Index) reload(ctx context.Context) error {
	var chunks []Chunk
	for _, r := range ix.readers {
		rc, err := r.ReadAll(ctx)
		if err != nil {
			return fmt.Errorf("enrich: reading corpus %q: %w", r.Source(), errs.ErrCorpusUnavailable)
		}
		chunks = append(chunks, rc...)
	}

	dim := 0
	for _, c := range chunks {
		if len(c.Vector) > 0 {
			dim = len(c.Vector)
			break
		}
	}

	vectors := make([]float32, len(chunks)*dim)
	meta := make([]Metadata, len(chunks))
	for i, c := range chunks {
		meta[i] = c.Meta
		if len(c.Vector) != dim {
			continue
		}
		row := vectors[i*dim : (i+1)*dim]
		v := normalize(c.Vector)
		copy(row, v)
	}

	next := &snapshot{dim: dim, vectors: vectors, meta: meta}
	ix.snap.Store(next)
	ix.loadedAt.Store(time.Now().UnixNano())
	return nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

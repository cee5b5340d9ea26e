package index

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	src    Source
	chunks []Chunk
	calls  int
	mu     sync.Mutex
	err    error
}

func (f *fakeReader) Source() Source { return f.src }

func (f *fakeReader) ReadAll(_ context.Context) ([]Chunk, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func chunk(src Source, text string, vec []float32) Chunk {
	return Chunk{Vector: vec, Meta: Metadata{Source: src, Text: text}}
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	r := &fakeReader{src: SourceMemory, chunks: []Chunk{
		chunk(SourceMemory, "a", []float32{1, 0}),
		chunk(SourceMemory, "b", []float32{0, 1}),
		chunk(SourceMemory, "c", []float32{0.9, 0.1}),
	}}
	ix := New([]CorpusReader{r}, time.Hour)

	items, err := ix.Search(context.Background(), []float32{1, 0}, 2, 0, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "a", items[0].Text)
	require.Equal(t, "c", items[1].Text)
}

func TestSearch_MinScoreFilters(t *testing.T) {
	r := &fakeReader{src: SourceMemory, chunks: []Chunk{
		chunk(SourceMemory, "close", []float32{1, 0}),
		chunk(SourceMemory, "far", []float32{0, 1}),
	}}
	ix := New([]CorpusReader{r}, time.Hour)

	items, err := ix.Search(context.Background(), []float32{1, 0}, 10, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "close", items[0].Text)
}

func TestSearch_SourceFilter(t *testing.T) {
	mem := &fakeReader{src: SourceMemory, chunks: []Chunk{chunk(SourceMemory, "m", []float32{1, 0})}}
	chat := &fakeReader{src: SourceChat, chunks: []Chunk{chunk(SourceChat, "c", []float32{1, 0})}}
	ix := New([]CorpusReader{mem, chat}, time.Hour)

	items, err := ix.Search(context.Background(), []float32{1, 0}, 10, 0, map[Source]bool{SourceChat: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "c", items[0].Text)
}

func TestSearch_LoadsOnceUntilStale(t *testing.T) {
	r := &fakeReader{src: SourceMemory, chunks: []Chunk{chunk(SourceMemory, "a", []float32{1, 0})}}
	ix := New([]CorpusReader{r}, time.Hour)

	_, err := ix.Search(context.Background(), []float32{1, 0}, 10, 0, nil)
	require.NoError(t, err)
	_, err = ix.Search(context.Background(), []float32{1, 0}, 10, 0, nil)
	require.NoError(t, err)

	require.Equal(t, 1, r.callCount())
}

func TestInvalidate_ForcesReload(t *testing.T) {
	r := &fakeReader{src: SourceMemory, chunks: []Chunk{chunk(SourceMemory, "a", []float32{1, 0})}}
	ix := New([]CorpusReader{r}, time.Hour)

	_, _ = ix.Search(context.Background(), []float32{1, 0}, 10, 0, nil)
	ix.Invalidate()
	_, _ = ix.Search(context.Background(), []float32{1, 0}, 10, 0, nil)

	require.Equal(t, 2, r.callCount())
}

func TestSearch_EmptyIndex(t *testing.T) {
	r := &fakeReader{src: SourceMemory}
	ix := New([]CorpusReader{r}, time.Hour)

	items, err := ix.Search(context.Background(), []float32{1, 0}, 10, 0, nil)
	require.NoError(t, err)
	require.Empty(t, items)
}

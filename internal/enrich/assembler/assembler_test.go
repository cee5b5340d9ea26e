package assembler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"enrichcore/internal/enrich/cache"
	"enrichcore/internal/enrich/index"
	"enrichcore/internal/enrich/obs"
	"enrichcore/internal/enrich/router"
	"enrichcore/internal/enrich/session"
)

type staticReader struct {
	src    index.Source
	chunks []index.Chunk
}

func (s staticReader) Source() index.Source { return s.src }

func (s staticReader) ReadAll(_ context.Context) ([]index.Chunk, error) {
	return s.chunks, nil
}

type staticGenerator struct{ response string }

func (g staticGenerator) Generate(_ context.Context, _ string, _ bool) (string, error) {
	return g.response, nil
}

func newTestAssembler(t *testing.T, genResponse string) *Assembler {
	t.Helper()
	reader := staticReader{src: index.SourceMemory, chunks: []index.Chunk{
		{Vector: []float32{1, 0}, Meta: index.Metadata{Source: index.SourceMemory, Text: "relevant fact"}},
		{Vector: []float32{0, 1}, Meta: index.Metadata{Source: index.SourceMemory, Text: "unrelated fact"}},
	}}
	idx := index.New([]index.CorpusReader{reader}, time.Hour)

	embedCache := cache.New(10, time.Hour, func(_ context.Context, text string) ([]float32, error) {
		if text == "ask about something" {
			return []float32{1, 0}, nil
		}
		return []float32{0, 1}, nil
	})

	gen := staticGenerator{response: genResponse}
	rtr := router.New(gen, router.RouteFallback, router.PriorityMedium, zerolog.Nop())

	sessions := session.New()

	return New(idx, rtr, sessions, embedCache, obs.NewMockMetrics(), nil, Params{
		TopK:                 5,
		MinScore:             0,
		ShortTermMaxMessages: 10,
		ShortTermMaxTokens:   1000,
		DefaultRoute:         router.RouteFallback,
		DefaultPriority:      router.PriorityMedium,
	}, zerolog.Nop())
}

func TestAssemble_SkippedMessageHasNoRetrieval(t *testing.T) {
	a := newTestAssembler(t, `{"route":"claude_opus","priority":"high"}`)

	result, err := a.Assemble(context.Background(), "ok", "sess1", Overrides{})
	require.NoError(t, err)
	require.True(t, result.Metadata.Skipped)
	require.Empty(t, result.Retrieved)
	require.Zero(t, result.Metadata.EmbedMs)

	// the message is still appended to history
	require.Len(t, a.sessions.Recent("sess1", 0), 1)
}

func TestAssemble_RoutesShapeRetrieval(t *testing.T) {
	a := newTestAssembler(t, `{"route":"local_qwen","priority":"low"}`)

	result, err := a.Assemble(context.Background(), "ask about something specific", "sess1", Overrides{})
	require.NoError(t, err)
	require.Equal(t, router.RouteLocalQwen, result.Route)
	require.LessOrEqual(t, len(result.Retrieved), 3) // local_qwen shape caps at 3
}

func TestAssemble_OverridesWinOverShapeTable(t *testing.T) {
	a := newTestAssembler(t, `{"route":"local_qwen","priority":"low"}`)

	result, err := a.Assemble(context.Background(), "ask about something specific", "sess1", Overrides{TopK: 1})
	require.NoError(t, err)
	require.LessOrEqual(t, len(result.Retrieved), 1)
}

func TestAssemble_AppendsMessageAndBuildsShortTerm(t *testing.T) {
	a := newTestAssembler(t, `{"route":"fallback","priority":"medium"}`)

	_, err := a.Assemble(context.Background(), "first real message here", "sess1", Overrides{})
	require.NoError(t, err)
	result, err := a.Assemble(context.Background(), "second real message here", "sess1", Overrides{})
	require.NoError(t, err)
	require.Len(t, result.ShortTerm, 1)
	require.Equal(t, "first real message here", result.ShortTerm[0].Content)

	recent := a.sessions.Recent("sess1", 0)
	require.Len(t, recent, 2)
	require.Equal(t, "second real message here", recent[1].Content)
}

func TestAssemble_Stats(t *testing.T) {
	a := newTestAssembler(t, `{"route":"fallback","priority":"medium"}`)

	_, _ = a.Assemble(context.Background(), "ok", "sess1", Overrides{})
	_, _ = a.Assemble(context.Background(), "a real question about things", "sess1", Overrides{})

	stats := a.Stats()
	require.EqualValues(t, 2, stats.TotalCalls)
	require.EqualValues(t, 1, stats.SkippedCalls)
}

func TestShape_Idempotent(t *testing.T) {
	items := []index.Item{
		{Source: index.SourceMemory, Text: "a", Score: 0.9},
		{Source: index.SourceChat, Text: "b", Score: 0.5},
		{Source: index.SourceTelegram, Text: "c", Score: 0.1},
	}
	p := shapeFor(router.RouteClaudeOpus)

	once := shape(items, p)
	twiceInput := make([]index.Item, len(once))
	for i, r := range once {
		twiceInput[i] = index.Item{Source: r.Source, Text: r.Text, Score: r.Score}
	}
	twice := shape(twiceInput, p)

	require.Equal(t, once, twice)
}

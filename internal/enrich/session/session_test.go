package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppend_RecentLastIsAppendedTurn(t *testing.T) {
	s := New()
	s.Append("sess1", Turn{Role: RoleUser, Content: "hello"})
	s.Append("sess1", Turn{Role: RoleAssistant, Content: "hi there"})

	recent := s.Recent("sess1", 0)
	require.Len(t, recent, 2)
	require.Equal(t, "hi there", recent[len(recent)-1].Content)
}

func TestRecent_BoundsCount(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Append("sess1", Turn{Role: RoleUser, Content: "x"})
	}
	require.Len(t, s.Recent("sess1", 2), 2)
	require.Len(t, s.Recent("sess1", 100), 5)
}

func TestWindow_TruncatesByTokenBudget(t *testing.T) {
	s := New()
	s.Append("sess1", Turn{Role: RoleUser, Content: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}) // 38 chars ~10 tokens
	s.Append("sess1", Turn{Role: RoleUser, Content: "short"})

	window := s.Window("sess1", 0, 2)
	require.Len(t, window, 1)
	require.Equal(t, "short", window[0].Content)
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ []Turn) (string, error) {
	return f.summary, f.err
}

func TestWindowWithCompression_SummarizesDroppedPrefix(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Append("sess1", Turn{Role: RoleUser, Content: "turn"})
	}

	sum := &fakeSummarizer{summary: "condensed history"}
	window := s.WindowWithCompression(context.Background(), "sess1", 2, 0, sum)

	require.Len(t, window, 3)
	require.Equal(t, RoleSystem, window[0].Role)
	require.Equal(t, "condensed history", window[0].Content)
}

func TestWindowWithCompression_FallsBackOnSummarizerError(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Append("sess1", Turn{Role: RoleUser, Content: "turn"})
	}

	sum := &fakeSummarizer{err: errors.New("runtime down")}
	window := s.WindowWithCompression(context.Background(), "sess1", 2, 0, sum)

	require.Len(t, window, 2)
	for _, turn := range window {
		require.NotEqual(t, RoleSystem, turn.Role)
	}
}

func TestStoreStats(t *testing.T) {
	s := New()
	s.Append("a", Turn{Content: "1"})
	s.Append("a", Turn{Content: "2"})
	s.Append("b", Turn{Content: "1"})

	stats := s.StoreStats()
	require.Equal(t, 2, stats.Sessions)
	require.Equal(t, 3, stats.TotalTurns)
}

func TestAppend_ConcurrentSafe(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append("sess1", Turn{Content: "x", Timestamp: time.Now()})
		}()
	}
	wg.Wait()
	require.Len(t, s.Recent("sess1", 0), 50)
}

package assembler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"enrichcore/internal/enrich/activitylog"
	"enrichcore/internal/enrich/cache"
	"enrichcore/internal/enrich/index"
	"enrichcore/internal/enrich/obs"
	"enrichcore/internal/enrich/router"
	"enrichcore/internal/enrich/session"
	"enrichcore/internal/enrich/skipgate"
)

// Clock abstracts time.Now for deterministic tests.
type Clock interface{ Now() time.Time }

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Assembler is the orchestration point for one assemble call: it fans
// out retrieval and classification, shapes the retrieval set by route,
// folds in short-term history, and appends the message to the session.
type Assembler struct {
	index    *index.Index
	router   *router.Router
	sessions *session.Store
	cache    *cache.EmbeddingCache
	metrics  obs.Metrics
	activity *activitylog.Log
	clock    Clock
	log      zerolog.Logger

	topK     int
	minScore float64

	shortTermMaxMessages int
	shortTermMaxTokens   int

	overallTimeout time.Duration
	branchTimeout  time.Duration

	defaultRoute    router.Route
	defaultPriority router.Priority

	stats statsAccumulator
}

// Params bundles the Assembler's tunables so New doesn't take a dozen
// positional arguments.
type Params struct {
	TopK                 int
	MinScore             float64
	ShortTermMaxMessages int
	ShortTermMaxTokens   int
	OverallTimeout       time.Duration
	BranchTimeout        time.Duration
	DefaultRoute         router.Route
	DefaultPriority      router.Priority
}

// New constructs an Assembler. metrics must be non-nil (tests pass
// obs.NewMockMetrics()); activity is always safe to pass as nil.
func New(idx *index.Index, rtr *router.Router, sessions *session.Store, embedCache *cache.EmbeddingCache, metrics obs.Metrics, activity *activitylog.Log, p Params, log zerolog.Logger) *Assembler {
	if p.OverallTimeout <= 0 {
		p.OverallTimeout = 5 * time.Second
	}
	if p.BranchTimeout <= 0 {
		p.BranchTimeout = 4 * time.Second
	}
	return &Assembler{
		index:                idx,
		router:               rtr,
		sessions:             sessions,
		cache:                embedCache,
		metrics:              metrics,
		activity:             activity,
		clock:                SystemClock{},
		log:                  log.With().Str("component", "assembler").Logger(),
		topK:                 p.TopK,
		minScore:             p.MinScore,
		shortTermMaxMessages: p.ShortTermMaxMessages,
		shortTermMaxTokens:   p.ShortTermMaxTokens,
		overallTimeout:       p.OverallTimeout,
		branchTimeout:        p.BranchTimeout,
		defaultRoute:         p.DefaultRoute,
		defaultPriority:      p.DefaultPriority,
	}
}

// WithClock overrides the Assembler's clock, for deterministic tests.
func (a *Assembler) WithClock(c Clock) *Assembler {
	a.clock = c
	return a
}

func ms(d time.Duration) int64 { return int64(d / time.Millisecond) }

// Assemble builds one EnrichmentResult for message in sessionID's
// context. It never returns an error from downstream runtime or corpus
// failures: those degrade to empty retrieval / default routing, logged at
// debug level, so a caller always gets a usable result.
func (a *Assembler) Assemble(ctx context.Context, message, sessionID string, overrides Overrides) (EnrichmentResult, error) {
	start := a.clock.Now()
	a.stats.incrTotal()

	if skipgate.ShouldSkip(message) {
		return a.assembleSkipped(message, sessionID, start), nil
	}

	cctx, cancel := context.WithTimeout(ctx, a.overallTimeout)
	defer cancel()

	var (
		retrieved  []index.Item
		decision   router.Decision
		embedMs    int64
		searchMs   int64
		classifyMs int64
		cacheHit   bool
	)

	g, gctx := errgroup.WithContext(cctx)

	g.Go(func() error {
		branchCtx, branchCancel := context.WithTimeout(gctx, a.branchTimeout)
		defer branchCancel()

		t0 := a.clock.Now()
		vec, hit, err := a.cache.GetOrCompute(branchCtx, message)
		embedMs = ms(a.clock.Now().Sub(t0))
		cacheHit = hit
		if err != nil {
			a.log.Debug().Err(err).Msg("embed failed, returning empty retrieval for this call")
			return nil
		}

		t1 := a.clock.Now()
		items, err := a.index.Search(branchCtx, vec, a.topK, a.minScore, nil)
		searchMs = ms(a.clock.Now().Sub(t1))
		if err != nil {
			a.log.Debug().Err(err).Msg("vector search failed, returning empty retrieval for this call")
			return nil
		}
		retrieved = items
		return nil
	})

	g.Go(func() error {
		branchCtx, branchCancel := context.WithTimeout(gctx, a.branchTimeout)
		defer branchCancel()

		t0 := a.clock.Now()
		history := a.sessions.Recent(sessionID, 2)
		turns := make([]router.Turn, len(history))
		for i, h := range history {
			turns[i] = router.Turn{Role: string(h.Role), Content: h.Content}
		}
		decision = a.router.Classify(branchCtx, message, turns)
		classifyMs = ms(a.clock.Now().Sub(t0))
		return nil
	})

	_ = g.Wait() // both branches already degrade internally; nothing propagates

	if decision.Route == "" {
		decision = router.Decision{Route: a.defaultRoute, Priority: a.defaultPriority, Reason: "no classification produced"}
	}

	params := applyOverrides(shapeFor(decision.Route), overrides)
	shaped := shape(retrieved, params)

	shortTerm := a.sessions.Window(sessionID, a.shortTermMaxMessages, a.shortTermMaxTokens)
	a.sessions.Append(sessionID, session.Turn{Role: session.RoleUser, Content: message, Timestamp: a.clock.Now()})

	assembleMs := ms(a.clock.Now().Sub(start))

	a.metrics.ObserveHistogram("enrich_stage_ms", float64(embedMs), map[string]string{"stage": "embed"})
	a.metrics.ObserveHistogram("enrich_stage_ms", float64(searchMs), map[string]string{"stage": "search"})
	a.metrics.ObserveHistogram("enrich_stage_ms", float64(classifyMs), map[string]string{"stage": "classify"})
	a.metrics.ObserveHistogram("enrich_stage_ms", float64(assembleMs), map[string]string{"stage": "assembly"})
	a.metrics.IncCounter("enrich_assembled_total", map[string]string{"route": string(decision.Route)})

	meta := Metadata{
		Skipped:        false,
		EmbedMs:        embedMs,
		SearchMs:       searchMs,
		ClassifyMs:     classifyMs,
		AssembleMs:     assembleMs,
		RetrievedCount: len(shaped),
		CacheHit:       cacheHit,
		RouteReason:    decision.Reason,
	}
	a.stats.record(meta)

	result := EnrichmentResult{
		Message:     message,
		SessionID:   sessionID,
		ShortTerm:   shortTerm,
		Retrieved:   shaped,
		Route:       decision.Route,
		Priority:    decision.Priority,
		AssembledAt: a.clock.Now(),
		Metadata:    meta,
	}
	a.recordActivity(result)
	return result, nil
}

func (a *Assembler) assembleSkipped(message, sessionID string, start time.Time) EnrichmentResult {
	a.stats.incrSkipped()
	a.sessions.Append(sessionID, session.Turn{Role: session.RoleUser, Content: message, Timestamp: a.clock.Now()})
	assembleMs := ms(a.clock.Now().Sub(start))
	a.metrics.IncCounter("enrich_skipped_total", nil)

	meta := Metadata{Skipped: true, AssembleMs: assembleMs}
	a.stats.record(meta)

	result := EnrichmentResult{
		Message:     message,
		SessionID:   sessionID,
		Route:       a.defaultRoute,
		Priority:    a.defaultPriority,
		AssembledAt: a.clock.Now(),
		Metadata:    meta,
	}
	a.recordActivity(result)
	return result
}

func (a *Assembler) recordActivity(r EnrichmentResult) {
	if a.activity == nil {
		return
	}
	a.activity.Record(activitylog.Entry{
		SessionID:  r.SessionID,
		Route:      string(r.Route),
		Skipped:    r.Metadata.Skipped,
		RetrievedN: r.Metadata.RetrievedCount,
		AssembleMs: r.Metadata.AssembleMs,
		Timestamp:  r.AssembledAt,
	})
}

// Stats returns a snapshot of the Assembler's running counters, the
// external "stats" operation.
func (a *Assembler) Stats() Stats {
	return a.stats.snapshot()
}

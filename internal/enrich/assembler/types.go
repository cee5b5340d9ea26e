// Package assembler implements the Assembler (C6): the orchestration
// point that turns one incoming message into an EnrichmentResult by
// fanning out retrieval and classification, shaping the retrieval set by
// route, and folding in short-term history.
package assembler

import (
	"time"

	"enrichcore/internal/enrich/index"
	"enrichcore/internal/enrich/router"
	"enrichcore/internal/enrich/session"
)

// Overrides lets a caller adjust per-call shaping without touching the
// Assembler's configured defaults.
type Overrides struct {
	TopK     int
	MinScore float64
	Sources  map[index.Source]bool
}

// RetrievedItem is one shaped retrieval hit included in a result.
type RetrievedItem struct {
	Source index.Source
	Text   string
	Score  float64
}

// Metadata carries per-call diagnostics: stage timings and a few counts,
// useful for debugging and for feeding external dashboards this core does
// not itself provide.
type Metadata struct {
	Skipped        bool
	EmbedMs        int64
	SearchMs       int64
	ClassifyMs     int64
	AssembleMs     int64
	RetrievedCount int
	CacheHit       bool
	RouteReason    string
}

// EnrichmentResult is the Assembler's return value: everything the caller
// needs to build a downstream prompt plus enough metadata to understand
// how it was built.
type EnrichmentResult struct {
	Message     string
	SessionID   string
	ShortTerm   []session.Turn
	Retrieved   []RetrievedItem
	Route       router.Route
	Priority    router.Priority
	AssembledAt time.Time
	Metadata    Metadata
}

package assembler

import "sync"

// Stats is a point-in-time snapshot of the Assembler's running counters.
type Stats struct {
	TotalCalls    int64
	SkippedCalls  int64
	AvgEmbedMs    float64
	AvgSearchMs   float64
	AvgClassifyMs float64
	AvgAssembleMs float64
}

// statsAccumulator keeps running sums under a mutex, the same pattern
// MockMetrics uses for its in-memory counters.
type statsAccumulator struct {
	mu sync.Mutex

	totalCalls   int64
	skippedCalls int64

	assembledCalls int64
	sumEmbedMs     int64
	sumSearchMs    int64
	sumClassifyMs  int64
	sumAssembleMs  int64
}

func (s *statsAccumulator) incrTotal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls++
}

func (s *statsAccumulator) incrSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skippedCalls++
}

func (s *statsAccumulator) record(m Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Skipped {
		return
	}
	s.assembledCalls++
	s.sumEmbedMs += m.EmbedMs
	s.sumSearchMs += m.SearchMs
	s.sumClassifyMs += m.ClassifyMs
	s.sumAssembleMs += m.AssembleMs
}

func (s *statsAccumulator) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{TotalCalls: s.totalCalls, SkippedCalls: s.skippedCalls}
	if s.assembledCalls > 0 {
		n := float64(s.assembledCalls)
		out.AvgEmbedMs = float64(s.sumEmbedMs) / n
		out.AvgSearchMs = float64(s.sumSearchMs) / n
		out.AvgClassifyMs = float64(s.sumClassifyMs) / n
		out.AvgAssembleMs = float64(s.sumAssembleMs) / n
	}
	return out
}

package obs

import "testing"

func TestMockMetrics_RecordsCountsAndHists(t *testing.T) {
	m := NewMockMetrics()
	m.IncCounter("enrich_assembled_total", map[string]string{"route": "fallback"})
	m.IncCounter("enrich_assembled_total", map[string]string{"route": "fallback"})
	m.ObserveHistogram("enrich_stage_ms", 12, map[string]string{"stage": "embed"})
	m.ObserveHistogram("enrich_stage_ms", 34, map[string]string{"stage": "search"})

	if m.Counters["enrich_assembled_total"] != 2 {
		t.Fatalf("expected 2, got %d", m.Counters["enrich_assembled_total"])
	}
	if len(m.Hists["enrich_stage_ms"]) != 2 {
		t.Fatalf("expected 2 histogram records, got %d", len(m.Hists["enrich_stage_ms"]))
	}
	if m.Count("enrich_assembled_total") != 2 {
		t.Fatalf("Count helper mismatch")
	}
}

func TestNilOtelMetrics_NoPanic(t *testing.T) {
	var m *OtelMetrics
	m.IncCounter("x", nil)
	m.ObserveHistogram("x", 1, nil)
}

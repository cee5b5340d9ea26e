package assembler

import (
	"enrichcore/internal/enrich/index"
	"enrichcore/internal/enrich/router"
)

// shapeParams bounds a retrieval set for one route: at most TopK items,
// restricted to Sources, with score >= MinScore.
type shapeParams struct {
	TopK     int
	MinScore float64
	Sources  map[index.Source]bool
}

// shapeTable is the route-aware shaping policy: cheaper/faster routes see
// a smaller, higher-precision slice of the corpus; the most capable route
// sees the broadest one.
var shapeTable = map[router.Route]shapeParams{
	router.RouteLocalQwen: {
		TopK:     3,
		MinScore: 0.40,
		Sources:  map[index.Source]bool{index.SourceMemory: true},
	},
	router.RouteClaudeHaiku: {
		TopK:     0,
		MinScore: 0,
		Sources:  nil,
	},
	router.RouteClaudeSonnet: {
		TopK:     5,
		MinScore: 0.30,
		Sources:  map[index.Source]bool{index.SourceMemory: true, index.SourceChat: true},
	},
	router.RouteClaudeOpus: {
		TopK:     10,
		MinScore: 0.25,
		Sources:  map[index.Source]bool{index.SourceMemory: true, index.SourceChat: true, index.SourceTelegram: true},
	},
}

var fallbackShape = shapeParams{
	TopK:     5,
	MinScore: 0.30,
	Sources:  map[index.Source]bool{index.SourceMemory: true, index.SourceChat: true, index.SourceTelegram: true},
}

func shapeFor(route router.Route) shapeParams {
	if p, ok := shapeTable[route]; ok {
		return p
	}
	return fallbackShape
}

func applyOverrides(p shapeParams, o Overrides) shapeParams {
	if o.TopK > 0 {
		p.TopK = o.TopK
	}
	if o.MinScore > 0 {
		p.MinScore = o.MinScore
	}
	if len(o.Sources) > 0 {
		p.Sources = o.Sources
	}
	return p
}

// shape filters and truncates items already sorted by descending score. It
// is idempotent: calling shape twice with the same params on its own
// output returns the same slice, since filtering and truncation are both
// stable no-ops on an already-shaped input.
func shape(items []index.Item, p shapeParams) []RetrievedItem {
	out := make([]RetrievedItem, 0, len(items))
	for _, it := range items {
		if len(p.Sources) > 0 && !p.Sources[it.Source] {
			continue
		}
		if it.Score < p.MinScore {
			continue
		}
		out = append(out, RetrievedItem{Source: it.Source, Text: it.Text, Score: it.Score})
	}
	if p.TopK <= 0 {
		return out[:0]
	}
	if len(out) > p.TopK {
		out = out[:p.TopK]
	}
	return out
}

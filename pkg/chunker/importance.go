package chunker

import "github.com/callin2/agent-memory-sub006/pkg/models"

// baseImportance seeds importance by event kind before tag/sensitivity
// adjustments (§4.3).
func baseImportance(ev *models.Event) float64 {
	switch ev.Kind {
	case models.KindDecision:
		return 1.0
	case models.KindTaskUpdate:
		return 0.7
	case models.KindMessage:
		if ev.Actor.Type == models.ActorHuman {
			return 0.5
		}
		return 0.3
	case models.KindToolCall, models.KindToolResult:
		return 0.4
	default:
		return 0.3
	}
}

// importantTags get a fixed boost when present on the chunk — signals a
// human explicitly flagged the content as worth keeping.
var importantTags = map[string]float64{
	"important": 0.15,
	"pinned":    0.15,
	"decision":  0.10,
}

// SeedImportance computes a chunk's initial importance from its source
// event's kind, tag boosts, and a sensitivity penalty (§4.3). The result
// is clamped to [0,1]; later importance changes only ever happen via an
// "attenuate" MemoryEdit, never by rewriting this seed.
func SeedImportance(ev *models.Event, extraTags []string) float64 {
	score := baseImportance(ev)

	for _, t := range mergeTags(ev.Tags, extraTags) {
		if boost, ok := importantTags[t]; ok {
			score += boost
		}
	}

	switch ev.Sensitivity {
	case models.SensitivityHigh:
		score -= 0.1
	case models.SensitivitySecret:
		score -= 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

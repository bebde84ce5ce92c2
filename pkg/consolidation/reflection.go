package consolidation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// synthesizeReflections finds every (tenant, with_whom) pair carrying at
// least cfg.UnconsolidatedHandoffThreshold handoffs since its last cached
// reflection (or since the beginning of history, if none exists yet) and
// produces a fresh one (§4.10 step 3). Already-consolidated handoffs are
// excluded by id rather than by a time cutoff alone, so a handoff written
// in the same instant as the prior reflection is never double-counted.
func (w *Worker) synthesizeReflections(ctx context.Context) (int, error) {
	pairs, err := w.store.ListDistinctWithWhom(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, pair := range pairs {
		var since time.Time
		consolidated := map[string]bool{}

		prior, err := w.store.GetLatestReflection(ctx, pair.TenantID, pair.WithWhom)
		if err != nil && apierrors.KindOf(err) != apierrors.KindNotFound {
			return n, err
		}
		if prior != nil {
			since = prior.TS
			for _, id := range prior.SourceHandoffIDs {
				consolidated[id] = true
			}
		}

		backlog, err := w.store.ListHandoffsSince(ctx, pair.TenantID, pair.WithWhom, since)
		if err != nil {
			return n, err
		}
		var unconsolidated []*models.Handoff
		for _, h := range backlog {
			if !consolidated[h.HandoffID] {
				unconsolidated = append(unconsolidated, h)
			}
		}
		if len(unconsolidated) < w.cfg.UnconsolidatedHandoffThreshold {
			continue
		}

		insights, sourceIDs := synthesizeInsights(unconsolidated)
		if _, err := w.store.InsertReflection(ctx, pair.TenantID, pair.WithWhom, insights, sourceIDs); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// synthesizeInsights derives 3-5 summary statements from a handoff
// backlog, deterministically rather than through any generative pass —
// this service has no model-calling component of its own, so
// consolidation works from the structured fields handoffs already carry:
// peak significance, recurring tags, and the significance trend across
// the window.
func synthesizeInsights(handoffs []*models.Handoff) ([]string, []string) {
	sourceIDs := make([]string, len(handoffs))
	for i, h := range handoffs {
		sourceIDs[i] = h.HandoffID
	}

	byTS := append([]*models.Handoff(nil), handoffs...)
	sort.Slice(byTS, func(i, j int) bool { return byTS[i].TS.Before(byTS[j].TS) })

	bySignificance := append([]*models.Handoff(nil), handoffs...)
	sort.Slice(bySignificance, func(i, j int) bool { return bySignificance[i].Significance > bySignificance[j].Significance })

	var insights []string

	peak := bySignificance[0]
	insights = append(insights, fmt.Sprintf("most significant moment: %s", peak.Remember))

	latest := byTS[len(byTS)-1]
	insights = append(insights, fmt.Sprintf("most recent takeaway: %s", latest.Learned))

	if tag := mostFrequentTag(handoffs); tag != "" {
		insights = append(insights, fmt.Sprintf("recurring theme across %d sessions: %s", len(handoffs), tag))
	}

	if trend := significanceTrend(byTS); trend != "" {
		insights = append(insights, trend)
	}

	if len(handoffs) >= 5 {
		insights = append(insights, fmt.Sprintf("identity arc: %s", latest.Becoming))
	}

	return insights, sourceIDs
}

func mostFrequentTag(handoffs []*models.Handoff) string {
	counts := map[string]int{}
	for _, h := range handoffs {
		for _, tag := range h.Tags {
			counts[tag]++
		}
	}
	best, bestCount := "", 0
	for tag, count := range counts {
		if count > bestCount || (count == bestCount && tag < best) {
			best, bestCount = tag, count
		}
	}
	if bestCount < 2 {
		return ""
	}
	return best
}

// significanceTrend compares the average significance of the first and
// second halves of the (time-ordered) backlog.
func significanceTrend(byTS []*models.Handoff) string {
	if len(byTS) < 4 {
		return ""
	}
	mid := len(byTS) / 2
	first := avgSignificance(byTS[:mid])
	second := avgSignificance(byTS[mid:])

	switch {
	case second-first > 0.15:
		return "significance is trending upward across this window"
	case first-second > 0.15:
		return "significance is trending downward across this window"
	default:
		return ""
	}
}

func avgSignificance(handoffs []*models.Handoff) float64 {
	if len(handoffs) == 0 {
		return 0
	}
	total := 0.0
	for _, h := range handoffs {
		total += h.Significance
	}
	return total / float64(len(handoffs))
}

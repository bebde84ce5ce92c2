package orchestrator

import (
	"context"
	"strings"

	"github.com/callin2/agent-memory-sub006/pkg/chunker"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/retrieval"
)

// fetcher runs each section's own source query (§4.8 step 2), caching the
// two reads ("recent window" and "active decisions") that more than one
// section draws from so a build never issues the same query twice.
type fetcher struct {
	b        *Builder
	ctx      context.Context
	tenantID string
	req      models.BuildACBRequest

	recent        []retrieval.Candidate
	recentErr     error
	recentFetched bool

	active        []*models.EffectiveDecision
	activeErr     error
	activeFetched bool
}

func (f *fetcher) fetch(name models.SectionName) ([]rankedItem, error) {
	switch name {
	case models.SectionStickyInvariants:
		return f.stickyInvariants()
	case models.SectionRules:
		return f.rules()
	case models.SectionRelevantDecisions:
		return f.relevantDecisions()
	case models.SectionTaskState:
		return f.taskState()
	case models.SectionCapsules:
		return f.capsules()
	case models.SectionRecentWindow:
		return f.recentWindow()
	case models.SectionRetrievedEvidence:
		return f.retrievedEvidence()
	case models.SectionHandoff:
		return f.handoff()
	}
	return nil, nil
}

func (f *fetcher) recentCandidates() ([]retrieval.Candidate, error) {
	if !f.recentFetched {
		f.recent, f.recentErr = f.b.retriever.Retrieve(f.ctx, retrieval.Request{
			TenantID:           f.tenantID,
			SessionID:          f.req.SessionID,
			SessionScoped:      true,
			Channel:            f.req.Channel,
			Intent:             f.req.Intent,
			Subject:            f.req.Subject,
			ProjectID:          f.req.ProjectID,
			IncludeQuarantined: f.req.IncludeQuarantined,
			MaxCandidates:      models.DefaultMaxCandidatePool,
		})
		f.recentFetched = true
	}
	return f.recent, f.recentErr
}

func (f *fetcher) activeDecisions() ([]*models.EffectiveDecision, error) {
	if !f.activeFetched {
		f.active, f.activeErr = f.b.decisions.ListActive(f.ctx, f.tenantID, f.req.Channel,
			f.req.IncludeQuarantined, f.req.ProjectID, 0)
		f.activeFetched = true
	}
	return f.active, f.activeErr
}

// stickyInvariants scans the recent window for safety/correction/
// constraint/blocking-error cues (§4.8) and packs matches with a fixed
// priority dictating eviction order: sticky items are evicted last.
func (f *fetcher) stickyInvariants() ([]rankedItem, error) {
	recent, err := f.recentCandidates()
	if err != nil {
		return nil, err
	}
	var out []rankedItem
	for _, c := range recent {
		priority, ok := classifyStickyCue(c.Chunk.Text)
		if !ok {
			continue
		}
		out = append(out, chunkItem(c, priority))
	}
	return out, nil
}

// recentWindow packs the same recency-scored pool as plain recent items,
// without the sticky priority boost.
func (f *fetcher) recentWindow() ([]rankedItem, error) {
	recent, err := f.recentCandidates()
	if err != nil {
		return nil, err
	}
	out := make([]rankedItem, 0, len(recent))
	for _, c := range recent {
		out = append(out, chunkItem(c, 0))
	}
	return out, nil
}

// retrievedEvidence runs full retrieval against query_text/intent rather
// than the session-scoped recent window.
func (f *fetcher) retrievedEvidence() ([]rankedItem, error) {
	candidates, err := f.b.retriever.Retrieve(f.ctx, retrieval.Request{
		TenantID:           f.tenantID,
		SessionID:          f.req.SessionID,
		Channel:            f.req.Channel,
		Intent:             f.req.Intent,
		QueryText:          f.req.QueryText,
		Subject:            f.req.Subject,
		ProjectID:          f.req.ProjectID,
		IncludeQuarantined: f.req.IncludeQuarantined,
		MaxCandidates:      models.DefaultMaxCandidatePool,
	})
	if err != nil {
		return nil, err
	}
	out := make([]rankedItem, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, chunkItem(c, 0))
	}
	return out, nil
}

func (f *fetcher) rules() ([]rankedItem, error) {
	decisions, err := f.activeDecisions()
	if err != nil {
		return nil, err
	}
	var out []rankedItem
	for _, d := range decisions {
		if d.Scope == models.ScopePolicy {
			out = append(out, decisionItem(d))
		}
	}
	return out, nil
}

func (f *fetcher) relevantDecisions() ([]rankedItem, error) {
	decisions, err := f.activeDecisions()
	if err != nil {
		return nil, err
	}
	var out []rankedItem
	for _, d := range decisions {
		if d.Scope != models.ScopePolicy {
			out = append(out, decisionItem(d))
		}
	}
	return out, nil
}

func (f *fetcher) taskState() ([]rankedItem, error) {
	tasks, err := f.b.tasks.ListTasks(f.ctx, f.tenantID, models.TaskFilters{ProjectID: f.req.ProjectID, Limit: 100})
	if err != nil {
		return nil, err
	}
	var out []rankedItem
	for _, t := range tasks {
		switch t.Status {
		case models.TaskOpen, models.TaskDoing, models.TaskBlocked:
			out = append(out, taskItem(t))
		}
	}
	return out, nil
}

func (f *fetcher) capsules() ([]rankedItem, error) {
	if !f.req.IncludeCapsules || f.req.Subject == nil {
		return nil, nil
	}
	capsules, err := f.b.capsules.Available(f.ctx, f.tenantID, f.req.Subject.Type, f.req.Subject.ID, f.req.AgentID)
	if err != nil {
		return nil, err
	}
	out := make([]rankedItem, 0, len(capsules))
	for _, c := range capsules {
		out = append(out, capsuleItem(c))
	}
	return out, nil
}

func (f *fetcher) handoff() ([]rankedItem, error) {
	handoffs, err := f.b.handoffs.ListRecentHandoffs(f.ctx, f.tenantID, f.req.AgentID, 1)
	if err != nil {
		return nil, err
	}
	if len(handoffs) == 0 {
		return nil, nil
	}
	return []rankedItem{handoffItem(handoffs[0])}, nil
}

func chunkItem(c retrieval.Candidate, priority int) rankedItem {
	return rankedItem{
		item: models.ACBItem{
			Text:       c.Chunk.Text,
			TokenEst:   c.Chunk.TokenEst,
			Refs:       append([]string{c.Chunk.EventID}, c.Chunk.Refs...),
			SourceKind: models.SourceChunk,
			SourceID:   c.Chunk.ChunkID,
		},
		importance:   c.Importance,
		priority:     priority,
		ts:           c.Chunk.TS.Unix(),
		editsApplied: c.Chunk.EditsApplied,
	}
}

func decisionItem(d *models.EffectiveDecision) rankedItem {
	return rankedItem{
		item: models.ACBItem{
			Text:       d.Decision.Decision,
			TokenEst:   chunker.EstimateTokens(d.Decision.Decision),
			Refs:       append([]string{d.DecisionID}, d.Refs...),
			SourceKind: models.SourceDecision,
			SourceID:   d.DecisionID,
		},
		importance:   0.5,
		ts:           d.TS.Unix(),
		editsApplied: d.EditsApplied,
	}
}

func taskItem(t *models.Task) rankedItem {
	text := t.Title
	if t.Details != "" {
		text += ": " + t.Details
	}
	return rankedItem{
		item: models.ACBItem{
			Text:       text,
			TokenEst:   chunker.EstimateTokens(text),
			Refs:       append([]string{t.TaskID}, t.Refs...),
			SourceKind: models.SourceTask,
			SourceID:   t.TaskID,
		},
		importance: taskImportance(t.Status),
		ts:         t.TS.Unix(),
	}
}

func taskImportance(status models.TaskStatus) float64 {
	switch status {
	case models.TaskBlocked:
		return 0.9
	case models.TaskDoing:
		return 0.7
	default:
		return 0.5
	}
}

func capsuleItem(c *models.Capsule) rankedItem {
	text := strings.Join(c.Risks, "; ")
	refs := append(append(append([]string{c.CapsuleID}, c.Items.ChunkIDs...), c.Items.DecisionIDs...), c.Items.ArtifactIDs...)
	return rankedItem{
		item: models.ACBItem{
			Text:       text,
			TokenEst:   chunker.EstimateTokens(text) + 10,
			Refs:       refs,
			SourceKind: models.SourceCapsule,
			SourceID:   c.CapsuleID,
		},
		importance: 0.6,
		ts:         c.TS.Unix(),
	}
}

func handoffItem(h *models.Handoff) rankedItem {
	text := strings.Join([]string{h.Experienced, h.Noticed, h.Learned, h.Remember}, "\n")
	return rankedItem{
		item: models.ACBItem{
			Text:       text,
			TokenEst:   chunker.EstimateTokens(text),
			Refs:       []string{h.HandoffID},
			SourceKind: models.SourceHandoff,
			SourceID:   h.HandoffID,
		},
		importance: h.Significance,
		ts:         h.TS.Unix(),
	}
}

var (
	safetyCues     = []string{"must not", "never ", "security", "secret", "credential", "do not share"}
	correctionCues = []string{"actually,", "actually ", "wait,", "wait ", "no, ", "correction:"}
	constraintCues = []string{"must ", "required to", "constraint:", "has to "}
	errorCues      = []string{"error:", "failed to", "exception", "panic:", "traceback"}
)

// classifyStickyCue matches the cue lists from §4.8 against chunk text,
// returning the fixed priority (1000/900/800/700) that dictates eviction
// order: sticky items are packed first and evicted last.
func classifyStickyCue(text string) (int, bool) {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, safetyCues):
		return 1000, true
	case containsAny(lower, correctionCues):
		return 900, true
	case containsAny(lower, constraintCues):
		return 800, true
	case containsAny(lower, errorCues):
		return 700, true
	}
	return 0, false
}

func containsAny(s string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

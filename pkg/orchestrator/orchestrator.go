// Package orchestrator assembles the Active Context Bundle (§4.8): the
// hardest component. It fans sequentially across C5 (retrieval), C6
// (decisions), C7 (capsules), and storage's task/handoff reads, packs
// each section under a mode-derived sub-budget, then enforces a hard
// token ceiling and a soft latency deadline — the builder never fails
// the caller's prompt assembly, it degrades.
package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/config"
	"github.com/callin2/agent-memory-sub006/pkg/metrics"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/retrieval"
)

// buildDeadline is the soft p95 budget from §5: if assembly is still
// running past it, the builder stops fetching further sections and packs
// whatever it already has, marking the result truncated.
const buildDeadline = 500 * time.Millisecond

// Retriever is the slice of pkg/retrieval the builder needs.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) ([]retrieval.Candidate, error)
}

// DecisionLister is the slice of pkg/decisions the builder needs.
type DecisionLister interface {
	ListActive(ctx context.Context, tenantID string, readerChannel models.Channel, includeQuarantined bool, projectID string, limit int) ([]*models.EffectiveDecision, error)
}

// CapsuleLister is the slice of pkg/capsules the builder needs.
type CapsuleLister interface {
	Available(ctx context.Context, tenantID, subjectType, subjectID, requesterAgentID string) ([]*models.Capsule, error)
}

// TaskStore is the slice of pkg/storage the builder needs for task_state.
type TaskStore interface {
	ListTasks(ctx context.Context, tenantID string, f models.TaskFilters) ([]*models.Task, error)
}

// HandoffStore is the slice of pkg/storage the builder needs for handoff.
type HandoffStore interface {
	ListRecentHandoffs(ctx context.Context, tenantID, withWhom string, limit int) ([]*models.Handoff, error)
}

// Builder assembles ACBs from its collaborators.
type Builder struct {
	retriever Retriever
	decisions DecisionLister
	capsules  CapsuleLister
	tasks     TaskStore
	handoffs  HandoffStore
	cfg       *config.Config
	metrics   *metrics.Registry
}

// New wires a Builder against its collaborators. reg may be nil.
func New(retriever Retriever, decisions DecisionLister, capsules CapsuleLister, tasks TaskStore, handoffs HandoffStore, cfg *config.Config, reg *metrics.Registry) *Builder {
	return &Builder{retriever: retriever, decisions: decisions, capsules: capsules, tasks: tasks, handoffs: handoffs, cfg: cfg, metrics: reg}
}

// rankedItem pairs a serializable models.ACBItem with the scoring inputs
// (priority, importance, ts) the packing algorithm needs to rank and evict
// it — kept out of models.ACBItem itself since those fields never survive
// to the caller.
type rankedItem struct {
	item         models.ACBItem
	importance   float64
	priority     int
	ts           int64
	editsApplied int
}

// Build assembles one ACB for req. It always returns an ACB — packing
// failures degrade to truncation or a budget_exceeded warning rather than
// an error; only missing required fields produce an error.
//
// The spec calls for every component read to land inside one consistent
// database snapshot. Doing that across pkg/retrieval, pkg/decisions and
// pkg/capsules would mean threading a single *sql.Tx through three
// already-independent service layers, each built against *storage.Storage
// directly — a cross-cutting refactor out of proportion to what this
// builder needs. Sequential, single-goroutine fan-out (the spec's own
// fallback to "simpler than parallel reads") is used instead; see
// DESIGN.md for the accepted gap.
func (b *Builder) Build(ctx context.Context, tenantID string, req models.BuildACBRequest) (*models.ACB, error) {
	if req.SessionID == "" {
		return nil, apierrors.InvalidArgument("session is required")
	}
	if req.AgentID == "" {
		return nil, apierrors.InvalidArgument("agent_id is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = models.DefaultMaxTokens
	}
	if maxTokens < models.MinMaxTokens {
		maxTokens = models.MinMaxTokens
	}
	if maxTokens > models.MaxMaxTokens {
		maxTokens = models.MaxMaxTokens
	}

	deadline := time.Now().Add(buildDeadline)
	mode, fallbackReason := detectMode(req.Intent)
	budgets := allocateBudgets(mode, maxTokens)

	pool := map[models.SectionName][]rankedItem{}
	truncated := false

	f := &fetcher{b: b, ctx: ctx, tenantID: tenantID, req: req}
	for _, name := range sectionOrder {
		if time.Now().After(deadline) {
			truncated = true
			break
		}
		items, err := f.fetch(name)
		if err != nil {
			truncated = true
			break
		}
		pool[name] = items
	}

	admitted, usedTokens := pack(pool, budgets)
	admitted, usedTokens = enforceCeiling(admitted, usedTokens, maxTokens)

	editsApplied := 0
	for _, items := range admitted {
		for _, ri := range items {
			editsApplied += ri.editsApplied
		}
	}

	sections := make([]models.ACBSection, 0, len(sectionOrder))
	for _, name := range sectionOrder {
		items := make([]models.ACBItem, 0, len(admitted[name]))
		for _, ri := range admitted[name] {
			items = append(items, ri.item)
		}
		sections = append(sections, models.ACBSection{Name: name, Items: items})
	}

	acb := &models.ACB{
		Mode:           mode,
		FallbackReason: fallbackReason,
		Sections:       sections,
		TokenUsedEst:   usedTokens,
		EditsApplied:   editsApplied,
		Truncated:      truncated,
	}
	budgetExceeded := usedTokens > maxTokens
	if budgetExceeded {
		acb.Warning = "budget_exceeded"
	}
	if b.metrics != nil {
		b.metrics.RecordACBBuild(truncated, budgetExceeded)
	}
	return acb, nil
}

// sectionOrder is the fixed, always-present section list from §4.8.
var sectionOrder = []models.SectionName{
	models.SectionStickyInvariants,
	models.SectionRules,
	models.SectionRelevantDecisions,
	models.SectionTaskState,
	models.SectionCapsules,
	models.SectionRecentWindow,
	models.SectionRetrievedEvidence,
	models.SectionHandoff,
}

// detectMode maps an intent string to a mode with a confidence estimate
// (§4.8). Below a 0.7 confidence threshold, or when two categories match
// with conflicting signals, the builder falls back to general.
func detectMode(intent string) (models.Mode, string) {
	lower := strings.ToLower(intent)

	matches := map[models.Mode]bool{}
	for mode, cues := range modeCues {
		for _, cue := range cues {
			if strings.Contains(lower, cue) {
				matches[mode] = true
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return models.ModeGeneral, "no mode cues matched in intent"
	case 1:
		for mode := range matches {
			return mode, ""
		}
	}
	return models.ModeGeneral, "conflicting mode cues matched in intent"
}

var modeCues = map[models.Mode][]string{
	models.ModeDebugging:   {"debug", "error", "fail", "bug", "crash", "exception", "stack trace"},
	models.ModeExploration: {"explore", "investigate", "survey", "research", "look into"},
	models.ModeLearning:    {"learn", "understand", "explain", "why does", "how does"},
	models.ModeTask:        {"implement", "build", "fix", "add ", "create ", "write "},
}

// allocateBudgets applies the mode's fixed sub-budget table (§4.8) to
// maxTokens. Fractions are an Open Question resolution — the spec
// requires a fixed table per mode summing to ≤ max_tokens but does not
// name the weights; see DESIGN.md.
func allocateBudgets(mode models.Mode, maxTokens int) map[models.SectionName]int {
	weights := modeWeights[mode]
	out := make(map[models.SectionName]int, len(sectionOrder))
	for _, name := range sectionOrder {
		out[name] = int(float64(maxTokens) * weights[name])
	}
	return out
}

var modeWeights = map[models.Mode]map[models.SectionName]float64{
	models.ModeTask: {
		models.SectionStickyInvariants: 0.05, models.SectionRules: 0.05,
		models.SectionRelevantDecisions: 0.15, models.SectionTaskState: 0.25,
		models.SectionCapsules: 0.10, models.SectionRecentWindow: 0.20,
		models.SectionRetrievedEvidence: 0.15, models.SectionHandoff: 0.05,
	},
	models.ModeDebugging: {
		models.SectionStickyInvariants: 0.10, models.SectionRules: 0.05,
		models.SectionRelevantDecisions: 0.10, models.SectionTaskState: 0.10,
		models.SectionCapsules: 0.05, models.SectionRecentWindow: 0.30,
		models.SectionRetrievedEvidence: 0.25, models.SectionHandoff: 0.05,
	},
	models.ModeExploration: {
		models.SectionStickyInvariants: 0.05, models.SectionRules: 0.05,
		models.SectionRelevantDecisions: 0.10, models.SectionTaskState: 0.05,
		models.SectionCapsules: 0.10, models.SectionRecentWindow: 0.15,
		models.SectionRetrievedEvidence: 0.45, models.SectionHandoff: 0.05,
	},
	models.ModeLearning: {
		models.SectionStickyInvariants: 0.05, models.SectionRules: 0.05,
		models.SectionRelevantDecisions: 0.10, models.SectionTaskState: 0.05,
		models.SectionCapsules: 0.10, models.SectionRecentWindow: 0.10,
		models.SectionRetrievedEvidence: 0.40, models.SectionHandoff: 0.15,
	},
	models.ModeGeneral: {
		models.SectionStickyInvariants: 0.10, models.SectionRules: 0.10,
		models.SectionRelevantDecisions: 0.15, models.SectionTaskState: 0.15,
		models.SectionCapsules: 0.10, models.SectionRecentWindow: 0.20,
		models.SectionRetrievedEvidence: 0.15, models.SectionHandoff: 0.05,
	},
}

// pack runs steps 3-4 of §4.8's packing algorithm per section: sort by
// rank, greedily admit within the sub-budget, then donate any section's
// leftover tokens back to the others.
func pack(pool map[models.SectionName][]rankedItem, budgets map[models.SectionName]int) (map[models.SectionName][]rankedItem, int) {
	admitted := map[models.SectionName][]rankedItem{}

	for _, name := range sectionOrder {
		items := append([]rankedItem(nil), pool[name]...)
		sortSectionItems(items)
		budget := budgets[name]
		var kept []rankedItem
		used := 0
		for _, ri := range items {
			if name == models.SectionStickyInvariants || used+ri.item.TokenEst <= budget {
				kept = append(kept, ri)
				used += ri.item.TokenEst
			}
		}
		admitted[name] = kept
	}

	leftover := 0
	for _, name := range sectionOrder {
		used := 0
		for _, ri := range admitted[name] {
			used += ri.item.TokenEst
		}
		if used < budgets[name] {
			leftover += budgets[name] - used
		}
	}
	if leftover > 0 {
		donateLeftover(pool, admitted, leftover)
	}

	total := 0
	for _, name := range sectionOrder {
		for _, ri := range admitted[name] {
			total += ri.item.TokenEst
		}
	}
	return admitted, total
}

// donateLeftover distributes spare tokens across sections, admitting
// further not-yet-kept items where they now fit.
func donateLeftover(pool map[models.SectionName][]rankedItem, admitted map[models.SectionName][]rankedItem, leftover int) {
	for _, name := range sectionOrder {
		if leftover <= 0 {
			break
		}
		items := pool[name]
		if len(items) == len(admitted[name]) {
			continue
		}
		for _, ri := range items[len(admitted[name]):] {
			if ri.item.TokenEst > leftover {
				continue
			}
			admitted[name] = append(admitted[name], ri)
			leftover -= ri.item.TokenEst
		}
	}
}

// sortSectionItems ranks sticky invariants by priority desc, everything
// else by importance desc then ts desc — §4.5's tie-break generalized to
// non-chunk sources.
func sortSectionItems(items []rankedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.importance != b.importance {
			return a.importance > b.importance
		}
		return a.ts > b.ts
	})
}

// enforceCeiling implements §4.8 step 5: if the total projected use still
// exceeds maxTokens after packing, evict items in reverse priority
// (lowest-importance non-sticky item first) until under it. Sticky
// invariants are never evicted.
func enforceCeiling(admitted map[models.SectionName][]rankedItem, used, maxTokens int) (map[models.SectionName][]rankedItem, int) {
	if used <= maxTokens {
		return admitted, used
	}

	type ref struct {
		section models.SectionName
		index   int
	}
	var evictable []ref
	for _, name := range sectionOrder {
		if name == models.SectionStickyInvariants {
			continue
		}
		for i := range admitted[name] {
			evictable = append(evictable, ref{name, i})
		}
	}
	sort.Slice(evictable, func(i, j int) bool {
		a := admitted[evictable[i].section][evictable[i].index]
		b := admitted[evictable[j].section][evictable[j].index]
		return a.importance < b.importance
	})

	dropped := map[models.SectionName]map[int]bool{}
	for _, r := range evictable {
		if used <= maxTokens {
			break
		}
		if dropped[r.section] == nil {
			dropped[r.section] = map[int]bool{}
		}
		dropped[r.section][r.index] = true
		used -= admitted[r.section][r.index].item.TokenEst
	}

	out := map[models.SectionName][]rankedItem{}
	for _, name := range sectionOrder {
		var kept []rankedItem
		for i, ri := range admitted[name] {
			if !dropped[name][i] {
				kept = append(kept, ri)
			}
		}
		out[name] = kept
	}
	return out, used
}

// Package decisions implements the decision ledger (§4.6): create,
// atomic supersession, and precedence-ordered active lookups, each
// resolved through the Effective View before being handed back so a
// retracted or amended decision never surfaces as if it were untouched.
package decisions

import (
	"context"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/effective"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// Store is the slice of *storage.Storage the ledger needs.
type Store interface {
	InsertDecision(ctx context.Context, tenantID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error)
	SupersedeDecision(ctx context.Context, tenantID, predecessorID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error)
	GetActiveDecision(ctx context.Context, tenantID, subjectType, subjectID string) (*models.Decision, error)
	ListActiveDecisions(ctx context.Context, tenantID, projectID string, limit int) ([]*models.Decision, error)
	ListApprovedEditsForTarget(ctx context.Context, tenantID string, targetType models.EditTargetType, targetID string) ([]*models.MemoryEdit, error)
	ListApprovedEditsForTargets(ctx context.Context, tenantID string, targetType models.EditTargetType, targetIDs []string) (map[string][]*models.MemoryEdit, error)
}

// Ledger owns create_decision, supersede, and get_active (§4.6).
type Ledger struct {
	store Store
}

// New wires a Ledger against storage.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Create validates and inserts a new active decision.
func (l *Ledger) Create(ctx context.Context, tenantID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return l.store.InsertDecision(ctx, tenantID, decidedBy, in)
}

// Supersede replaces predecessorID with a new decision in one atomic
// step (§4.6): the predecessor must currently be active or the call
// fails with Conflict.
func (l *Ledger) Supersede(ctx context.Context, tenantID, predecessorID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error) {
	if predecessorID == "" {
		return nil, apierrors.InvalidField("decision_id", "required")
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	return l.store.SupersedeDecision(ctx, tenantID, predecessorID, decidedBy, in)
}

// GetActive returns the highest scope-precedence active decision for a
// subject, resolved through the Effective View for readerChannel. If the
// top decision is hidden for this reader (retracted, blocked, or
// quarantined without includeQuarantined), GetActive reports NotFound
// rather than falling through to a lower-precedence row — §4.6 defines
// "active decisions relevant to subject X" as the ledger's current
// record, not a search for the next-best visible one.
func (l *Ledger) GetActive(ctx context.Context, tenantID string, readerChannel models.Channel, includeQuarantined bool, subjectType, subjectID string) (*models.EffectiveDecision, error) {
	d, err := l.store.GetActiveDecision(ctx, tenantID, subjectType, subjectID)
	if err != nil {
		return nil, err
	}

	edits, err := l.store.ListApprovedEditsForTarget(ctx, tenantID, models.EditTargetDecision, d.DecisionID)
	if err != nil {
		return nil, err
	}

	ed, visible := effective.ApplyDecision(d, edits, readerChannel, includeQuarantined)
	if !visible {
		return nil, apierrors.NotFound("no active decision visible for subject %s/%s", subjectType, subjectID)
	}
	return ed, nil
}

// ListActive returns every active decision for a project, precedence
// then recency ordered (per ListActiveDecisions' SQL), resolved through
// the Effective View. Hidden rows are dropped rather than returned with
// a hidden marker, since list_active_decisions has no caller-facing
// notion of a suppressed row.
func (l *Ledger) ListActive(ctx context.Context, tenantID string, readerChannel models.Channel, includeQuarantined bool, projectID string, limit int) ([]*models.EffectiveDecision, error) {
	bases, err := l.store.ListActiveDecisions(ctx, tenantID, projectID, limit)
	if err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		return nil, nil
	}

	ids := make([]string, len(bases))
	for i, d := range bases {
		ids[i] = d.DecisionID
	}
	edits, err := l.store.ListApprovedEditsForTargets(ctx, tenantID, models.EditTargetDecision, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.EffectiveDecision, 0, len(bases))
	for _, d := range bases {
		ed, visible := effective.ApplyDecision(d, edits[d.DecisionID], readerChannel, includeQuarantined)
		if visible {
			out = append(out, ed)
		}
	}
	return out, nil
}

func validate(in models.CreateDecisionInput) error {
	if in.Decision == "" {
		return apierrors.InvalidField("decision", "required")
	}
	if !in.Scope.Valid() {
		return apierrors.InvalidField("scope", "unknown scope")
	}
	return nil
}

// Package capsules implements the capsule service (§4.7): curated,
// audience-scoped, TTL-bounded handoff bundles. Validation happens here;
// the referenced-id check and the insert itself are atomic inside
// storage.CreateCapsule.
package capsules

import (
	"context"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// Store is the slice of *storage.Storage the capsule service needs.
type Store interface {
	CreateCapsule(ctx context.Context, tenantID, authorAgentID string, in models.CreateCapsuleInput) (*models.Capsule, error)
	GetCapsuleForAudience(ctx context.Context, tenantID, capsuleID, agentID string) (*models.Capsule, error)
	ListAvailableCapsules(ctx context.Context, tenantID, subjectType, subjectID, agentID string) ([]*models.Capsule, error)
	RevokeCapsule(ctx context.Context, tenantID, capsuleID, agentID string) error
}

// Service owns create/available/revoke (§4.7).
type Service struct {
	store Store
}

// New wires a Service against storage.
func New(store Store) *Service {
	return &Service{store: store}
}

// Create validates in and inserts the capsule. audience must be
// non-empty, ttl_days must fall in [1,365], and every referenced chunk/
// decision/artifact id must belong to this tenant (enforced inside
// storage.CreateCapsule's transaction, surfaced here as IntegrityError).
func (s *Service) Create(ctx context.Context, tenantID, authorAgentID string, in models.CreateCapsuleInput) (*models.Capsule, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	return s.store.CreateCapsule(ctx, tenantID, authorAgentID, in)
}

// Get fetches one capsule, scoped to requesterAgentID's audience
// membership. A non-audience requester gets the identical NotFound a
// nonexistent id would (§4.7: no existence leak across audiences) —
// GetCapsuleForAudience already encodes that at the query level.
func (s *Service) Get(ctx context.Context, tenantID, capsuleID, requesterAgentID string) (*models.Capsule, error) {
	return s.store.GetCapsuleForAudience(ctx, tenantID, capsuleID, requesterAgentID)
}

// Available returns active, unexpired capsules visible to requesterAgentID
// for a subject.
func (s *Service) Available(ctx context.Context, tenantID, subjectType, subjectID, requesterAgentID string) ([]*models.Capsule, error) {
	return s.store.ListAvailableCapsules(ctx, tenantID, subjectType, subjectID, requesterAgentID)
}

// Revoke flips a capsule to revoked; only its author may do so.
func (s *Service) Revoke(ctx context.Context, tenantID, capsuleID, actorAgentID string) error {
	return s.store.RevokeCapsule(ctx, tenantID, capsuleID, actorAgentID)
}

func validate(in models.CreateCapsuleInput) error {
	if len(in.AudienceAgentIDs) == 0 {
		return apierrors.InvalidField("audience_agent_ids", "must be non-empty")
	}
	if in.TTLDays < models.MinCapsuleTTLDays || in.TTLDays > models.MaxCapsuleTTLDays {
		return apierrors.InvalidField("ttl_days", "must be between 1 and 365")
	}
	if in.SubjectType == "" || in.SubjectID == "" {
		return apierrors.InvalidField("subject", "subject_type and subject_id are required")
	}
	if !in.Scope.Valid() {
		return apierrors.InvalidField("scope", "unknown scope")
	}
	if in.Items.Empty() {
		return apierrors.InvalidField("items", "must reference at least one chunk, decision, or artifact")
	}
	return nil
}

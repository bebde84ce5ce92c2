package storage

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
)

const capsuleSelect = `SELECT capsule_id, tenant_id, scope, subject_type, subject_id, project_id,
	author_agent_id, audience_agent_ids, items, risks, ttl_days, status, ts, expires_at FROM capsules`

// InsertCapsule creates a capsule with its TTL-derived expiry already
// computed. It does not check that Items' referenced ids exist — callers
// that need §4.7's "validates referenced ids in one transaction and
// inserts" guarantee should call CreateCapsule instead.
func (s *Storage) InsertCapsule(ctx context.Context, tenantID, authorAgentID string, in models.CreateCapsuleInput) (*models.Capsule, error) {
	c := newCapsule(tenantID, authorAgentID, in)
	if err := insertCapsuleRow(ctx, s.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCapsule validates every referenced chunk/decision id under
// in.Items against this tenant and inserts the capsule, both inside one
// transaction (§5: "Capsule creation validates referenced ids in one
// transaction and inserts").
func (s *Storage) CreateCapsule(ctx context.Context, tenantID, authorAgentID string, in models.CreateCapsuleInput) (*models.Capsule, error) {
	c := newCapsule(tenantID, authorAgentID, in)

	err := s.withTx(ctx, func(tx *stdsql.Tx) error {
		artifactAndChunkIDs := append(append([]string{}, in.Items.ChunkIDs...), in.Items.ArtifactIDs...)
		if ok, err := idsExist(ctx, tx, "chunks", "chunk_id", tenantID, artifactAndChunkIDs); err != nil {
			return err
		} else if !ok {
			return apierrors.Integrity("capsule references an unknown chunk or artifact id")
		}
		if ok, err := idsExist(ctx, tx, "decisions", "decision_id", tenantID, in.Items.DecisionIDs); err != nil {
			return err
		} else if !ok {
			return apierrors.Integrity("capsule references an unknown decision id")
		}
		return insertCapsuleRow(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newCapsule(tenantID, authorAgentID string, in models.CreateCapsuleInput) *models.Capsule {
	now := time.Now()
	return &models.Capsule{
		CapsuleID:        uuid.New().String(),
		TenantID:         tenantID,
		TS:               now,
		Scope:            in.Scope,
		SubjectType:      in.SubjectType,
		SubjectID:        in.SubjectID,
		ProjectID:        in.ProjectID,
		AuthorAgentID:    authorAgentID,
		AudienceAgentIDs: in.AudienceAgentIDs,
		Items:            in.Items,
		Risks:            in.Risks,
		TTLDays:          in.TTLDays,
		Status:           models.CapsuleActive,
		ExpiresAt:        now.AddDate(0, 0, in.TTLDays),
	}
}

func insertCapsuleRow(ctx context.Context, q queryer, c *models.Capsule) error {
	audience, _ := json.Marshal(c.AudienceAgentIDs)
	items, err := json.Marshal(c.Items)
	if err != nil {
		return apierrors.InvalidField("items", "not JSON-serializable")
	}
	risks, _ := json.Marshal(c.Risks)

	_, err = q.ExecContext(ctx, `
		INSERT INTO capsules (capsule_id, tenant_id, scope, subject_type, subject_id, project_id,
			author_agent_id, audience_agent_ids, items, risks, ttl_days, status, ts, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.CapsuleID, c.TenantID, string(c.Scope), c.SubjectType, c.SubjectID, c.ProjectID,
		c.AuthorAgentID, audience, items, risks, c.TTLDays, string(c.Status), c.TS, c.ExpiresAt)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to insert capsule")
	}
	return nil
}

// GetCapsuleForAudience fetches a capsule only if agentID is its author or
// in its audience list, and it is active and unexpired — everyone else
// sees the same not-found a nonexistent id would produce (§4.7: no
// existence leak).
func (s *Storage) GetCapsuleForAudience(ctx context.Context, tenantID, capsuleID, agentID string) (*models.Capsule, error) {
	row := s.db.QueryRowContext(ctx, capsuleSelect+`
		WHERE tenant_id = $1 AND capsule_id = $2 AND status = 'active' AND expires_at > now()
		AND (author_agent_id = $3 OR audience_agent_ids @> $4::jsonb)`,
		tenantID, capsuleID, agentID, mustJSONArray(agentID))
	c, err := scanCapsule(row)
	if err != nil {
		return nil, wrapQueryErr("capsule", err)
	}
	return c, nil
}

// ListAvailableCapsules returns active, unexpired capsules visible to agentID
// for a subject, newest first.
func (s *Storage) ListAvailableCapsules(ctx context.Context, tenantID, subjectType, subjectID, agentID string) ([]*models.Capsule, error) {
	rows, err := s.db.QueryContext(ctx, capsuleSelect+`
		WHERE tenant_id = $1 AND subject_type = $2 AND subject_id = $3
		AND status = 'active' AND expires_at > now()
		AND (author_agent_id = $4 OR audience_agent_ids @> $5::jsonb)
		ORDER BY ts DESC`,
		tenantID, subjectType, subjectID, agentID, mustJSONArray(agentID))
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list capsules")
	}
	defer rows.Close()

	var out []*models.Capsule
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan capsule")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RevokeCapsule flips status to revoked if the caller is the author.
func (s *Storage) RevokeCapsule(ctx context.Context, tenantID, capsuleID, agentID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE capsules SET status = 'revoked'
		WHERE tenant_id = $1 AND capsule_id = $2 AND author_agent_id = $3 AND status = 'active'`,
		tenantID, capsuleID, agentID)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to revoke capsule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierrors.PermissionDenied("capsule %s cannot be revoked by this agent", capsuleID)
	}
	return nil
}

// ExpireCapsules flips every past-due active capsule to expired; run by
// the consolidation worker, not the hot path.
func (s *Storage) ExpireCapsules(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE capsules SET status = 'expired' WHERE status = 'active' AND expires_at <= now()`)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindInternal, err, "failed to expire capsules")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanCapsule(row rowScanner) (*models.Capsule, error) {
	var c models.Capsule
	var scope, status string
	var audience, items, risks []byte

	if err := row.Scan(&c.CapsuleID, &c.TenantID, &scope, &c.SubjectType, &c.SubjectID, &c.ProjectID,
		&c.AuthorAgentID, &audience, &items, &risks, &c.TTLDays, &status, &c.TS, &c.ExpiresAt); err != nil {
		return nil, err
	}
	c.Scope = models.Scope(scope)
	c.Status = models.CapsuleStatus(status)
	_ = json.Unmarshal(audience, &c.AudienceAgentIDs)
	_ = json.Unmarshal(items, &c.Items)
	_ = json.Unmarshal(risks, &c.Risks)
	return &c, nil
}

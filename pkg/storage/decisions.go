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

const decisionSelect = `SELECT decision_id, tenant_id, scope, decision, rationale, constraints,
	alternatives, consequences, refs, subject_type, subject_id, project_id, decided_by,
	status, ts FROM decisions`

// InsertDecision appends a new, active decision row.
func (s *Storage) InsertDecision(ctx context.Context, tenantID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error) {
	d := &models.Decision{
		DecisionID:   uuid.New().String(),
		TenantID:     tenantID,
		TS:           time.Now(),
		Status:       models.DecisionActive,
		Scope:        in.Scope,
		Decision:     in.Decision,
		Rationale:    in.Rationale,
		Constraints:  in.Constraints,
		Alternatives: in.Alternatives,
		Consequences: in.Consequences,
		Refs:         in.Refs,
		SubjectType:  in.SubjectType,
		SubjectID:    in.SubjectID,
		ProjectID:    in.ProjectID,
		DecidedBy:    decidedBy,
	}
	if err := s.insertDecisionRow(ctx, s.db, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Storage) insertDecisionRow(ctx context.Context, q queryer, d *models.Decision) error {
	rationale, _ := json.Marshal(d.Rationale)
	constraints, _ := json.Marshal(d.Constraints)
	alternatives, _ := json.Marshal(d.Alternatives)
	consequences, _ := json.Marshal(d.Consequences)
	refs, _ := json.Marshal(d.Refs)

	_, err := q.ExecContext(ctx, `
		INSERT INTO decisions (decision_id, tenant_id, scope, decision, rationale, constraints,
			alternatives, consequences, refs, subject_type, subject_id, project_id, decided_by,
			status, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.DecisionID, d.TenantID, string(d.Scope), d.Decision, rationale, constraints,
		alternatives, consequences, refs, d.SubjectType, d.SubjectID, d.ProjectID, d.DecidedBy,
		string(d.Status), d.TS)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to insert decision")
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (stdsql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *stdsql.Row
}

// SupersedeDecision atomically replaces predecessorID with a new decision:
// it locks the predecessor row with SELECT ... FOR UPDATE, verifies it is
// still active, flips its status to superseded, and inserts the
// replacement with predecessorID folded into its refs — mirroring the
// teacher's ClaimNextPendingSession conditional-update-count pattern,
// generalized from a status claim to a ledger supersession. The
// predecessor-in-refs link (D.decision_id ∈ D'.refs) is enforced here,
// not left to caller discipline: a caller that omits it from the request
// still gets a replacement that satisfies the invariant.
func (s *Storage) SupersedeDecision(ctx context.Context, tenantID, predecessorID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error) {
	var replacement *models.Decision

	err := s.withTx(ctx, func(tx *stdsql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM decisions WHERE tenant_id = $1 AND decision_id = $2 FOR UPDATE`,
			tenantID, predecessorID).Scan(&status)
		if err != nil {
			if isNotFound(err) {
				return apierrors.NotFound("decision %s not found", predecessorID)
			}
			return apierrors.Wrap(apierrors.KindInternal, err, "failed to lock predecessor decision")
		}
		if status != string(models.DecisionActive) {
			return apierrors.Conflict("decision %s is already superseded", predecessorID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE decisions SET status = $1
			WHERE tenant_id = $2 AND decision_id = $3 AND status = $4`,
			string(models.DecisionSuperseded), tenantID, predecessorID, string(models.DecisionActive))
		if err != nil {
			return apierrors.Wrap(apierrors.KindInternal, err, "failed to supersede decision")
		}
		count, _ := res.RowsAffected()
		if count == 0 {
			return apierrors.Conflict("decision %s was superseded concurrently", predecessorID)
		}

		replacement = &models.Decision{
			DecisionID:   uuid.New().String(),
			TenantID:     tenantID,
			TS:           time.Now(),
			Status:       models.DecisionActive,
			Scope:        in.Scope,
			Decision:     in.Decision,
			Rationale:    in.Rationale,
			Constraints:  in.Constraints,
			Alternatives: in.Alternatives,
			Consequences: in.Consequences,
			Refs:         appendIfMissing(in.Refs, predecessorID),
			SubjectType:  in.SubjectType,
			SubjectID:    in.SubjectID,
			ProjectID:    in.ProjectID,
			DecidedBy:    decidedBy,
		}
		return s.insertDecisionRow(ctx, tx, replacement)
	})
	if err != nil {
		return nil, err
	}
	return replacement, nil
}

// GetActiveDecision returns the highest-precedence active decision for a
// subject, applying §4.6's scope ordering (policy > project > user >
// session > global) in SQL via a CASE expression rather than in Go, so
// the tie-break is enforced at the same place the row lock is taken.
func (s *Storage) GetActiveDecision(ctx context.Context, tenantID, subjectType, subjectID string) (*models.Decision, error) {
	row := s.db.QueryRowContext(ctx, decisionSelect+`
		WHERE tenant_id = $1 AND subject_type = $2 AND subject_id = $3 AND status = 'active'
		ORDER BY CASE scope
			WHEN 'policy' THEN 4 WHEN 'project' THEN 3 WHEN 'user' THEN 2
			WHEN 'session' THEN 1 ELSE 0 END DESC, ts DESC
		LIMIT 1`, tenantID, subjectType, subjectID)

	d, err := scanDecision(row)
	if err != nil {
		return nil, wrapQueryErr("decision", err)
	}
	return d, nil
}

// ListActiveDecisions returns every active decision for a project, newest first.
func (s *Storage) ListActiveDecisions(ctx context.Context, tenantID, projectID string, limit int) ([]*models.Decision, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, decisionSelect+`
		WHERE tenant_id = $1 AND project_id = $2 AND status = 'active'
		ORDER BY ts DESC LIMIT $3`, tenantID, projectID, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list decisions")
	}
	defer rows.Close()

	var out []*models.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan decision")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// appendIfMissing returns refs with id appended unless it is already present.
func appendIfMissing(refs []string, id string) []string {
	for _, r := range refs {
		if r == id {
			return refs
		}
	}
	return append(append([]string{}, refs...), id)
}

func scanDecision(row rowScanner) (*models.Decision, error) {
	var d models.Decision
	var scope, status string
	var rationale, constraints, alternatives, consequences, refs []byte

	if err := row.Scan(&d.DecisionID, &d.TenantID, &scope, &d.Decision, &rationale, &constraints,
		&alternatives, &consequences, &refs, &d.SubjectType, &d.SubjectID, &d.ProjectID,
		&d.DecidedBy, &status, &d.TS); err != nil {
		return nil, err
	}
	d.Scope = models.Scope(scope)
	d.Status = models.DecisionStatus(status)
	_ = json.Unmarshal(rationale, &d.Rationale)
	_ = json.Unmarshal(constraints, &d.Constraints)
	_ = json.Unmarshal(alternatives, &d.Alternatives)
	_ = json.Unmarshal(consequences, &d.Consequences)
	_ = json.Unmarshal(refs, &d.Refs)
	return &d, nil
}

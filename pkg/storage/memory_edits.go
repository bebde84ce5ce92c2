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

const memoryEditSelect = `SELECT edit_id, tenant_id, target_type, target_id, op, reason,
	proposed_by, approved_by, status, patch, ts, applied_at FROM memory_edits`

// InsertMemoryEdit appends a pending edit directive. It never touches the
// target row — the effect is applied at read time by pkg/effective once
// the edit is approved.
func (s *Storage) InsertMemoryEdit(ctx context.Context, tenantID string, in models.CreateMemoryEditInput) (*models.MemoryEdit, error) {
	e := &models.MemoryEdit{
		EditID:     uuid.New().String(),
		TenantID:   tenantID,
		TS:         time.Now(),
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Op:         in.Op,
		Reason:     in.Reason,
		ProposedBy: in.ProposedBy,
		Status:     models.EditPending,
		Patch:      in.Patch,
	}
	patch, err := json.Marshal(e.Patch)
	if err != nil {
		return nil, apierrors.InvalidField("patch", "not JSON-serializable")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_edits (edit_id, tenant_id, target_type, target_id, op, reason,
			proposed_by, approved_by, status, patch, ts, applied_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.EditID, e.TenantID, string(e.TargetType), e.TargetID, string(e.Op), e.Reason,
		e.ProposedBy, e.ApprovedBy, string(e.Status), patch, e.TS, e.AppliedAt)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to insert memory edit")
	}
	return e, nil
}

// ApproveMemoryEdit flips a pending edit to approved under a conditional
// update, the same claim-guard shape SupersedeDecision uses for the
// ledger — two approvers racing the same edit can't both win.
func (s *Storage) ApproveMemoryEdit(ctx context.Context, tenantID, editID, approvedBy string) (*models.MemoryEdit, error) {
	var edit *models.MemoryEdit
	err := s.withTx(ctx, func(tx *stdsql.Tx) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			UPDATE memory_edits SET status = 'approved', approved_by = $1, applied_at = $2
			WHERE tenant_id = $3 AND edit_id = $4 AND status = 'pending'`,
			approvedBy, now, tenantID, editID)
		if err != nil {
			return apierrors.Wrap(apierrors.KindInternal, err, "failed to approve memory edit")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apierrors.Conflict("memory edit %s is not pending", editID)
		}
		row := tx.QueryRowContext(ctx, memoryEditSelect+` WHERE tenant_id = $1 AND edit_id = $2`, tenantID, editID)
		edit, err = scanMemoryEdit(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return edit, nil
}

// RejectMemoryEdit flips a pending edit to rejected.
func (s *Storage) RejectMemoryEdit(ctx context.Context, tenantID, editID, rejectedBy string) (*models.MemoryEdit, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memory_edits SET status = 'rejected', approved_by = $1
		WHERE tenant_id = $2 AND edit_id = $3 AND status = 'pending'`,
		rejectedBy, tenantID, editID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to reject memory edit")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apierrors.Conflict("memory edit %s is not pending", editID)
	}
	return s.GetMemoryEdit(ctx, tenantID, editID)
}

// GetMemoryEdit fetches one edit by id, tenant-scoped.
func (s *Storage) GetMemoryEdit(ctx context.Context, tenantID, editID string) (*models.MemoryEdit, error) {
	row := s.db.QueryRowContext(ctx, memoryEditSelect+` WHERE tenant_id = $1 AND edit_id = $2`, tenantID, editID)
	e, err := scanMemoryEdit(row)
	if err != nil {
		return nil, wrapQueryErr("memory edit", err)
	}
	return e, nil
}

// ListApprovedEditsForTarget returns approved edits for one target, ordered
// by approval time (applied_at), the order pkg/effective folds over to
// compute precedence — an edit proposed early but approved late must still
// land in its approval-order position, not its proposal-order one.
func (s *Storage) ListApprovedEditsForTarget(ctx context.Context, tenantID string, targetType models.EditTargetType, targetID string) ([]*models.MemoryEdit, error) {
	rows, err := s.db.QueryContext(ctx, memoryEditSelect+`
		WHERE tenant_id = $1 AND target_type = $2 AND target_id = $3 AND status = 'approved'
		ORDER BY applied_at ASC`, tenantID, string(targetType), targetID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list memory edits")
	}
	defer rows.Close()

	var out []*models.MemoryEdit
	for rows.Next() {
		e, err := scanMemoryEdit(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan memory edit")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListApprovedEditsForTargets batches ListApprovedEditsForTarget across many
// target ids in one round trip, the same dynamic IN-clause shape
// EventsExist uses, grouped by target_id for pkg/effective/pkg/retrieval to
// fold per candidate without an N+1 query per pool member. Same applied_at
// ordering as the single-target form.
func (s *Storage) ListApprovedEditsForTargets(ctx context.Context, tenantID string, targetType models.EditTargetType, targetIDs []string) (map[string][]*models.MemoryEdit, error) {
	out := make(map[string][]*models.MemoryEdit, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(targetIDs)+2)
	args = append(args, tenantID, string(targetType))
	placeholders := make([]byte, 0, len(targetIDs)*4)
	for i, id := range targetIDs {
		args = append(args, id)
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '$')
		placeholders = append(placeholders, []byte(itoa(i+3))...)
	}

	rows, err := s.db.QueryContext(ctx, memoryEditSelect+`
		WHERE tenant_id = $1 AND target_type = $2 AND target_id IN (`+string(placeholders)+`)
			AND status = 'approved'
		ORDER BY applied_at ASC`, args...)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list memory edits")
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanMemoryEdit(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan memory edit")
		}
		out[e.TargetID] = append(out[e.TargetID], e)
	}
	return out, rows.Err()
}

// ListMemoryEdits supports list_edits (§6) with status/target filters.
func (s *Storage) ListMemoryEdits(ctx context.Context, tenantID string, f models.EditFilters) ([]*models.MemoryEdit, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := memoryEditSelect + ` WHERE tenant_id = $1`
	args := []any{tenantID}
	if f.TargetType != "" {
		args = append(args, string(f.TargetType))
		query += " AND target_type = $" + itoa(len(args))
	}
	if f.TargetID != "" {
		args = append(args, f.TargetID)
		query += " AND target_id = $" + itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += " AND status = $" + itoa(len(args))
	}
	args = append(args, limit)
	query += " ORDER BY ts DESC LIMIT $" + itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list memory edits")
	}
	defer rows.Close()

	var out []*models.MemoryEdit
	for rows.Next() {
		e, err := scanMemoryEdit(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan memory edit")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanMemoryEdit(row rowScanner) (*models.MemoryEdit, error) {
	var e models.MemoryEdit
	var targetType, op, status string
	var patch []byte

	if err := row.Scan(&e.EditID, &e.TenantID, &targetType, &e.TargetID, &op, &e.Reason,
		&e.ProposedBy, &e.ApprovedBy, &status, &patch, &e.TS, &e.AppliedAt); err != nil {
		return nil, err
	}
	e.TargetType = models.EditTargetType(targetType)
	e.Op = models.EditOp(op)
	e.Status = models.EditStatus(status)
	if len(patch) > 0 {
		_ = json.Unmarshal(patch, &e.Patch)
	}
	return &e, nil
}

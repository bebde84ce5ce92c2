package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
)

const auditLogSelect = `SELECT audit_id, tenant_id, actor_type, actor_id, op, target, outcome,
	ip, metadata, ts FROM audit_logs`

// InsertAuditLog records one authenticated mutation, success or failure.
// Not part of the caller's transaction by default — an audit row should
// usually exist even when the mutation itself rolls back, so most callers
// log outcome after the fact rather than inside withTx. record_event is
// the one operation the spec requires to be atomic end to end including
// its audit entry (§4.2); that path uses insertAuditLogRow against the
// same tx directly (see RecordEvent in events.go) instead of this method.
func (s *Storage) InsertAuditLog(ctx context.Context, tenantID string, actor models.EventActor, op, target, outcome, ip string, metadata map[string]any) error {
	return insertAuditLogRow(ctx, s.db, tenantID, actor, op, target, outcome, ip, metadata)
}

func insertAuditLogRow(ctx context.Context, q queryer, tenantID string, actor models.EventActor, op, target, outcome, ip string, metadata map[string]any) error {
	md, _ := json.Marshal(metadata)
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_logs (audit_id, tenant_id, actor_type, actor_id, op, target, outcome, ip, metadata, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.New().String(), tenantID, string(actor.Type), actor.ID, op, target, outcome, nullableString(ip), md, time.Now())
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to insert audit log")
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListAuditLogs supports an off-hot-path audit query (§7).
func (s *Storage) ListAuditLogs(ctx context.Context, tenantID string, f models.AuditFilters) ([]*models.AuditLog, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	query := auditLogSelect + ` WHERE tenant_id = $1`
	args := []any{tenantID}

	if f.Actor != "" {
		args = append(args, f.Actor)
		query += " AND actor_id = $" + itoa(len(args))
	}
	if f.Op != "" {
		args = append(args, f.Op)
		query += " AND op = $" + itoa(len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		query += " AND ts >= $" + itoa(len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		query += " AND ts <= $" + itoa(len(args))
	}
	args = append(args, limit)
	query += " ORDER BY ts DESC LIMIT $" + itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list audit logs")
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan audit log")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PurgeAuditLogsBefore deletes every audit row older than cutoff, the
// retention-policy step of the consolidation worker (§4.10).
func (s *Storage) PurgeAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindInternal, err, "failed to purge audit logs")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	var a models.AuditLog
	var actorType string
	var ip *string
	var metadata []byte

	if err := row.Scan(&a.AuditID, &a.TenantID, &actorType, &a.Actor.ID, &a.Op, &a.Target,
		&a.Outcome, &ip, &metadata, &a.TS); err != nil {
		return nil, err
	}
	a.Actor.Type = models.ActorType(actorType)
	if ip != nil {
		a.IP = *ip
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &a.Metadata)
	}
	return &a, nil
}

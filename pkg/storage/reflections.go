package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
)

const reflectionSelect = `SELECT reflection_id, tenant_id, with_whom, insights,
	source_handoff_ids, ts FROM reflections`

// InsertReflection caches one consolidation pass's output for with_whom.
func (s *Storage) InsertReflection(ctx context.Context, tenantID, withWhom string, insights, sourceHandoffIDs []string) (*models.Reflection, error) {
	r := &models.Reflection{
		ReflectionID:     uuid.New().String(),
		TenantID:         tenantID,
		WithWhom:         withWhom,
		TS:               time.Now(),
		Insights:         insights,
		SourceHandoffIDs: sourceHandoffIDs,
	}
	ins, _ := json.Marshal(r.Insights)
	src, _ := json.Marshal(r.SourceHandoffIDs)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reflections (reflection_id, tenant_id, with_whom, insights, source_handoff_ids, ts)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ReflectionID, r.TenantID, r.WithWhom, ins, src, r.TS)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to insert reflection")
	}
	return r, nil
}

// GetLatestReflection fetches the most recent cached reflection for
// with_whom, or an apierrors.NotFound error if none exists yet (§4.9:
// wake_up reports {available:false, reason} rather than computing one
// inline).
func (s *Storage) GetLatestReflection(ctx context.Context, tenantID, withWhom string) (*models.Reflection, error) {
	row := s.db.QueryRowContext(ctx, reflectionSelect+`
		WHERE tenant_id = $1 AND with_whom = $2 ORDER BY ts DESC LIMIT 1`, tenantID, withWhom)
	r, err := scanReflection(row)
	if err != nil {
		return nil, wrapQueryErr("reflection", err)
	}
	return r, nil
}

func scanReflection(row rowScanner) (*models.Reflection, error) {
	var r models.Reflection
	var insights, src []byte

	if err := row.Scan(&r.ReflectionID, &r.TenantID, &r.WithWhom, &insights, &src, &r.TS); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(insights, &r.Insights)
	_ = json.Unmarshal(src, &r.SourceHandoffIDs)
	return &r, nil
}

package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const handoffSelect = `SELECT handoff_id, tenant_id, with_whom, session_id, experienced,
	noticed, learned, story, becoming, remember, significance, tags, compression_level,
	influenced_by, ts FROM handoffs`

// InsertHandoff appends one immutable structured reflection.
func (s *Storage) InsertHandoff(ctx context.Context, tenantID string, in models.CreateHandoffInput) (*models.Handoff, error) {
	level := in.CompressionLevel
	if level == "" {
		level = models.CompressionFull
	}
	h := &models.Handoff{
		HandoffID:        uuid.New().String(),
		TenantID:         tenantID,
		WithWhom:         in.WithWhom,
		SessionID:        in.SessionID,
		TS:               time.Now(),
		Experienced:      in.Experienced,
		Noticed:          in.Noticed,
		Learned:          in.Learned,
		Story:            in.Story,
		Becoming:         in.Becoming,
		Remember:         in.Remember,
		Significance:     in.Significance,
		Tags:             in.Tags,
		CompressionLevel: level,
		InfluencedBy:     in.InfluencedBy,
	}
	tags, _ := json.Marshal(h.Tags)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handoffs (handoff_id, tenant_id, with_whom, session_id, experienced, noticed,
			learned, story, becoming, remember, significance, tags, compression_level,
			influenced_by, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		h.HandoffID, h.TenantID, h.WithWhom, h.SessionID, h.Experienced, h.Noticed,
		h.Learned, h.Story, h.Becoming, h.Remember, h.Significance, tags, string(h.CompressionLevel),
		h.InfluencedBy, h.TS)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to insert handoff")
	}
	return h, nil
}

// ListRecentHandoffs returns the most recent handoffs for with_whom, newest first.
func (s *Storage) ListRecentHandoffs(ctx context.Context, tenantID, withWhom string, limit int) ([]*models.Handoff, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, handoffSelect+`
		WHERE tenant_id = $1 AND with_whom = $2 ORDER BY ts DESC LIMIT $3`,
		tenantID, withWhom, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list handoffs")
	}
	defer rows.Close()

	var out []*models.Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan handoff")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListHandoffsBySignificance returns handoffs for with_whom above a
// significance floor, highest first — the progressive-disclosure layer
// of wake_up.
func (s *Storage) ListHandoffsBySignificance(ctx context.Context, tenantID, withWhom string, minSignificance float64, limit int) ([]*models.Handoff, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, handoffSelect+`
		WHERE tenant_id = $1 AND with_whom = $2 AND significance >= $3
		ORDER BY significance DESC, ts DESC LIMIT $4`,
		tenantID, withWhom, minSignificance, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list handoffs by significance")
	}
	defer rows.Close()

	var out []*models.Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan handoff")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SearchHandoffsByTopic runs Postgres full-text search over
// (experienced, noticed, becoming) for with_whom — the progressive layer
// of wake_up_stratified, tenant-scoped FTS rather than a substring LIKE
// scan (§4.9). excludeIDs lets the caller drop handoffs already surfaced
// by the recent layer so progressive never duplicates them.
func (s *Storage) SearchHandoffsByTopic(ctx context.Context, tenantID, withWhom, topic string, excludeIDs []string, limit int) ([]*models.Handoff, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, handoffSelect+`
		WHERE tenant_id = $1 AND with_whom = $2
		AND to_tsvector('english', experienced || ' ' || noticed || ' ' || becoming)
			@@ plainto_tsquery('english', $3)
		AND NOT (handoff_id = ANY($4))
		ORDER BY significance DESC, ts DESC
		LIMIT $5`,
		tenantID, withWhom, topic, pq.Array(excludeIDs), limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to search handoffs by topic")
	}
	defer rows.Close()

	var out []*models.Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan handoff")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListHandoffsSince returns every handoff for (tenant, with_whom) at or
// after since, oldest first — the consolidation worker's unconsolidated
// backlog for a reflection pass (§4.10).
func (s *Storage) ListHandoffsSince(ctx context.Context, tenantID, withWhom string, since time.Time) ([]*models.Handoff, error) {
	rows, err := s.db.QueryContext(ctx, handoffSelect+`
		WHERE tenant_id = $1 AND with_whom = $2 AND ts >= $3 ORDER BY ts ASC`,
		tenantID, withWhom, since)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list handoffs since")
	}
	defer rows.Close()

	var out []*models.Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan handoff")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// CountHandoffsSince reports how many handoffs exist for with_whom at or
// after since, used by the consolidation worker to refresh session_count.
func (s *Storage) CountHandoffsSince(ctx context.Context, tenantID, withWhom string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM handoffs WHERE tenant_id = $1 AND with_whom = $2 AND ts >= $3`,
		tenantID, withWhom, since).Scan(&n)
	if err != nil {
		return 0, apierrors.Wrap(apierrors.KindInternal, err, "failed to count handoffs")
	}
	return n, nil
}

func scanHandoff(row rowScanner) (*models.Handoff, error) {
	var h models.Handoff
	var level string
	var tags []byte

	if err := row.Scan(&h.HandoffID, &h.TenantID, &h.WithWhom, &h.SessionID, &h.Experienced,
		&h.Noticed, &h.Learned, &h.Story, &h.Becoming, &h.Remember, &h.Significance, &tags,
		&level, &h.InfluencedBy, &h.TS); err != nil {
		return nil, err
	}
	h.CompressionLevel = models.CompressionLevel(level)
	_ = json.Unmarshal(tags, &h.Tags)
	return &h, nil
}

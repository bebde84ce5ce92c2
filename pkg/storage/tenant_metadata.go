package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

const tenantMetadataSelect = `SELECT tenant_id, with_whom, session_count, first_session,
	last_session, significance_avg, key_people, all_tags, high_significance_count, updated_at
	FROM tenant_metadata`

// GetTenantMetadata fetches the cached aggregate for (tenant, with_whom).
func (s *Storage) GetTenantMetadata(ctx context.Context, tenantID, withWhom string) (*models.TenantMetadata, error) {
	row := s.db.QueryRowContext(ctx, tenantMetadataSelect+
		` WHERE tenant_id = $1 AND with_whom = $2`, tenantID, withWhom)
	m, err := scanTenantMetadata(row)
	if err != nil {
		return nil, wrapQueryErr("tenant metadata", err)
	}
	return m, nil
}

// UpsertTenantMetadata recomputes the aggregate, run by the consolidation
// worker on a ticker rather than on every handoff write — this row is
// never maintained transactionally alongside handoffs.
func (s *Storage) UpsertTenantMetadata(ctx context.Context, m *models.TenantMetadata) error {
	m.UpdatedAt = time.Now()
	keyPeople, _ := json.Marshal(m.KeyPeople)
	allTags, _ := json.Marshal(m.AllTags)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_metadata (tenant_id, with_whom, session_count, first_session,
			last_session, significance_avg, key_people, all_tags, high_significance_count, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (tenant_id, with_whom) DO UPDATE SET
			session_count = EXCLUDED.session_count,
			first_session = EXCLUDED.first_session,
			last_session = EXCLUDED.last_session,
			significance_avg = EXCLUDED.significance_avg,
			key_people = EXCLUDED.key_people,
			all_tags = EXCLUDED.all_tags,
			high_significance_count = EXCLUDED.high_significance_count,
			updated_at = EXCLUDED.updated_at`,
		m.TenantID, m.WithWhom, m.SessionCount, m.FirstSession, m.LastSession,
		m.SignificanceAvg, keyPeople, allTags, m.HighSignificanceCount, m.UpdatedAt)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to upsert tenant metadata")
	}
	return nil
}

// highSignificanceFloor is the threshold above which a handoff counts
// toward TenantMetadata.HighSignificanceCount.
const highSignificanceFloor = 0.7

// ComputeTenantMetadata recomputes the aggregate for (tenant, with_whom)
// directly from handoffs in one query — run by the consolidation worker
// on its ticker, never on the hot path. key_people is derived from any
// tag carrying a "person:" prefix; handoffs without such tags contribute
// nothing to it.
func (s *Storage) ComputeTenantMetadata(ctx context.Context, tenantID, withWhom string) (*models.TenantMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH base AS (
			SELECT ts, significance, tags FROM handoffs WHERE tenant_id = $1 AND with_whom = $2
		),
		agg AS (
			SELECT count(*) AS session_count, min(ts) AS first_session, max(ts) AS last_session,
				coalesce(avg(significance), 0) AS significance_avg,
				count(*) FILTER (WHERE significance >= $3) AS high_significance_count
			FROM base
		),
		tag_list AS (
			SELECT DISTINCT jsonb_array_elements_text(tags) AS tag
			FROM base WHERE tags IS NOT NULL
		)
		SELECT agg.session_count, agg.first_session, agg.last_session, agg.significance_avg,
			agg.high_significance_count,
			coalesce((SELECT jsonb_agg(tag) FROM tag_list), '[]'::jsonb),
			coalesce((SELECT jsonb_agg(substring(tag from 8)) FROM tag_list WHERE tag LIKE 'person:%'), '[]'::jsonb)
		FROM agg`,
		tenantID, withWhom, highSignificanceFloor)

	m := &models.TenantMetadata{TenantID: tenantID, WithWhom: withWhom}
	var allTags, keyPeople []byte
	if err := row.Scan(&m.SessionCount, &m.FirstSession, &m.LastSession, &m.SignificanceAvg,
		&m.HighSignificanceCount, &allTags, &keyPeople); err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to compute tenant metadata")
	}
	_ = json.Unmarshal(allTags, &m.AllTags)
	_ = json.Unmarshal(keyPeople, &m.KeyPeople)
	return m, nil
}

// ListDistinctWithWhom returns every (tenant, with_whom) pair that has at
// least one handoff, the driver loop for the consolidation worker's
// metadata refresh.
func (s *Storage) ListDistinctWithWhom(ctx context.Context) ([]struct{ TenantID, WithWhom string }, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT tenant_id, with_whom FROM handoffs`)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list handoff subjects")
	}
	defer rows.Close()

	var out []struct{ TenantID, WithWhom string }
	for rows.Next() {
		var pair struct{ TenantID, WithWhom string }
		if err := rows.Scan(&pair.TenantID, &pair.WithWhom); err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan handoff subject")
		}
		out = append(out, pair)
	}
	return out, rows.Err()
}

func scanTenantMetadata(row rowScanner) (*models.TenantMetadata, error) {
	var m models.TenantMetadata
	var keyPeople, allTags []byte

	if err := row.Scan(&m.TenantID, &m.WithWhom, &m.SessionCount, &m.FirstSession, &m.LastSession,
		&m.SignificanceAvg, &keyPeople, &allTags, &m.HighSignificanceCount, &m.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(keyPeople, &m.KeyPeople)
	_ = json.Unmarshal(allTags, &m.AllTags)
	return &m, nil
}

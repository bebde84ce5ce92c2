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

// InsertChunk persists one derived chunk. Chunks are never updated in
// place — the chunker always writes a fresh row.
func (s *Storage) InsertChunk(ctx context.Context, c *models.Chunk) error {
	return insertChunkRow(ctx, s.db, c)
}

// insertChunkRow does the actual INSERT against q, shared by standalone
// InsertChunk and RecordEvent's atomic pipeline (events.go).
func insertChunkRow(ctx context.Context, q queryer, c *models.Chunk) error {
	if c.ChunkID == "" {
		c.ChunkID = uuid.New().String()
	}
	if c.TS.IsZero() {
		c.TS = time.Now()
	}
	tags, _ := json.Marshal(c.Tags)
	refs, _ := json.Marshal(c.Refs)

	_, err := q.ExecContext(ctx, `
		INSERT INTO chunks (chunk_id, tenant_id, event_id, session_id, kind, channel, sensitivity,
			tags, text, token_est, importance, scope, subject_type, subject_id, project_id, refs, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		c.ChunkID, c.TenantID, c.EventID, c.SessionID, string(c.Kind), string(c.Channel), string(c.Sensitivity),
		tags, c.Text, c.TokenEst, c.Importance, nullableScope(c.Scope),
		c.SubjectType, c.SubjectID, c.ProjectID, refs, c.TS)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to insert chunk")
	}
	return nil
}

// GetChunk fetches one chunk by id, tenant-scoped.
func (s *Storage) GetChunk(ctx context.Context, tenantID, chunkID string) (*models.Chunk, error) {
	row := s.db.QueryRowContext(ctx, chunkSelect+` WHERE tenant_id = $1 AND chunk_id = $2`, tenantID, chunkID)
	c, err := scanChunk(row)
	if err != nil {
		return nil, wrapQueryErr("chunk", err)
	}
	return c, nil
}

// ChunkCandidateFilter narrows ListChunkCandidates (C5's candidate pool).
type ChunkCandidateFilter struct {
	SessionID   string
	ProjectID   string
	Scope       models.Scope
	SubjectType string
	SubjectID   string
	Since       *time.Time
	Limit       int
}

const chunkSelect = `SELECT chunk_id, tenant_id, event_id, session_id, kind, channel, sensitivity,
	tags, text, token_est, importance, scope, subject_type, subject_id, project_id, refs, ts
	FROM chunks`

// ListChunkCandidates returns a bounded, tenant-scoped candidate pool for
// retrieval scoring (§4.5). It does not apply MemoryEdit precedence —
// callers layer pkg/effective on top of the result.
func (s *Storage) ListChunkCandidates(ctx context.Context, tenantID string, f ChunkCandidateFilter) ([]*models.Chunk, error) {
	limit := f.Limit
	if limit <= 0 || limit > models.DefaultMaxCandidatePool {
		limit = models.DefaultMaxCandidatePool
	}

	query := chunkSelect + ` WHERE tenant_id = $1`
	args := []any{tenantID}

	if f.SessionID != "" {
		args = append(args, f.SessionID)
		query += " AND session_id = $" + itoa(len(args))
	}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		query += " AND project_id = $" + itoa(len(args))
	}
	if f.Scope != "" {
		args = append(args, string(f.Scope))
		query += " AND scope = $" + itoa(len(args))
	}
	if f.SubjectType != "" && f.SubjectID != "" {
		args = append(args, f.SubjectType)
		query += " AND subject_type = $" + itoa(len(args))
		args = append(args, f.SubjectID)
		query += " AND subject_id = $" + itoa(len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		query += " AND ts >= $" + itoa(len(args))
	}
	query += " ORDER BY ts DESC LIMIT " + itoa(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list chunk candidates")
	}
	defer rows.Close()

	var out []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan chunk")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchChunksFTS runs Postgres full-text search over chunk text, the raw
// SQL escape hatch the teacher itself reaches for in SearchSessions —
// plainto_tsquery, never a LIKE scan.
func (s *Storage) SearchChunksFTS(ctx context.Context, tenantID, query string, limit int) ([]*models.Chunk, error) {
	if limit <= 0 || limit > models.DefaultMaxCandidatePool {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, chunkSelect+`
		WHERE tenant_id = $1 AND to_tsvector('english', text) @@ plainto_tsquery('english', $2)
		ORDER BY ts DESC
		LIMIT $3`, tenantID, query, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to search chunks")
	}
	defer rows.Close()

	var out []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan chunk")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunksByIDs fetches a tenant-scoped batch of chunks, order not
// guaranteed to match ids — the get_chunks operation's base read, before
// pkg/effective resolves edits on top.
func (s *Storage) GetChunksByIDs(ctx context.Context, tenantID string, chunkIDs []string) ([]*models.Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, chunkSelect+`
		WHERE tenant_id = $1 AND chunk_id = ANY($2)`, tenantID, pq.Array(chunkIDs))
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to get chunks by id")
	}
	defer rows.Close()

	var out []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan chunk")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListChunksNearTS returns every chunk in the same session as anchorTS
// within windowSeconds on either side, the get_timeline operation's base
// read (§4.4 effective view is layered on top by the caller).
func (s *Storage) ListChunksNearTS(ctx context.Context, tenantID, sessionID string, anchorTS time.Time, windowSeconds int) ([]*models.Chunk, error) {
	from := anchorTS.Add(-time.Duration(windowSeconds) * time.Second)
	to := anchorTS.Add(time.Duration(windowSeconds) * time.Second)

	rows, err := s.db.QueryContext(ctx, chunkSelect+`
		WHERE tenant_id = $1 AND session_id = $2 AND ts BETWEEN $3 AND $4
		ORDER BY ts ASC`, tenantID, sessionID, from, to)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list chunks near ts")
	}
	defer rows.Close()

	var out []*models.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan chunk")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChunk(row rowScanner) (*models.Chunk, error) {
	var c models.Chunk
	var kind, channel, sensitivity string
	var scope *string
	var tags, refs []byte

	if err := row.Scan(&c.ChunkID, &c.TenantID, &c.EventID, &c.SessionID, &kind, &channel, &sensitivity,
		&tags, &c.Text, &c.TokenEst, &c.Importance, &scope, &c.SubjectType, &c.SubjectID, &c.ProjectID,
		&refs, &c.TS); err != nil {
		return nil, err
	}
	c.Kind = models.EventKind(kind)
	c.Channel = models.Channel(channel)
	c.Sensitivity = models.Sensitivity(sensitivity)
	if scope != nil {
		sc := models.Scope(*scope)
		c.Scope = &sc
	}
	if len(tags) > 0 {
		_ = json.Unmarshal(tags, &c.Tags)
	}
	if len(refs) > 0 {
		_ = json.Unmarshal(refs, &c.Refs)
	}
	return &c, nil
}

// itoa avoids pulling in strconv at every call site for small positive ints.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

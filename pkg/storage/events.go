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

// InsertEvent appends one Event row. Events are never updated or deleted.
func (s *Storage) InsertEvent(ctx context.Context, tenantID string, in models.CreateEventInput) (*models.Event, error) {
	ev := newEvent(tenantID, in)
	if err := insertEventRow(ctx, s.db, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func newEvent(tenantID string, in models.CreateEventInput) *models.Event {
	return &models.Event{
		EventID:     uuid.New().String(),
		TenantID:    tenantID,
		SessionID:   in.SessionID,
		TS:          time.Now(),
		Channel:     in.Channel,
		Actor:       in.Actor,
		Kind:        in.Kind,
		Sensitivity: in.Sensitivity,
		Tags:        in.Tags,
		Content:     in.Content,
		Refs:        in.Refs,
		Scope:       in.Scope,
		SubjectType: in.SubjectType,
		SubjectID:   in.SubjectID,
		ProjectID:   in.ProjectID,
	}
}

// insertEventRow does the actual INSERT against q, which is either *sql.DB
// (standalone InsertEvent) or a *sql.Tx (RecordEvent's atomic pipeline).
func insertEventRow(ctx context.Context, q queryer, ev *models.Event) error {
	content, err := json.Marshal(ev.Content)
	if err != nil {
		return apierrors.InvalidField("content", "not JSON-serializable")
	}
	tags, _ := json.Marshal(ev.Tags)
	refs, _ := json.Marshal(ev.Refs)

	_, err = q.ExecContext(ctx, `
		INSERT INTO events (event_id, tenant_id, session_id, actor_type, actor_id, kind,
			content, channel, sensitivity, scope, subject_type, subject_id, project_id, tags, refs, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		ev.EventID, ev.TenantID, ev.SessionID, string(ev.Actor.Type), ev.Actor.ID, string(ev.Kind),
		content, string(ev.Channel), string(ev.Sensitivity), nullableScope(ev.Scope),
		ev.SubjectType, ev.SubjectID, ev.ProjectID, tags, refs, ev.TS)
	if err != nil {
		if isUniqueViolation(err) {
			return apierrors.Conflict("event %s already exists", ev.EventID)
		}
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to insert event")
	}
	return nil
}

// RecordEvent runs the whole record_event pipeline — insert event, derive
// and insert its chunks, write the audit log entry — in one transaction,
// mirroring the teacher's persistAndNotify (EventPublisher): either every
// step lands, or none does. derive is pkg/chunker.Derive; storage takes it
// as a parameter rather than importing pkg/chunker, since storage is the
// leaf of the dependency graph and every other domain package calls
// through it, never the reverse.
func (s *Storage) RecordEvent(ctx context.Context, tenantID string, in models.CreateEventInput, derive func(*models.Event) []*models.Chunk) (*models.Event, []*models.Chunk, error) {
	ev := newEvent(tenantID, in)
	var chunks []*models.Chunk

	err := s.withTx(ctx, func(tx *stdsql.Tx) error {
		if err := insertEventRow(ctx, tx, ev); err != nil {
			return err
		}

		chunks = derive(ev)
		for _, c := range chunks {
			if err := insertChunkRow(ctx, tx, c); err != nil {
				return err
			}
		}

		return insertAuditLogRow(ctx, tx, tenantID, ev.Actor, "record_event", ev.EventID, "success", "", nil)
	})
	if err != nil {
		return nil, nil, err
	}
	return ev, chunks, nil
}

func nullableScope(s *models.Scope) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

// EventsExist reports whether every id in eventIDs resolves to an event
// under tenantID, for record_event's "refs must resolve to events of the
// same tenant" constraint (§4.2).
func (s *Storage) EventsExist(ctx context.Context, tenantID string, eventIDs []string) (bool, error) {
	return idsExist(ctx, s.db, "events", "event_id", tenantID, eventIDs)
}

// GetEvent fetches one event by id, tenant-scoped.
func (s *Storage) GetEvent(ctx context.Context, tenantID, eventID string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT event_id, tenant_id, session_id, actor_type, actor_id, kind, content,
			channel, sensitivity, scope, subject_type, subject_id, project_id, tags, refs, ts
		FROM events
		WHERE tenant_id = $1 AND event_id = $2`, tenantID, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, wrapQueryErr("event", err)
	}
	return ev, nil
}

// ListEventsBySession returns events for one session, newest first, bounded by limit.
func (s *Storage) ListEventsBySession(ctx context.Context, tenantID, sessionID string, limit int) ([]*models.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, tenant_id, session_id, actor_type, actor_id, kind, content,
			channel, sensitivity, scope, subject_type, subject_id, project_id, tags, refs, ts
		FROM events
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY ts DESC
		LIMIT $3`, tenantID, sessionID, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list events")
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan event")
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var ev models.Event
	var actorType, kind, channel, sensitivity string
	var scope *string
	var content, tags, refs []byte

	if err := row.Scan(&ev.EventID, &ev.TenantID, &ev.SessionID, &actorType, &ev.Actor.ID, &kind,
		&content, &channel, &sensitivity, &scope, &ev.SubjectType, &ev.SubjectID, &ev.ProjectID,
		&tags, &refs, &ev.TS); err != nil {
		return nil, err
	}

	ev.Actor.Type = models.ActorType(actorType)
	ev.Kind = models.EventKind(kind)
	ev.Channel = models.Channel(channel)
	ev.Sensitivity = models.Sensitivity(sensitivity)
	if scope != nil {
		sc := models.Scope(*scope)
		ev.Scope = &sc
	}
	if len(content) > 0 {
		_ = json.Unmarshal(content, &ev.Content)
	}
	if len(tags) > 0 {
		_ = json.Unmarshal(tags, &ev.Tags)
	}
	if len(refs) > 0 {
		_ = json.Unmarshal(refs, &ev.Refs)
	}
	return &ev, nil
}

// Package recorder implements record_event (§4.2): validate a caller's
// event, redact it when its sensitivity warrants it, then hand it to
// storage for the atomic insert-event/derive-chunks/audit-log pipeline.
package recorder

import (
	"context"
	"encoding/json"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/chunker"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/redaction"
)

// Store is the slice of *storage.Storage the recorder needs. Narrowed to
// an interface so tests can fake it without a database.
type Store interface {
	EventsExist(ctx context.Context, tenantID string, eventIDs []string) (bool, error)
	RecordEvent(ctx context.Context, tenantID string, in models.CreateEventInput, derive func(*models.Event) []*models.Chunk) (*models.Event, []*models.Chunk, error)
}

// Recorder owns record_event end to end.
type Recorder struct {
	store     Store
	redactor  *redaction.Service
	redactMin models.Sensitivity
}

// New wires a Recorder against storage and the redaction service, with
// redactMin the floor from config.Config.RedactionMinSensitivity.
func New(store Store, redactor *redaction.Service, redactMin models.Sensitivity) *Recorder {
	return &Recorder{store: store, redactor: redactor, redactMin: redactMin}
}

// RecordEvent validates in, redacts its content when warranted, and
// persists it along with its derived chunks and an audit log entry, all
// in one transaction.
func (r *Recorder) RecordEvent(ctx context.Context, tenantID string, in models.CreateEventInput) (*models.RecordEventResult, error) {
	if err := r.validate(ctx, tenantID, &in); err != nil {
		return nil, err
	}

	if r.redactor != nil && r.redactMin.LTE(in.Sensitivity) {
		in.Content = r.redactor.RedactContent(in.Content)
	}

	ev, chunks, err := r.store.RecordEvent(ctx, tenantID, in, chunker.Derive)
	if err != nil {
		return nil, err
	}

	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.ChunkID
	}

	return &models.RecordEventResult{
		EventID:  ev.EventID,
		TS:       ev.TS,
		ChunkIDs: chunkIDs,
	}, nil
}

func (r *Recorder) validate(ctx context.Context, tenantID string, in *models.CreateEventInput) error {
	if in.SessionID == "" {
		return apierrors.InvalidField("session_id", "required")
	}
	if !in.Channel.Valid() {
		return apierrors.InvalidField("channel", "unknown channel")
	}
	if !in.Actor.Type.Valid() {
		return apierrors.InvalidField("actor.type", "unknown actor type")
	}
	if in.Actor.ID == "" {
		return apierrors.InvalidField("actor.id", "required")
	}
	if !in.Kind.Valid() {
		return apierrors.InvalidField("kind", "unknown event kind")
	}
	if in.Content == nil {
		return apierrors.InvalidField("content", "required")
	}
	if in.Sensitivity == "" {
		in.Sensitivity = models.SensitivityNone
	} else if !in.Sensitivity.Valid() {
		return apierrors.InvalidField("sensitivity", "unknown sensitivity")
	}
	if in.Scope != nil && !in.Scope.Valid() {
		return apierrors.InvalidField("scope", "unknown scope")
	}

	encoded, err := json.Marshal(in.Content)
	if err != nil {
		return apierrors.InvalidField("content", "not JSON-serializable")
	}
	if len(encoded) > models.MaxContentBytes {
		return apierrors.InvalidField("content", "exceeds max content size")
	}

	if len(in.Refs) > 0 {
		ok, err := r.store.EventsExist(ctx, tenantID, in.Refs)
		if err != nil {
			return err
		}
		if !ok {
			return apierrors.InvalidField("refs", "one or more refs do not resolve to an event in this tenant")
		}
	}

	return nil
}

package models

import "time"

// EventActor identifies who produced an Event.
type EventActor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id"`
}

// Event is the append-only, never-mutated unit of ingestion (§3).
type Event struct {
	EventID     string         `json:"event_id"`
	TenantID    string         `json:"tenant_id"`
	SessionID   string         `json:"session_id"`
	TS          time.Time      `json:"ts"`
	Channel     Channel        `json:"channel"`
	Actor       EventActor     `json:"actor"`
	Kind        EventKind      `json:"kind"`
	Sensitivity Sensitivity    `json:"sensitivity"`
	Tags        []string       `json:"tags,omitempty"`
	Content     map[string]any `json:"content"`
	Refs        []string       `json:"refs,omitempty"`
	Scope       *Scope         `json:"scope,omitempty"`
	SubjectType *string        `json:"subject_type,omitempty"`
	SubjectID   *string        `json:"subject_id,omitempty"`
	ProjectID   *string        `json:"project_id,omitempty"`
}

// MaxContentBytes bounds Event.Content's serialized size (§3, §5).
const MaxContentBytes = 64 * 1024

// MaxChunkTextBytes bounds Chunk.Text (§5).
const MaxChunkTextBytes = 8 * 1024

// CreateEventInput is the caller-supplied payload for record_event (§4.2, §6).
type CreateEventInput struct {
	SessionID   string         `json:"session_id"`
	Channel     Channel        `json:"channel"`
	Actor       EventActor     `json:"actor"`
	Kind        EventKind      `json:"kind"`
	Sensitivity Sensitivity    `json:"sensitivity,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Content     map[string]any `json:"content"`
	Refs        []string       `json:"refs,omitempty"`
	Scope       *Scope         `json:"scope,omitempty"`
	SubjectType *string        `json:"subject_type,omitempty"`
	SubjectID   *string        `json:"subject_id,omitempty"`
	ProjectID   *string        `json:"project_id,omitempty"`
}

// RecordEventResult is the output of record_event (§6).
type RecordEventResult struct {
	EventID  string    `json:"event_id"`
	TS       time.Time `json:"ts"`
	ChunkIDs []string  `json:"chunk_ids"`
}

// EventPage is a ts-desc page of events for list_events.
type EventPage struct {
	Events     []*Event `json:"events"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

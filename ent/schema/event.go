package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Event holds the schema definition for the Event entity. Events are the
// append-only source of truth: nothing about an event is ever mutated once
// recorded, and every row carries a tenant_id.
type Event struct {
	ent.Schema
}

// Fields of the Event.
func (Event) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("event_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable().
			Comment("Every query against this table must filter on tenant_id"),
		field.String("session_id").
			Immutable(),
		field.String("actor_type").
			Immutable().
			Comment("human | agent | tool"),
		field.String("actor_id").
			Immutable(),
		field.Enum("kind").
			Values("message", "tool_call", "tool_result", "decision", "task_update", "artifact").
			Immutable(),
		field.JSON("content", map[string]interface{}{}).
			Immutable().
			Comment("Raw payload, bounded to MaxContentBytes at the recorder"),
		field.Enum("channel").
			Values("private", "team", "agent", "public").
			Default("private").
			Immutable(),
		field.Enum("sensitivity").
			Values("none", "low", "high", "secret").
			Default("none").
			Immutable(),
		field.Enum("scope").
			Values("session", "user", "project", "policy", "global").
			Optional().
			Nillable().
			Immutable(),
		field.String("subject_type").
			Optional().
			Nillable().
			Immutable(),
		field.String("subject_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("project_id").
			Optional().
			Nillable().
			Immutable(),
		field.JSON("tags", []string{}).
			Optional().
			Immutable(),
		field.JSON("refs", []string{}).
			Optional().
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Event.
func (Event) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "session_id", "ts"),
		index.Fields("tenant_id", "ts"),
		index.Fields("tenant_id", "project_id"),
	}
}

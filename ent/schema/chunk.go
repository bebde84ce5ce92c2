package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Chunk holds the schema definition for the Chunk entity. A Chunk is
// derived from one Event by the chunker and is itself never mutated in
// place — surfacing changes are expressed as MemoryEdit rows layered on
// at read time.
type Chunk struct {
	ent.Schema
}

// Fields of the Chunk.
func (Chunk) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("chunk_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("event_id").
			Immutable(),
		field.String("session_id").
			Immutable(),
		field.Enum("kind").
			Values("message", "tool_call", "tool_result", "decision", "task_update", "artifact").
			Immutable(),
		field.Enum("channel").
			Values("private", "team", "agent", "public").
			Default("private").
			Immutable(),
		field.Enum("sensitivity").
			Values("none", "low", "high", "secret").
			Default("none").
			Immutable(),
		field.JSON("tags", []string{}).
			Optional().
			Immutable(),
		field.Text("text").
			Immutable().
			Comment("Bounded to MaxChunkTextBytes; full-text searchable"),
		field.Int("token_est").
			Default(0).
			Immutable(),
		field.Float("importance").
			Default(0.5).
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
		field.JSON("refs", []string{}).
			Optional().
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Chunk.
func (Chunk) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "ts"),
		index.Fields("tenant_id", "scope"),
		index.Fields("tenant_id", "subject_type", "subject_id"),
		index.Fields("tenant_id", "project_id"),
		index.Fields("event_id"),
	}
}

// Annotations for PostgreSQL-specific features.
// GIN index over to_tsvector(text) is created via the migration hook in
// pkg/database/migrations.go, not expressible through ent schema/migrate.
func (Chunk) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{},
	}
}

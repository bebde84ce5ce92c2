package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Artifact holds the schema definition for the Artifact entity — a
// content-addressed pointer registered against this core. The bytes
// themselves live behind StorageRef, an external blob store this core
// treats as an opaque collaborator; the core persists only metadata and
// the content hash.
type Artifact struct {
	ent.Schema
}

// Fields of the Artifact.
func (Artifact) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("artifact_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
		field.String("content_hash").
			Immutable(),
		field.String("content_type").
			Immutable(),
		field.Int64("size_bytes").
			Immutable(),
		field.String("storage_ref").
			Immutable(),
		field.String("title").
			Optional().
			Immutable(),
	}
}

// Indexes of the Artifact.
func (Artifact) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "content_hash"),
		index.Fields("tenant_id", "ts"),
	}
}

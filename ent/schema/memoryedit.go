package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// MemoryEdit holds the schema definition for the MemoryEdit entity. Edits
// are append-only directives that alter how a chunk/decision/capsule is
// surfaced at read time; the target row is never touched.
type MemoryEdit struct {
	ent.Schema
}

// Fields of the MemoryEdit.
func (MemoryEdit) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("edit_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Enum("target_type").
			Values("chunk", "decision", "capsule").
			Immutable(),
		field.String("target_id").
			Immutable(),
		field.Enum("op").
			Values("retract", "amend", "quarantine", "attenuate", "block").
			Immutable(),
		field.Text("reason").
			Immutable(),
		field.String("proposed_by").
			Immutable(),
		field.String("approved_by").
			Optional().
			Nillable(),
		field.Enum("status").
			Values("pending", "approved", "rejected").
			Default("pending"),
		field.JSON("patch", map[string]interface{}{}).
			Optional().
			Immutable().
			Comment("op-dependent: text/importance/importance_delta/channel"),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
		field.Time("applied_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the MemoryEdit.
func (MemoryEdit) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "target_type", "target_id", "ts"),
		index.Fields("tenant_id", "status"),
	}
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Handoff holds the schema definition for the Handoff entity — an
// immutable structured reflection written at session end.
type Handoff struct {
	ent.Schema
}

// Fields of the Handoff.
func (Handoff) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("handoff_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("with_whom").
			Immutable(),
		field.String("session_id").
			Immutable(),
		field.Text("experienced").
			Immutable(),
		field.Text("noticed").
			Immutable(),
		field.Text("learned").
			Immutable(),
		field.Text("story").
			Immutable(),
		field.Text("becoming").
			Immutable(),
		field.Text("remember").
			Immutable(),
		field.Float("significance").
			Immutable(),
		field.JSON("tags", []string{}).
			Optional().
			Immutable(),
		field.Enum("compression_level").
			Values("full", "summary", "quick_ref").
			Default("full").
			Immutable(),
		field.String("influenced_by").
			Optional().
			Nillable().
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Handoff.
func (Handoff) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "with_whom", "ts"),
		index.Fields("tenant_id", "with_whom", "significance"),
	}
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Reflection holds the schema definition for the Reflection entity — a
// cached, consolidated set of insights produced by the background worker,
// never computed inline on the wake-up path.
type Reflection struct {
	ent.Schema
}

// Fields of the Reflection.
func (Reflection) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("reflection_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("with_whom").
			Immutable(),
		field.JSON("insights", []string{}).
			Immutable(),
		field.JSON("source_handoff_ids", []string{}).
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Reflection.
func (Reflection) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "with_whom", "ts"),
	}
}

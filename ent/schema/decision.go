package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Decision holds the schema definition for the Decision entity. Decisions
// form an append-only ledger: superseding a decision writes a new row and
// flips the predecessor's status under a row lock, it never rewrites the
// predecessor's content.
type Decision struct {
	ent.Schema
}

// Fields of the Decision.
func (Decision) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("decision_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Enum("scope").
			Values("session", "user", "project", "policy", "global").
			Immutable(),
		field.Text("decision").
			Immutable(),
		field.JSON("rationale", []string{}).
			Optional().
			Immutable(),
		field.JSON("constraints", []string{}).
			Optional().
			Immutable(),
		field.JSON("alternatives", []string{}).
			Optional().
			Immutable(),
		field.JSON("consequences", []string{}).
			Optional().
			Immutable(),
		field.JSON("refs", []string{}).
			Optional().
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
		field.String("decided_by").
			Immutable(),
		field.Enum("status").
			Values("active", "superseded").
			Default("active"),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Decision.
func (Decision) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "status"),
		index.Fields("tenant_id", "subject_type", "subject_id", "status"),
		index.Fields("tenant_id", "project_id", "status"),
	}
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Capsule holds the schema definition for the Capsule entity — a
// curated, audience-scoped, TTL-bounded bundle of chunk/decision/
// artifact references.
type Capsule struct {
	ent.Schema
}

// Fields of the Capsule.
func (Capsule) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("capsule_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Enum("scope").
			Values("session", "user", "project", "policy", "global").
			Immutable(),
		field.String("subject_type").
			Immutable(),
		field.String("subject_id").
			Immutable(),
		field.String("project_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("author_agent_id").
			Immutable(),
		field.JSON("audience_agent_ids", []string{}).
			Immutable(),
		field.JSON("items", map[string]interface{}{}).
			Immutable().
			Comment("{chunks:[], decisions:[], artifacts:[]} id lists"),
		field.JSON("risks", []string{}).
			Optional().
			Immutable(),
		field.Int("ttl_days").
			Immutable(),
		field.Enum("status").
			Values("active", "revoked", "expired").
			Default("active"),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
		field.Time("expires_at").
			Immutable(),
	}
}

// Indexes of the Capsule.
func (Capsule) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "status", "expires_at"),
		index.Fields("tenant_id", "subject_type", "subject_id"),
	}
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AuditLog holds the schema definition for the AuditLog entity. Every
// authenticated mutation is recorded here, success or failure; it is
// never read on the hot path.
type AuditLog struct {
	ent.Schema
}

// Fields of the AuditLog.
func (AuditLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("audit_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("actor_type").
			Immutable(),
		field.String("actor_id").
			Immutable(),
		field.String("op").
			Immutable(),
		field.String("target").
			Immutable(),
		field.String("outcome").
			Immutable().
			Comment("success | error:<kind>"),
		field.String("ip").
			Optional().
			Nillable().
			Immutable(),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the AuditLog.
func (AuditLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "ts"),
		index.Fields("tenant_id", "actor_id", "ts"),
		index.Fields("tenant_id", "op", "ts"),
	}
}

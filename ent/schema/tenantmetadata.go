package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TenantMetadata holds the schema definition for the TenantMetadata
// entity — an aggregate maintained per (tenant, with_whom) and refreshed
// by the consolidation worker, never computed as a correlated subquery on
// the hot wake-up path.
type TenantMetadata struct {
	ent.Schema
}

// Fields of the TenantMetadata.
func (TenantMetadata) Fields() []ent.Field {
	return []ent.Field{
		field.String("tenant_id").
			Immutable(),
		field.String("with_whom").
			Immutable(),
		field.Int("session_count").
			Default(0),
		field.Time("first_session").
			Optional().
			Nillable(),
		field.Time("last_session").
			Optional().
			Nillable(),
		field.Float("significance_avg").
			Default(0),
		field.JSON("key_people", []string{}).
			Optional(),
		field.JSON("all_tags", []string{}).
			Optional(),
		field.Int("high_significance_count").
			Default(0),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the TenantMetadata.
func (TenantMetadata) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "with_whom").
			Unique(),
	}
}

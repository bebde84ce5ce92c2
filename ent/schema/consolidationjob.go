package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ConsolidationJob holds the schema definition for the ConsolidationJob
// entity — one row per run of the background consolidation worker, used
// to make its work idempotent across restarts.
type ConsolidationJob struct {
	ent.Schema
}

// Fields of the ConsolidationJob.
func (ConsolidationJob) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("kind").
			Immutable().
			Comment("metadata_refresh | capsule_expiry | reflection | retention"),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("ended_at").
			Optional().
			Nillable(),
		field.Int("count").
			Default(0),
		field.Enum("status").
			Values("running", "succeeded", "failed").
			Default("running"),
		field.Text("error").
			Optional().
			Nillable(),
	}
}

// Indexes of the ConsolidationJob.
func (ConsolidationJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("kind", "started_at"),
	}
}

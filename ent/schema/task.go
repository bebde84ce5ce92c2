package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Task holds the schema definition for the Task entity. Unlike Event and
// Chunk, tasks are mutated in place — status/progress/assignee change as
// the work progresses. The dependency graph (blocked_by/blocking) is
// maintained as redundant JSON arrays on both sides rather than a join
// table, since this core never needs to traverse it relationally.
type Task struct {
	ent.Schema
}

// Fields of the Task.
func (Task) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("task_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Time("ts").
			Default(time.Now).
			Immutable(),
		field.Text("title"),
		field.Text("details").
			Optional(),
		field.Enum("status").
			Values("backlog", "open", "doing", "review", "blocked", "done").
			Default("open"),
		field.String("priority").
			Optional(),
		field.Int("progress_percent").
			Default(0),
		field.String("assignee_id").
			Optional().
			Nillable(),
		field.JSON("refs", []string{}).
			Optional(),
		field.JSON("blocked_by", []string{}).
			Optional(),
		field.JSON("blocking", []string{}).
			Optional(),
		field.JSON("project_refs", []string{}).
			Optional(),
		field.Time("start_date").
			Optional().
			Nillable(),
		field.Time("due_date").
			Optional().
			Nillable(),
	}
}

// Indexes of the Task.
func (Task) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "status"),
		index.Fields("tenant_id", "assignee_id", "status"),
	}
}

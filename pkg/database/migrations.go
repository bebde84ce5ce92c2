package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
)

// CreateGINIndexes creates the full-text-search GIN indexes that the plain
// DDL in pkg/database/migrations cannot express through golang-migrate's
// forward-only .sql files alone — kept as a dedicated, idempotent step so
// it can be re-run safely after a migration adds a new searchable column.
func CreateGINIndexes(ctx context.Context, db *stdsql.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{
			name: "chunks_text_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_chunks_text_gin
				ON chunks USING gin(to_tsvector('english', text))`,
		},
		{
			name: "events_content_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_events_content_gin
				ON events USING gin(to_tsvector('english', content::text))`,
		},
		{
			name: "decisions_decision_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_decisions_decision_gin
				ON decisions USING gin(to_tsvector('english', decision))`,
		},
		{
			name: "handoffs_story_gin",
			sql: `CREATE INDEX IF NOT EXISTS idx_handoffs_story_gin
				ON handoffs USING gin(to_tsvector('english',
					experienced || ' ' || noticed || ' ' || learned || ' ' || story))`,
		},
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s index: %w", stmt.name, err)
		}
	}

	return nil
}

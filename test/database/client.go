package database

import (
	"testing"

	"github.com/callin2/agent-memory-sub006/pkg/database"
	"github.com/callin2/agent-memory-sub006/test/util"
)

// NewTestClient creates a test database client.
// In CI (when CI_DATABASE_URL is set): connects to an external PostgreSQL
// service container. In local dev: reuses a shared testcontainer started
// once per package. Each call gets its own schema for isolation; cleanup
// is registered automatically via t.Cleanup.
func NewTestClient(t *testing.T) *database.Client {
	db := util.SetupTestDatabase(t)
	return database.NewClientFromDB(db)
}

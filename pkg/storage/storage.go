// Package storage is the only package that touches SQL directly. Every
// other domain package (chunker, recorder, retrieval, decisions,
// capsules, orchestrator, handoff, consolidation) calls through here.
// There is no generated ORM client behind it — ent/schema/*.go documents
// the shape, this package queries it with database/sql + pgx, the same
// escape hatch the teacher itself used for anything its generated client
// couldn't express (see SearchSessions in the teacher's session_service.go).
package storage

import (
	"context"
	stdsql "database/sql"
	"errors"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/database"
	"github.com/jackc/pgx/v5/pgconn"
)

// Storage wraps a *database.Client with the query methods the domain
// packages need. All methods are tenant-scoped; every query carries a
// tenant_id predicate.
type Storage struct {
	db *stdsql.DB
}

// New wraps an already-migrated database.Client.
func New(client *database.Client) *Storage {
	return &Storage{db: client.DB()}
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic.
func (s *Storage) withTx(ctx context.Context, fn func(tx *stdsql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apierrors.Wrap(apierrors.KindUnavailable, err, "failed to start transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), the raw-SQL equivalent of ent.IsConstraintError.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// isNotFound reports whether err is sql.ErrNoRows, the raw-SQL
// equivalent of ent.IsNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, stdsql.ErrNoRows)
}

func wrapQueryErr(entity string, err error) error {
	if isNotFound(err) {
		return apierrors.NotFound("%s not found", entity)
	}
	return apierrors.Wrap(apierrors.KindInternal, err, "failed to query %s", entity)
}

// idsExist reports whether every id in ids resolves to a row of table
// under tenantID, via one count(DISTINCT idColumn) query against a
// dynamically built IN clause. table and idColumn are always internal
// constants, never caller input. Shared by EventsExist, ChunksExist, and
// DecisionsExist so the refs/items existence checks required by
// record_event (§4.2) and create_capsule (§4.7) don't each hand-roll
// their own placeholder bookkeeping.
func idsExist(ctx context.Context, q queryer, table, idColumn, tenantID string, ids []string) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	placeholders := make([]byte, 0, len(ids)*4)
	for i, id := range ids {
		args = append(args, id)
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '$')
		placeholders = append(placeholders, []byte(itoa(i+2))...)
	}
	var count int
	row := q.QueryRowContext(ctx,
		`SELECT count(DISTINCT `+idColumn+`) FROM `+table+` WHERE tenant_id = $1 AND `+idColumn+` IN (`+string(placeholders)+`)`,
		args...)
	if err := row.Scan(&count); err != nil {
		return false, apierrors.Wrap(apierrors.KindInternal, err, "failed to check %s refs", table)
	}
	return count == len(ids), nil
}

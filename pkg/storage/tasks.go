package storage

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
)

const taskSelect = `SELECT task_id, tenant_id, ts, title, details, status, priority,
	progress_percent, assignee_id, refs, blocked_by, blocking, project_refs, start_date, due_date
	FROM tasks`

// maxTaskGraphDepth bounds the blocked_by reachability walk cycle detection
// performs before committing an edge, per the task cycle-check invariant.
const maxTaskGraphDepth = 10

// InsertTask creates a task in its initial status. blocked_by references
// are validated for cycles (impossible against a brand-new id, but a
// self-reference in the caller's own input is still rejected) and
// blocking is maintained as the reverse edge on every referenced task.
func (s *Storage) InsertTask(ctx context.Context, tenantID string, in models.CreateTaskInput) (*models.Task, error) {
	status := in.Status
	if status == "" {
		status = models.TaskOpen
	}
	t := &models.Task{
		TaskID:      uuid.New().String(),
		TenantID:    tenantID,
		TS:          time.Now(),
		Title:       in.Title,
		Details:     in.Details,
		Status:      status,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		Refs:        in.Refs,
		BlockedBy:   in.BlockedBy,
		ProjectRefs: in.ProjectRefs,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
	}

	for _, id := range t.BlockedBy {
		if id == t.TaskID {
			return nil, apierrors.InvalidArgument("task cannot block itself")
		}
	}

	refs, _ := json.Marshal(t.Refs)
	blockedBy, _ := json.Marshal(t.BlockedBy)
	projectRefs, _ := json.Marshal(t.ProjectRefs)

	err := s.withTx(ctx, func(tx *stdsql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (task_id, tenant_id, ts, title, details, status, priority,
				progress_percent, assignee_id, refs, blocked_by, blocking, project_refs, start_date, due_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,'[]'::jsonb,$12,$13,$14)`,
			t.TaskID, t.TenantID, t.TS, t.Title, t.Details, string(t.Status), t.Priority,
			t.ProgressPercent, t.AssigneeID, refs, blockedBy, projectRefs, t.StartDate, t.DueDate)
		if err != nil {
			return apierrors.Wrap(apierrors.KindInternal, err, "failed to insert task")
		}
		for _, id := range t.BlockedBy {
			if err := addBlocking(ctx, tx, tenantID, id, t.TaskID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetTask fetches one task by id, tenant-scoped.
func (s *Storage) GetTask(ctx context.Context, tenantID, taskID string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE tenant_id = $1 AND task_id = $2`, tenantID, taskID)
	t, err := scanTask(row)
	if err != nil {
		return nil, wrapQueryErr("task", err)
	}
	return t, nil
}

// UpdateTask patches the mutable subset of a task's fields. When blocked_by
// changes, the new edges are checked for self-reference and cycles before
// the row is written, and blocking — the reverse edge on every referenced
// task — is updated to match inside the same transaction.
func (s *Storage) UpdateTask(ctx context.Context, tenantID, taskID string, in models.UpdateTaskInput) (*models.Task, error) {
	t, err := s.GetTask(ctx, tenantID, taskID)
	if err != nil {
		return nil, err
	}
	prevBlockedBy := t.BlockedBy

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Details != nil {
		t.Details = *in.Details
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.ProgressPercent != nil {
		t.ProgressPercent = *in.ProgressPercent
	}
	if in.AssigneeID != nil {
		t.AssigneeID = in.AssigneeID
	}
	if in.BlockedBy != nil {
		t.BlockedBy = in.BlockedBy
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}

	err = s.withTx(ctx, func(tx *stdsql.Tx) error {
		if in.BlockedBy != nil {
			if err := checkTaskEdges(ctx, tx, tenantID, taskID, t.BlockedBy); err != nil {
				return err
			}
		}

		blockedBy, _ := json.Marshal(t.BlockedBy)
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET title=$1, details=$2, status=$3, priority=$4, progress_percent=$5,
				assignee_id=$6, blocked_by=$7, due_date=$8
			WHERE tenant_id=$9 AND task_id=$10`,
			t.Title, t.Details, string(t.Status), t.Priority, t.ProgressPercent,
			t.AssigneeID, blockedBy, t.DueDate, tenantID, taskID)
		if err != nil {
			return apierrors.Wrap(apierrors.KindInternal, err, "failed to update task")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apierrors.NotFound("task %s not found", taskID)
		}

		if in.BlockedBy == nil {
			return nil
		}
		for _, id := range removedIDs(prevBlockedBy, t.BlockedBy) {
			if err := removeBlocking(ctx, tx, tenantID, id, taskID); err != nil {
				return err
			}
		}
		for _, id := range addedIDs(prevBlockedBy, t.BlockedBy) {
			if err := addBlocking(ctx, tx, tenantID, id, taskID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// checkTaskEdges rejects a blocked_by set that would self-reference taskID
// or close a cycle: for each candidate, it walks the candidate's own
// blocked_by graph up to maxTaskGraphDepth hops looking for taskID. Finding
// it means candidate already (transitively) depends on taskID, so making
// taskID depend on candidate would close the loop.
func checkTaskEdges(ctx context.Context, tx *stdsql.Tx, tenantID, taskID string, blockedBy []string) error {
	for _, candidate := range blockedBy {
		if candidate == taskID {
			return apierrors.InvalidArgument("task cannot block itself")
		}
		reaches, err := taskReaches(ctx, tx, tenantID, candidate, taskID)
		if err != nil {
			return err
		}
		if reaches {
			return apierrors.Conflict("blocked_by edge %s -> %s would form a cycle", taskID, candidate)
		}
	}
	return nil
}

// taskReaches reports whether target is reachable from start by following
// blocked_by edges, bounded to maxTaskGraphDepth hops.
func taskReaches(ctx context.Context, tx *stdsql.Tx, tenantID, start, target string) (bool, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}

	for depth := 0; depth < maxTaskGraphDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if id == target {
				return true, nil
			}
			var raw []byte
			err := tx.QueryRowContext(ctx, `SELECT blocked_by FROM tasks WHERE tenant_id=$1 AND task_id=$2`, tenantID, id).Scan(&raw)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return false, apierrors.Wrap(apierrors.KindInternal, err, "failed to walk task blocked_by graph")
			}
			var edges []string
			_ = json.Unmarshal(raw, &edges)
			for _, edge := range edges {
				if !visited[edge] {
					visited[edge] = true
					next = append(next, edge)
				}
			}
		}
		frontier = next
	}
	return false, nil
}

// addedIDs returns ids present in next but not prev.
func addedIDs(prev, next []string) []string {
	prevSet := make(map[string]bool, len(prev))
	for _, id := range prev {
		prevSet[id] = true
	}
	var out []string
	for _, id := range next {
		if !prevSet[id] {
			out = append(out, id)
		}
	}
	return out
}

// removedIDs returns ids present in prev but not next.
func removedIDs(prev, next []string) []string {
	return addedIDs(next, prev)
}

// addBlocking adds taskID to otherID's blocking list, the reverse edge of
// otherID appearing in taskID's blocked_by.
func addBlocking(ctx context.Context, tx *stdsql.Tx, tenantID, otherID, taskID string) error {
	blocking, err := readBlocking(ctx, tx, tenantID, otherID)
	if err != nil {
		return err
	}
	if blocking == nil {
		return nil
	}
	for _, id := range blocking {
		if id == taskID {
			return nil
		}
	}
	return writeBlocking(ctx, tx, tenantID, otherID, append(blocking, taskID))
}

// removeBlocking removes taskID from otherID's blocking list.
func removeBlocking(ctx context.Context, tx *stdsql.Tx, tenantID, otherID, taskID string) error {
	blocking, err := readBlocking(ctx, tx, tenantID, otherID)
	if err != nil {
		return err
	}
	if blocking == nil {
		return nil
	}
	out := blocking[:0]
	for _, id := range blocking {
		if id != taskID {
			out = append(out, id)
		}
	}
	return writeBlocking(ctx, tx, tenantID, otherID, out)
}

// readBlocking returns nil, nil if otherID no longer exists — a dangling
// blocked_by reference to a deleted task is not itself an error here.
func readBlocking(ctx context.Context, tx *stdsql.Tx, tenantID, otherID string) ([]string, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx, `SELECT blocking FROM tasks WHERE tenant_id=$1 AND task_id=$2 FOR UPDATE`, tenantID, otherID).Scan(&raw)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to read task blocking")
	}
	var blocking []string
	_ = json.Unmarshal(raw, &blocking)
	if blocking == nil {
		blocking = []string{}
	}
	return blocking, nil
}

func writeBlocking(ctx context.Context, tx *stdsql.Tx, tenantID, otherID string, blocking []string) error {
	b, _ := json.Marshal(blocking)
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET blocking=$1 WHERE tenant_id=$2 AND task_id=$3`, b, tenantID, otherID); err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to update task blocking")
	}
	return nil
}

// ListTasks filters by status/assignee/project, newest first.
func (s *Storage) ListTasks(ctx context.Context, tenantID string, f models.TaskFilters) ([]*models.Task, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := taskSelect + ` WHERE tenant_id = $1`
	args := []any{tenantID}

	if f.Status != "" {
		args = append(args, string(f.Status))
		query += " AND status = $" + itoa(len(args))
	}
	if f.AssigneeID != "" {
		args = append(args, f.AssigneeID)
		query += " AND assignee_id = $" + itoa(len(args))
	}
	if f.ProjectID != "" {
		args = append(args, mustJSONArray(f.ProjectID))
		query += " AND project_refs @> $" + itoa(len(args)) + "::jsonb"
	}
	args = append(args, limit)
	query += " ORDER BY ts DESC LIMIT $" + itoa(len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += " OFFSET $" + itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list tasks")
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan task")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTask removes a task by id, tenant-scoped.
func (s *Storage) DeleteTask(ctx context.Context, tenantID, taskID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE tenant_id = $1 AND task_id = $2`, tenantID, taskID)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to delete task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierrors.NotFound("task %s not found", taskID)
	}
	return nil
}

// GetProjectSummary aggregates task counts and the most recent N task
// updates for a project, the supplemented get_project_summary operation
// grounded on the teacher's GetProjectSummary-shaped aggregation in
// session_service.go.
func (s *Storage) GetProjectSummary(ctx context.Context, tenantID, projectID string, recentLimit int) (*models.ProjectSummary, error) {
	if recentLimit <= 0 || recentLimit > 50 {
		recentLimit = 10
	}

	summary := &models.ProjectSummary{ProjectID: projectID}
	projectFilter := mustJSONArray(projectID)

	row := s.db.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'open'),
			count(*) FILTER (WHERE status = 'doing'),
			count(*) FILTER (WHERE status = 'blocked'),
			count(*) FILTER (WHERE status = 'done')
		FROM tasks WHERE tenant_id = $1 AND project_refs @> $2::jsonb`,
		tenantID, projectFilter)
	if err := row.Scan(&summary.OpenCount, &summary.DoingCount, &summary.BlockedCount, &summary.DoneCount); err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to aggregate project task counts")
	}

	blockingRows, err := s.db.QueryContext(ctx, taskSelect+`
		WHERE tenant_id = $1 AND project_refs @> $2::jsonb AND status = 'blocked'
		ORDER BY ts DESC LIMIT $3`, tenantID, projectFilter, recentLimit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list blocking tasks")
	}
	defer blockingRows.Close()
	for blockingRows.Next() {
		t, err := scanTask(blockingRows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan task")
		}
		summary.BlockingTasks = append(summary.BlockingTasks, t)
	}
	if err := blockingRows.Err(); err != nil {
		return nil, err
	}

	recentRows, err := s.db.QueryContext(ctx, taskSelect+`
		WHERE tenant_id = $1 AND project_refs @> $2::jsonb
		ORDER BY ts DESC LIMIT $3`, tenantID, projectFilter, recentLimit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list recent tasks")
	}
	defer recentRows.Close()
	for recentRows.Next() {
		t, err := scanTask(recentRows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan task")
		}
		summary.RecentTasks = append(summary.RecentTasks, t)
	}
	return summary, recentRows.Err()
}

func mustJSONArray(s string) []byte {
	b, _ := json.Marshal([]string{s})
	return b
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var status string
	var refs, blockedBy, blocking, projectRefs []byte

	if err := row.Scan(&t.TaskID, &t.TenantID, &t.TS, &t.Title, &t.Details, &status, &t.Priority,
		&t.ProgressPercent, &t.AssigneeID, &refs, &blockedBy, &blocking, &projectRefs,
		&t.StartDate, &t.DueDate); err != nil {
		return nil, err
	}
	t.Status = models.TaskStatus(status)
	_ = json.Unmarshal(refs, &t.Refs)
	_ = json.Unmarshal(blockedBy, &t.BlockedBy)
	_ = json.Unmarshal(blocking, &t.Blocking)
	_ = json.Unmarshal(projectRefs, &t.ProjectRefs)
	return &t, nil
}

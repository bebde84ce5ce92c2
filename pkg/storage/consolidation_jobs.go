package storage

import (
	"context"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
)

const consolidationJobSelect = `SELECT job_id, kind, started_at, ended_at, count, status, error
	FROM consolidation_jobs`

// StartConsolidationJob records the start of one worker run.
func (s *Storage) StartConsolidationJob(ctx context.Context, kind string) (*models.ConsolidationJob, error) {
	j := &models.ConsolidationJob{
		JobID:     uuid.New().String(),
		Kind:      kind,
		StartedAt: time.Now(),
		Status:    "running",
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consolidation_jobs (job_id, kind, started_at, status)
		VALUES ($1,$2,$3,$4)`, j.JobID, j.Kind, j.StartedAt, j.Status)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to start consolidation job")
	}
	return j, nil
}

// FinishConsolidationJob records the terminal state of a run. jobErr is
// nil on success; its message (if any) is stored so a failed run is
// diagnosable without re-running it.
func (s *Storage) FinishConsolidationJob(ctx context.Context, jobID string, count int, jobErr error) error {
	status := "succeeded"
	var errMsg *string
	if jobErr != nil {
		status = "failed"
		msg := jobErr.Error()
		errMsg = &msg
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE consolidation_jobs SET ended_at = $1, count = $2, status = $3, error = $4
		WHERE job_id = $5`, now, count, status, errMsg, jobID)
	if err != nil {
		return apierrors.Wrap(apierrors.KindInternal, err, "failed to finish consolidation job")
	}
	return nil
}

// LastSuccessfulRun reports when `kind` last completed, so the worker can
// skip a redundant pass within the same tick window on restart.
func (s *Storage) LastSuccessfulRun(ctx context.Context, kind string) (*time.Time, error) {
	var endedAt *time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT ended_at FROM consolidation_jobs
		WHERE kind = $1 AND status = 'succeeded'
		ORDER BY started_at DESC LIMIT 1`, kind).Scan(&endedAt)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to read last consolidation run")
	}
	return endedAt, nil
}

// ListRecentConsolidationJobs returns the most recent runs across all
// kinds, newest first — used by the health/ops surface, never the hot path.
func (s *Storage) ListRecentConsolidationJobs(ctx context.Context, limit int) ([]*models.ConsolidationJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, consolidationJobSelect+
		` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to list consolidation jobs")
	}
	defer rows.Close()

	var out []*models.ConsolidationJob
	for rows.Next() {
		j, err := scanConsolidationJob(rows)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to scan consolidation job")
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanConsolidationJob(row rowScanner) (*models.ConsolidationJob, error) {
	var j models.ConsolidationJob
	var errMsg *string
	if err := row.Scan(&j.JobID, &j.Kind, &j.StartedAt, &j.EndedAt, &j.Count, &j.Status, &errMsg); err != nil {
		return nil, err
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	return &j, nil
}

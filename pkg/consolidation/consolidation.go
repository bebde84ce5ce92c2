// Package consolidation runs C10: a ticker-driven background worker that
// keeps tenant_metadata fresh, expires capsules, synthesizes reflection
// summaries, and purges retained audit rows (§4.10). Modeled directly on
// the teacher's pkg/cleanup.Service — same Start/Stop/run shape, a
// ticker plus a context-cancellable goroutine, idempotent jobs safe to
// re-run on restart.
package consolidation

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/callin2/agent-memory-sub006/pkg/config"
	"github.com/callin2/agent-memory-sub006/pkg/metrics"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// Store is the slice of *storage.Storage the worker needs.
type Store interface {
	ListDistinctWithWhom(ctx context.Context) ([]struct{ TenantID, WithWhom string }, error)
	ComputeTenantMetadata(ctx context.Context, tenantID, withWhom string) (*models.TenantMetadata, error)
	UpsertTenantMetadata(ctx context.Context, m *models.TenantMetadata) error

	ExpireCapsules(ctx context.Context) (int64, error)

	GetLatestReflection(ctx context.Context, tenantID, withWhom string) (*models.Reflection, error)
	ListHandoffsSince(ctx context.Context, tenantID, withWhom string, since time.Time) ([]*models.Handoff, error)
	InsertReflection(ctx context.Context, tenantID, withWhom string, insights, sourceHandoffIDs []string) (*models.Reflection, error)

	PurgeAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	StartConsolidationJob(ctx context.Context, kind string) (*models.ConsolidationJob, error)
	FinishConsolidationJob(ctx context.Context, jobID string, count int, jobErr error) error
}

// job kind labels recorded in consolidation_jobs.
const (
	kindMetadataRefresh = "metadata_refresh"
	kindCapsuleExpiry   = "capsule_expiry"
	kindReflection      = "reflection"
	kindAuditRetention  = "audit_retention"
)

// maxRetries caps the exponential backoff applied to a single job run
// before it's surfaced as failed rather than retried silently (§4.10:
// "retried with exponential backoff up to a cap, then surfaced via
// metrics").
const maxRetries = 5

// Worker runs the four responsibilities of §4.10 on cfg.ConsolidationInterval.
type Worker struct {
	store   Store
	cfg     *config.Config
	metrics *metrics.Registry

	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a Worker against storage. reg may be nil, in which case job
// outcomes are simply not recorded anywhere.
func New(store Store, cfg *config.Config, reg *metrics.Registry) *Worker {
	return &Worker{store: store, cfg: cfg, metrics: reg}
}

// Start launches the background loop. Calling Start twice is a no-op.
func (w *Worker) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go w.run(ctx)

	slog.Info("consolidation worker started", "interval", w.cfg.ConsolidationInterval)
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	slog.Info("consolidation worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	w.runAll(ctx)

	ticker := time.NewTicker(w.cfg.ConsolidationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runAll(ctx)
		}
	}
}

func (w *Worker) runAll(ctx context.Context) {
	w.runJob(ctx, kindMetadataRefresh, w.refreshMetadata)
	w.runJob(ctx, kindCapsuleExpiry, w.expireCapsules)
	w.runJob(ctx, kindReflection, w.synthesizeReflections)
	w.runJob(ctx, kindAuditRetention, w.purgeAuditLogs)
}

// runJob wraps one responsibility in a consolidation_jobs row plus
// exponential backoff: a job that fails is retried up to maxRetries
// times before being recorded as failed. Every job is idempotent, so a
// retry (or a restart mid-run) never double-applies work.
func (w *Worker) runJob(ctx context.Context, kind string, fn func(ctx context.Context) (int, error)) {
	job, err := w.store.StartConsolidationJob(ctx, kind)
	if err != nil {
		slog.Error("consolidation: failed to record job start", "kind", kind, "error", err)
		return
	}

	var count int
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	runErr := backoff.Retry(func() error {
		var innerErr error
		count, innerErr = fn(ctx)
		return innerErr
	}, backoff.WithContext(bo, ctx))

	if finishErr := w.store.FinishConsolidationJob(ctx, job.JobID, count, runErr); finishErr != nil {
		slog.Error("consolidation: failed to record job finish", "kind", kind, "error", finishErr)
	}
	if w.metrics != nil {
		w.metrics.RecordConsolidationJob(kind, runErr != nil)
	}
	if runErr != nil {
		slog.Error("consolidation: job failed after retries", "kind", kind, "error", runErr)
		return
	}
	if count > 0 {
		slog.Info("consolidation: job completed", "kind", kind, "count", count)
	}
}

// refreshMetadata recomputes tenant_metadata for every (tenant, with_whom)
// pair with at least one handoff.
func (w *Worker) refreshMetadata(ctx context.Context) (int, error) {
	pairs, err := w.store.ListDistinctWithWhom(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, pair := range pairs {
		m, err := w.store.ComputeTenantMetadata(ctx, pair.TenantID, pair.WithWhom)
		if err != nil {
			return n, err
		}
		if err := w.store.UpsertTenantMetadata(ctx, m); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// expireCapsules flips every past-due active capsule to expired.
func (w *Worker) expireCapsules(ctx context.Context) (int, error) {
	n, err := w.store.ExpireCapsules(ctx)
	return int(n), err
}

// purgeAuditLogs applies the audit-log retention window.
func (w *Worker) purgeAuditLogs(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-w.cfg.AuditRetention)
	n, err := w.store.PurgeAuditLogsBefore(ctx, cutoff)
	return int(n), err
}

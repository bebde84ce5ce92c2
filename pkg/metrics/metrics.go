// Package metrics is the small in-process counters registry named in §5:
// "the only process-wide state is the DB pool and a small metrics
// registry, both initialized at startup and torn down on shutdown." No
// external time-series backend is wired up — the teacher never reaches
// past log/slog plus ad hoc mutex-guarded counters for this concern
// (pkg/queue's orphanState is the closest thing it has to a metrics
// struct), so this registry follows the same shape: a single
// mutex-guarded struct of plain counters, read with a snapshot method.
package metrics

import "sync"

// Registry holds every counter this service tracks. A process has
// exactly one, created at startup and handed to whichever packages need
// to record against it.
type Registry struct {
	mu sync.Mutex

	acbBuilds           uint64
	acbDeadlineOverruns uint64
	acbBudgetExceeded   uint64

	wakeUps               uint64
	wakeUpsReflectionMiss uint64

	consolidationRuns    map[string]uint64
	consolidationFailures map[string]uint64

	poolWaitTimeouts uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		consolidationRuns:     map[string]uint64{},
		consolidationFailures: map[string]uint64{},
	}
}

// RecordACBBuild tracks one build_acb call. overDeadline is true when the
// build ran past its soft 500ms p95 budget (§4.8); budgetExceeded is true
// when the result still required hard-ceiling eviction.
func (r *Registry) RecordACBBuild(overDeadline, budgetExceeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acbBuilds++
	if overDeadline {
		r.acbDeadlineOverruns++
	}
	if budgetExceeded {
		r.acbBudgetExceeded++
	}
}

// RecordWakeUp tracks one wake_up_stratified call. reflectionMissing is
// true when the reflection layer came back unavailable (§4.9).
func (r *Registry) RecordWakeUp(reflectionMissing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakeUps++
	if reflectionMissing {
		r.wakeUpsReflectionMiss++
	}
}

// RecordConsolidationJob tracks one consolidation job run for kind,
// succeeded or not — the "surfaced via metrics" half of §4.10's
// retry-then-surface language for jobs that exhaust their retry budget.
func (r *Registry) RecordConsolidationJob(kind string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consolidationRuns[kind]++
	if failed {
		r.consolidationFailures[kind]++
	}
}

// RecordPoolWaitTimeout tracks a request that waited for a pooled
// connection past its deadline and failed with ServiceUnavailable (§5).
func (r *Registry) RecordPoolWaitTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poolWaitTimeouts++
}

// Snapshot is a point-in-time read of every counter, safe to serialize.
type Snapshot struct {
	ACBBuilds           uint64 `json:"acb_builds"`
	ACBDeadlineOverruns uint64 `json:"acb_deadline_overruns"`
	ACBBudgetExceeded   uint64 `json:"acb_budget_exceeded"`

	WakeUps               uint64 `json:"wake_ups"`
	WakeUpsReflectionMiss uint64 `json:"wake_ups_reflection_miss"`

	ConsolidationRuns     map[string]uint64 `json:"consolidation_runs"`
	ConsolidationFailures map[string]uint64 `json:"consolidation_failures"`

	PoolWaitTimeouts uint64 `json:"pool_wait_timeouts"`
}

// Snapshot returns a copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make(map[string]uint64, len(r.consolidationRuns))
	for k, v := range r.consolidationRuns {
		runs[k] = v
	}
	failures := make(map[string]uint64, len(r.consolidationFailures))
	for k, v := range r.consolidationFailures {
		failures[k] = v
	}

	return Snapshot{
		ACBBuilds:             r.acbBuilds,
		ACBDeadlineOverruns:   r.acbDeadlineOverruns,
		ACBBudgetExceeded:     r.acbBudgetExceeded,
		WakeUps:               r.wakeUps,
		WakeUpsReflectionMiss: r.wakeUpsReflectionMiss,
		ConsolidationRuns:     runs,
		ConsolidationFailures: failures,
		PoolWaitTimeouts:      r.poolWaitTimeouts,
	}
}

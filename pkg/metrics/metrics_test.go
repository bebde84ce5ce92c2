package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordACBBuild_TracksOverrunsAndBudgetExceeded(t *testing.T) {
	r := New()
	r.RecordACBBuild(false, false)
	r.RecordACBBuild(true, true)
	r.RecordACBBuild(true, false)

	snap := r.Snapshot()
	assert.Equal(t, uint64(3), snap.ACBBuilds)
	assert.Equal(t, uint64(2), snap.ACBDeadlineOverruns)
	assert.Equal(t, uint64(1), snap.ACBBudgetExceeded)
}

func TestRecordWakeUp_TracksReflectionMisses(t *testing.T) {
	r := New()
	r.RecordWakeUp(true)
	r.RecordWakeUp(false)

	snap := r.Snapshot()
	assert.Equal(t, uint64(2), snap.WakeUps)
	assert.Equal(t, uint64(1), snap.WakeUpsReflectionMiss)
}

func TestRecordConsolidationJob_TracksPerKind(t *testing.T) {
	r := New()
	r.RecordConsolidationJob("reflection", false)
	r.RecordConsolidationJob("reflection", true)
	r.RecordConsolidationJob("capsule_expiry", false)

	snap := r.Snapshot()
	assert.Equal(t, uint64(2), snap.ConsolidationRuns["reflection"])
	assert.Equal(t, uint64(1), snap.ConsolidationFailures["reflection"])
	assert.Equal(t, uint64(1), snap.ConsolidationRuns["capsule_expiry"])
	assert.Equal(t, uint64(0), snap.ConsolidationFailures["capsule_expiry"])
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	r := New()
	r.RecordConsolidationJob("reflection", false)

	snap := r.Snapshot()
	snap.ConsolidationRuns["reflection"] = 999

	snap2 := r.Snapshot()
	assert.Equal(t, uint64(1), snap2.ConsolidationRuns["reflection"])
}

func TestRecordPoolWaitTimeout_Increments(t *testing.T) {
	r := New()
	r.RecordPoolWaitTimeout()
	r.RecordPoolWaitTimeout()

	assert.Equal(t, uint64(2), r.Snapshot().PoolWaitTimeouts)
}

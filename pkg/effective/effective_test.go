package effective

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }
func textPtr(s string) *string    { return &s }
func chanPtr(c models.Channel) *models.Channel {
	return &c
}

func edit(op models.EditOp, patch models.EditPatch) *models.MemoryEdit {
	return &models.MemoryEdit{Op: op, Status: models.EditApproved, Patch: patch}
}

func TestResolve_NoEditsReturnsBaseUnchanged(t *testing.T) {
	r := Resolve("original text", 0.5, nil)
	assert.False(t, r.Hidden)
	assert.False(t, r.IsQuarantined)
	assert.Equal(t, "original text", r.Text)
	assert.InDelta(t, 0.5, r.Importance, 0.0001)
	assert.Equal(t, 0, r.EditsApplied)
}

func TestResolve_Retract_HidesRegardlessOfOtherEdits(t *testing.T) {
	edits := []*models.MemoryEdit{
		edit(models.EditAmend, models.EditPatch{Text: textPtr("amended")}),
		edit(models.EditRetract, models.EditPatch{}),
	}
	r := Resolve("original", 0.5, edits)
	assert.True(t, r.Hidden)
}

func TestResolve_Block_AddsChannelToBlockedList(t *testing.T) {
	r := Resolve("x", 0.5, []*models.MemoryEdit{
		edit(models.EditBlock, models.EditPatch{Channel: chanPtr(models.ChannelPublic)}),
	})
	assert.False(t, r.Hidden)
	assert.Equal(t, []string{"public"}, r.BlockedChannels)
}

func TestResolve_Quarantine_SetsFlag(t *testing.T) {
	r := Resolve("x", 0.5, []*models.MemoryEdit{edit(models.EditQuarantine, models.EditPatch{})})
	assert.True(t, r.IsQuarantined)
	assert.False(t, r.Hidden)
}

func TestResolve_Amend_ReplacesTextAndImportance(t *testing.T) {
	r := Resolve("original", 0.2, []*models.MemoryEdit{
		edit(models.EditAmend, models.EditPatch{Text: textPtr("corrected"), Importance: floatPtr(0.9)}),
	})
	assert.Equal(t, "corrected", r.Text)
	assert.InDelta(t, 0.9, r.Importance, 0.0001)
}

func TestResolve_Amend_PartialPatchLeavesOtherFieldUnchanged(t *testing.T) {
	r := Resolve("original", 0.2, []*models.MemoryEdit{
		edit(models.EditAmend, models.EditPatch{Text: textPtr("corrected")}),
	})
	assert.Equal(t, "corrected", r.Text)
	assert.InDelta(t, 0.2, r.Importance, 0.0001)
}

func TestResolve_Attenuate_AbsoluteOverridesBase(t *testing.T) {
	r := Resolve("x", 0.2, []*models.MemoryEdit{
		edit(models.EditAttenuate, models.EditPatch{Importance: floatPtr(0.05)}),
	})
	assert.InDelta(t, 0.05, r.Importance, 0.0001)
}

func TestResolve_Attenuate_DeltasSumAndClamp(t *testing.T) {
	r := Resolve("x", 0.5, []*models.MemoryEdit{
		edit(models.EditAttenuate, models.EditPatch{ImportanceDelta: floatPtr(-0.3)}),
		edit(models.EditAttenuate, models.EditPatch{ImportanceDelta: floatPtr(-0.4)}),
	})
	assert.InDelta(t, 0.0, r.Importance, 0.0001, "0.5 - 0.3 - 0.4 clamps to 0")
}

func TestResolve_LatestAmendBeatsSummedAttenuate(t *testing.T) {
	r := Resolve("x", 0.5, []*models.MemoryEdit{
		edit(models.EditAttenuate, models.EditPatch{ImportanceDelta: floatPtr(-0.4)}),
		edit(models.EditAmend, models.EditPatch{Importance: floatPtr(0.8)}),
	})
	assert.InDelta(t, 0.8, r.Importance, 0.0001)
}

func TestResolve_LatestAmendWinsOverEarlierAmend(t *testing.T) {
	r := Resolve("x", 0.5, []*models.MemoryEdit{
		edit(models.EditAmend, models.EditPatch{Text: textPtr("first")}),
		edit(models.EditAmend, models.EditPatch{Text: textPtr("second")}),
	})
	assert.Equal(t, "second", r.Text)
}

func TestApplyChunk_RetractedChunkIsHidden(t *testing.T) {
	base := &models.Chunk{ChunkID: "c1", Text: "x", Importance: 0.5}
	_, visible := ApplyChunk(base, []*models.MemoryEdit{edit(models.EditRetract, models.EditPatch{})}, models.ChannelTeam, false)
	assert.False(t, visible)
}

func TestApplyChunk_BlockedForMatchingChannelOnly(t *testing.T) {
	base := &models.Chunk{ChunkID: "c1", Text: "x", Importance: 0.5}
	edits := []*models.MemoryEdit{edit(models.EditBlock, models.EditPatch{Channel: chanPtr(models.ChannelPublic)})}

	_, visibleToPublic := ApplyChunk(base, edits, models.ChannelPublic, false)
	assert.False(t, visibleToPublic)

	ec, visibleToTeam := ApplyChunk(base, edits, models.ChannelTeam, false)
	require.True(t, visibleToTeam)
	assert.Equal(t, []string{"public"}, ec.BlockedChannels)
}

func TestApplyChunk_QuarantinedHiddenUnlessIncluded(t *testing.T) {
	base := &models.Chunk{ChunkID: "c1", Text: "x", Importance: 0.5}
	edits := []*models.MemoryEdit{edit(models.EditQuarantine, models.EditPatch{})}

	_, visible := ApplyChunk(base, edits, models.ChannelTeam, false)
	assert.False(t, visible)

	ec, visible := ApplyChunk(base, edits, models.ChannelTeam, true)
	require.True(t, visible)
	assert.True(t, ec.IsQuarantined)
}

func TestApplyChunk_NoEditsReturnsBaseVerbatim(t *testing.T) {
	base := &models.Chunk{ChunkID: "c1", Text: "x", Importance: 0.5}
	ec, visible := ApplyChunk(base, nil, models.ChannelTeam, false)
	require.True(t, visible)
	assert.Equal(t, "x", ec.Text)
	assert.InDelta(t, 0.5, ec.Importance, 0.0001)
	assert.Equal(t, 0, ec.EditsApplied)
}

func TestApplyDecision_AmendReplacesDecisionText(t *testing.T) {
	base := &models.Decision{DecisionID: "d1", Decision: "use mysql"}
	edits := []*models.MemoryEdit{edit(models.EditAmend, models.EditPatch{Text: textPtr("use postgres")})}

	ed, visible := ApplyDecision(base, edits, models.ChannelTeam, false)
	require.True(t, visible)
	assert.Equal(t, "use postgres", ed.Decision.Decision)
}

func TestResolve_TrustsCallerOrderByAppliedAtNotProposalTime(t *testing.T) {
	// E1 was proposed first (ts=t1) but approved last (applied_at=t3); E2 was
	// proposed second (ts=t2) but approved first (applied_at=t2). Storage is
	// responsible for handing edits to Resolve in applied_at order, so the
	// edit approved last — E1 — must win even though it was proposed first.
	e1 := &models.MemoryEdit{Op: models.EditAmend, Status: models.EditApproved, Patch: models.EditPatch{Text: textPtr("from E1, approved last")}}
	e2 := &models.MemoryEdit{Op: models.EditAmend, Status: models.EditApproved, Patch: models.EditPatch{Text: textPtr("from E2, approved first")}}

	r := Resolve("original", 0.5, []*models.MemoryEdit{e2, e1})
	assert.Equal(t, "from E1, approved last", r.Text)
}

func TestApplyChunks_DropsHiddenRows(t *testing.T) {
	bases := []*models.Chunk{
		{ChunkID: "c1", Text: "keep", Importance: 0.5},
		{ChunkID: "c2", Text: "drop", Importance: 0.5},
	}
	editsByTarget := map[string][]*models.MemoryEdit{
		"c2": {edit(models.EditRetract, models.EditPatch{})},
	}

	out := ApplyChunks(bases, editsByTarget, models.ChannelTeam, false)
	require.Len(t, out, 1)
	assert.Equal(t, "c1", out[0].ChunkID)
}

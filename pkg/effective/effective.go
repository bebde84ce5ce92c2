// Package effective computes the read-time projection of a Chunk or
// Decision with its approved MemoryEdits applied (§4.4). Base rows in
// storage are never mutated; every call here is a pure fold over a
// slice of edits already filtered to one target and to approved status.
package effective

import "github.com/callin2/agent-memory-sub006/pkg/models"

// Resolution is the edit-derived delta for one target, independent of
// the base row's concrete type (Chunk vs Decision share the same
// text/importance/visibility shape).
type Resolution struct {
	Hidden          bool
	IsQuarantined   bool
	BlockedChannels []string
	Text            string
	Importance      float64
	EditsApplied    int
}

// Resolve folds edits (oldest first, approved only) over a base
// text/importance pair per §4.4's precedence: retract > block >
// quarantine > latest amend > summed attenuate. retract short-circuits
// visibility outright; block and quarantine are independent visibility
// flags a caller checks against its own channel / include_quarantined
// flag; amend and attenuate both affect importance, and a later amend's
// value always wins over any attenuate delta, absolute or summed.
func Resolve(baseText string, baseImportance float64, edits []*models.MemoryEdit) Resolution {
	r := Resolution{Text: baseText, Importance: baseImportance, EditsApplied: len(edits)}

	attenuated := baseImportance
	var amendImportance *float64

	for _, e := range edits {
		switch e.Op {
		case models.EditRetract:
			r.Hidden = true
		case models.EditBlock:
			if e.Patch.Channel != nil {
				r.BlockedChannels = append(r.BlockedChannels, string(*e.Patch.Channel))
			}
		case models.EditQuarantine:
			r.IsQuarantined = true
		case models.EditAmend:
			if e.Patch.Text != nil {
				r.Text = *e.Patch.Text
			}
			if e.Patch.Importance != nil {
				v := *e.Patch.Importance
				amendImportance = &v
			}
		case models.EditAttenuate:
			switch {
			case e.Patch.Importance != nil:
				attenuated = *e.Patch.Importance
			case e.Patch.ImportanceDelta != nil:
				attenuated += *e.Patch.ImportanceDelta
			}
			attenuated = clamp01(attenuated)
		}
	}

	if amendImportance != nil {
		r.Importance = clamp01(*amendImportance)
	} else {
		r.Importance = attenuated
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// visible reports whether a resolution is visible to readerChannel given
// includeQuarantined, applying retract/block/quarantine in that order.
func (r Resolution) visible(readerChannel models.Channel, includeQuarantined bool) bool {
	if r.Hidden {
		return false
	}
	for _, blocked := range r.BlockedChannels {
		if models.Channel(blocked) == readerChannel {
			return false
		}
	}
	if r.IsQuarantined && !includeQuarantined {
		return false
	}
	return true
}

// ApplyChunk projects base with edits (approved, oldest first) for a
// reader on readerChannel. The second return value is false when the
// row is hidden (retracted, blocked for this channel, or quarantined
// without includeQuarantined) — callers drop it from the result set
// rather than surface a zero-value chunk.
func ApplyChunk(base *models.Chunk, edits []*models.MemoryEdit, readerChannel models.Channel, includeQuarantined bool) (*models.EffectiveChunk, bool) {
	res := Resolve(base.Text, base.Importance, edits)
	if !res.visible(readerChannel, includeQuarantined) {
		return nil, false
	}
	ec := &models.EffectiveChunk{
		Chunk:           *base,
		IsQuarantined:   res.IsQuarantined,
		BlockedChannels: res.BlockedChannels,
		EditsApplied:    res.EditsApplied,
	}
	ec.Text = res.Text
	ec.Importance = res.Importance
	return ec, true
}

// ApplyDecision mirrors ApplyChunk for the decision ledger. Decisions
// have no fts_vector/token_est to recompute, so only text and
// importance-equivalent fields need not apply here — decisions carry no
// importance field, so attenuate/amend-importance edits have no target
// on a decision and are folded in only for their text effect.
func ApplyDecision(base *models.Decision, edits []*models.MemoryEdit, readerChannel models.Channel, includeQuarantined bool) (*models.EffectiveDecision, bool) {
	res := Resolve(base.Decision, 0, edits)
	if !res.visible(readerChannel, includeQuarantined) {
		return nil, false
	}
	ed := &models.EffectiveDecision{
		Decision:        *base,
		IsQuarantined:   res.IsQuarantined,
		BlockedChannels: res.BlockedChannels,
		EditsApplied:    res.EditsApplied,
	}
	ed.Decision.Decision = res.Text
	return ed, true
}

// ApplyChunks batch-applies ApplyChunk across bases, looking up each
// base's edits by ChunkID in edits. Hidden rows are dropped rather than
// included as nil entries, so callers can feed the result straight into
// retrieval scoring.
func ApplyChunks(bases []*models.Chunk, edits map[string][]*models.MemoryEdit, readerChannel models.Channel, includeQuarantined bool) []*models.EffectiveChunk {
	out := make([]*models.EffectiveChunk, 0, len(bases))
	for _, base := range bases {
		ec, ok := ApplyChunk(base, edits[base.ChunkID], readerChannel, includeQuarantined)
		if ok {
			out = append(out, ec)
		}
	}
	return out
}

// ApplyDecisions mirrors ApplyChunks for decisions.
func ApplyDecisions(bases []*models.Decision, edits map[string][]*models.MemoryEdit, readerChannel models.Channel, includeQuarantined bool) []*models.EffectiveDecision {
	out := make([]*models.EffectiveDecision, 0, len(bases))
	for _, base := range bases {
		ed, ok := ApplyDecision(base, edits[base.DecisionID], readerChannel, includeQuarantined)
		if ok {
			out = append(out, ed)
		}
	}
	return out
}

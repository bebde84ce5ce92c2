package models

import "time"

// EditPatch is the op-dependent structured payload of a MemoryEdit.
// Exactly which fields are meaningful depends on Op:
//   - amend: Text, Importance (either/both)
//   - attenuate: Importance (absolute) xor ImportanceDelta (relative)
//   - block: Channel
//   - retract, quarantine: no patch fields required
type EditPatch struct {
	Text            *string      `json:"text,omitempty"`
	Importance      *float64     `json:"importance,omitempty"`
	ImportanceDelta *float64     `json:"importance_delta,omitempty"`
	Channel         *Channel     `json:"channel,omitempty"`
}

// MemoryEdit is an append-only directive altering how a chunk/decision/
// capsule is surfaced at read time (§3, §4.4). Rows are never deleted or
// mutated once written.
type MemoryEdit struct {
	EditID      string         `json:"edit_id"`
	TenantID    string         `json:"tenant_id"`
	TS          time.Time      `json:"ts"`
	TargetType  EditTargetType `json:"target_type"`
	TargetID    string         `json:"target_id"`
	Op          EditOp         `json:"op"`
	Reason      string         `json:"reason"`
	ProposedBy  string         `json:"proposed_by"`
	ApprovedBy  *string        `json:"approved_by,omitempty"`
	Status      EditStatus     `json:"status"`
	Patch       EditPatch      `json:"patch"`
	AppliedAt   *time.Time     `json:"applied_at,omitempty"`
}

// CreateMemoryEditInput is the payload for apply_memory_edit (§6). Edits
// start in "pending" status unless the proposer is pre-authorized to
// self-approve (policy decision left to the caller/service layer, not this
// core — see ApproveMemoryEdit).
type CreateMemoryEditInput struct {
	TargetType EditTargetType `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Op         EditOp         `json:"op"`
	Reason     string         `json:"reason"`
	ProposedBy string         `json:"proposed_by"`
	Patch      EditPatch      `json:"patch"`
}

// EditFilters narrows list_edits.
type EditFilters struct {
	TargetType EditTargetType
	TargetID   string
	Status     EditStatus
	Limit      int
}

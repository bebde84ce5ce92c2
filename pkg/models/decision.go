package models

import "time"

// Decision is an entry in the decision ledger (§3, §4.6). Supersession is
// represented by the successor listing its predecessor in Refs, not by a
// separate column — D.decision_id ∈ D'.refs is the whole of the link.
type Decision struct {
	DecisionID   string         `json:"decision_id"`
	TenantID     string         `json:"tenant_id"`
	TS           time.Time      `json:"ts"`
	Status       DecisionStatus `json:"status"`
	Scope        Scope          `json:"scope"`
	Decision     string         `json:"decision"`
	Rationale    []string       `json:"rationale,omitempty"`
	Constraints  []string       `json:"constraints,omitempty"`
	Alternatives []string       `json:"alternatives,omitempty"`
	Consequences []string       `json:"consequences,omitempty"`
	Refs         []string       `json:"refs,omitempty"`
	SubjectType  *string        `json:"subject_type,omitempty"`
	SubjectID    *string        `json:"subject_id,omitempty"`
	ProjectID    *string        `json:"project_id,omitempty"`
	DecidedBy    string         `json:"decided_by"`
}

// EffectiveDecision is the read-time projection of a Decision with the
// latest approved MemoryEdit applied (§4.4).
type EffectiveDecision struct {
	Decision
	IsQuarantined   bool     `json:"is_quarantined"`
	BlockedChannels []string `json:"blocked_channels,omitempty"`
	EditsApplied    int      `json:"edits_applied"`
}

// CreateDecisionInput is the payload for create_decision (§6).
type CreateDecisionInput struct {
	Scope        Scope    `json:"scope"`
	Decision     string   `json:"decision"`
	Rationale    []string `json:"rationale,omitempty"`
	Constraints  []string `json:"constraints,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Consequences []string `json:"consequences,omitempty"`
	Refs         []string `json:"refs,omitempty"`
	SubjectType  *string  `json:"subject_type,omitempty"`
	SubjectID    *string  `json:"subject_id,omitempty"`
	ProjectID    *string  `json:"project_id,omitempty"`
}

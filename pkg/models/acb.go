package models

// Mode is the orchestrator's detected working mode (§4.8).
type Mode string

const (
	ModeTask        Mode = "task"
	ModeDebugging   Mode = "debugging"
	ModeExploration Mode = "exploration"
	ModeLearning    Mode = "learning"
	ModeGeneral     Mode = "general"
)

// SectionName enumerates the fixed ACB section list (§4.8).
type SectionName string

const (
	SectionStickyInvariants  SectionName = "sticky_invariants"
	SectionRules             SectionName = "rules"
	SectionRelevantDecisions SectionName = "relevant_decisions"
	SectionTaskState         SectionName = "task_state"
	SectionCapsules          SectionName = "capsules"
	SectionRecentWindow      SectionName = "recent_window"
	SectionRetrievedEvidence SectionName = "retrieved_evidence"
	SectionHandoff           SectionName = "handoff"
)

// SourceKind tags where an ACBItem came from, for traceability (P4).
type SourceKind string

const (
	SourceChunk    SourceKind = "chunk"
	SourceDecision SourceKind = "decision"
	SourceCapsule  SourceKind = "capsule"
	SourceTask     SourceKind = "task"
	SourceHandoff  SourceKind = "handoff"
)

// ACBItem is one admitted line item within a section.
type ACBItem struct {
	Text       string     `json:"text"`
	TokenEst   int        `json:"token_est"`
	Refs       []string   `json:"refs"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   string     `json:"source_id"`

	// internal fields used only during packing, never serialized.
	importance float64
	priority   int
	ts         int64
}

// ACBSection is an ordered, named group of packed items.
type ACBSection struct {
	Name  SectionName `json:"name"`
	Items []ACBItem   `json:"items"`
}

// BuildACBRequest is the input to build_acb (§4.8, §6).
type BuildACBRequest struct {
	SessionID          string  `json:"session"`
	Channel            Channel `json:"channel"`
	Intent             string  `json:"intent"`
	QueryText          string  `json:"query_text,omitempty"`
	Subject            *Subject `json:"subject,omitempty"`
	ProjectID          string  `json:"project,omitempty"`
	AgentID            string  `json:"agent_id"`
	MaxTokens          int     `json:"max_tokens,omitempty"`
	IncludeCapsules    bool    `json:"include_capsules"`
	IncludeQuarantined bool    `json:"include_quarantined"`
}

// Subject names who/what a piece of memory is about.
type Subject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ACB is the assembled Active Context Bundle (§4.8).
type ACB struct {
	Sections      []ACBSection `json:"sections"`
	TokenUsedEst  int          `json:"token_used_est"`
	EditsApplied  int          `json:"edits_applied"`
	Mode          Mode         `json:"mode"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
	Warning       string       `json:"warning,omitempty"`
	Truncated     bool         `json:"truncated,omitempty"`
}

// MinMaxTokens / MaxMaxTokens clamp max_tokens (§5).
const (
	MinMaxTokens = 1
	MaxMaxTokens = 128000
)

// DefaultMaxCandidatePool bounds the candidate pool per call (§5, §6).
const DefaultMaxCandidatePool = 500

// DefaultMaxTokens is the default ACB ceiling (§6).
const DefaultMaxTokens = 65000

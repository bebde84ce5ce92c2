package models

import "time"

// CapsuleItems is the curated content of a Capsule — ids referencing rows
// that must all belong to the same tenant (§3, §4.7).
type CapsuleItems struct {
	ChunkIDs    []string `json:"chunks,omitempty"`
	DecisionIDs []string `json:"decisions,omitempty"`
	ArtifactIDs []string `json:"artifacts,omitempty"`
}

func (i CapsuleItems) Empty() bool {
	return len(i.ChunkIDs) == 0 && len(i.DecisionIDs) == 0 && len(i.ArtifactIDs) == 0
}

// Capsule is a curated, audience-scoped, TTL-bounded bundle (§3, §4.7).
type Capsule struct {
	CapsuleID        string        `json:"capsule_id"`
	TenantID         string        `json:"tenant_id"`
	TS               time.Time     `json:"ts"`
	Scope            Scope         `json:"scope"`
	SubjectType      string        `json:"subject_type"`
	SubjectID        string        `json:"subject_id"`
	ProjectID        *string       `json:"project_id,omitempty"`
	AuthorAgentID    string        `json:"author_agent_id"`
	AudienceAgentIDs []string      `json:"audience_agent_ids"`
	Items            CapsuleItems  `json:"items"`
	Risks            []string      `json:"risks,omitempty"`
	TTLDays          int           `json:"ttl_days"`
	Status           CapsuleStatus `json:"status"`
	ExpiresAt        time.Time     `json:"expires_at"`
}

// CreateCapsuleInput is the payload for create_capsule (§6, §4.7).
type CreateCapsuleInput struct {
	Scope            Scope        `json:"scope"`
	SubjectType      string       `json:"subject_type"`
	SubjectID        string       `json:"subject_id"`
	ProjectID        *string      `json:"project_id,omitempty"`
	AuthorAgentID    string       `json:"author_agent_id"`
	AudienceAgentIDs []string     `json:"audience_agent_ids"`
	Items            CapsuleItems `json:"items"`
	Risks            []string     `json:"risks,omitempty"`
	TTLDays          int          `json:"ttl_days"`
}

// MinCapsuleTTLDays / MaxCapsuleTTLDays bound ttl_days (§4.7).
const (
	MinCapsuleTTLDays = 1
	MaxCapsuleTTLDays = 365
)

package models

import "time"

// Handoff is an immutable structured reflection written at session end
// (§3, §4.9).
type Handoff struct {
	HandoffID        string           `json:"handoff_id"`
	TenantID         string           `json:"tenant_id"`
	WithWhom         string           `json:"with_whom"`
	SessionID        string           `json:"session_id"`
	TS               time.Time        `json:"ts"`
	Experienced      string           `json:"experienced"`
	Noticed          string           `json:"noticed"`
	Learned          string           `json:"learned"`
	Story            string           `json:"story"`
	Becoming         string           `json:"becoming"`
	Remember         string           `json:"remember"`
	Significance     float64          `json:"significance"`
	Tags             []string         `json:"tags,omitempty"`
	CompressionLevel CompressionLevel `json:"compression_level"`
	InfluencedBy     *string          `json:"influenced_by,omitempty"`
}

// CreateHandoffInput is the payload for create_handoff (§6, §4.9).
type CreateHandoffInput struct {
	WithWhom         string           `json:"with_whom"`
	SessionID        string           `json:"session_id"`
	Experienced      string           `json:"experienced"`
	Noticed          string           `json:"noticed"`
	Learned          string           `json:"learned"`
	Story            string           `json:"story"`
	Becoming         string           `json:"becoming"`
	Remember         string           `json:"remember"`
	Significance     float64          `json:"significance"`
	Tags             []string         `json:"tags,omitempty"`
	CompressionLevel CompressionLevel `json:"compression_level,omitempty"`
	InfluencedBy     *string          `json:"influenced_by,omitempty"`
}

// TenantMetadata is the aggregate maintained per (tenant, with_whom) and
// refreshed by the consolidation worker — never computed as a correlated
// subquery on the hot path (§4.9).
type TenantMetadata struct {
	TenantID             string     `json:"tenant_id"`
	WithWhom             string     `json:"with_whom"`
	SessionCount         int        `json:"session_count"`
	FirstSession         *time.Time `json:"first_session,omitempty"`
	LastSession          *time.Time `json:"last_session,omitempty"`
	SignificanceAvg      float64    `json:"significance_avg"`
	KeyPeople            []string   `json:"key_people,omitempty"`
	AllTags              []string   `json:"all_tags,omitempty"`
	HighSignificanceCount int       `json:"high_significance_count"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Reflection is a cached, consolidated set of insights produced by C10
// (§4.9, §4.10).
type Reflection struct {
	ReflectionID    string    `json:"reflection_id"`
	TenantID        string    `json:"tenant_id"`
	WithWhom        string    `json:"with_whom"`
	TS              time.Time `json:"ts"`
	Insights        []string  `json:"insights"`
	SourceHandoffIDs []string `json:"source_handoff_ids"`
}

// WakeUpRequest configures stratified wake-up (§4.9, §6).
type WakeUpRequest struct {
	WithWhom    string   `json:"with_whom"`
	Layers      []string `json:"layers"` // subset of {metadata, reflection, recent, progressive}
	RecentCount int      `json:"recent_count,omitempty"`
	Topic       string   `json:"topic,omitempty"`
}

// WakeUpResult is the combined response across requested layers (§4.9).
type WakeUpResult struct {
	FirstSession      bool            `json:"first_session"`
	Metadata          *TenantMetadata `json:"metadata,omitempty"`
	Reflection        *ReflectionView `json:"reflection,omitempty"`
	Recent            []*Handoff      `json:"recent,omitempty"`
	Progressive       []*Handoff      `json:"progressive,omitempty"`
	EstimatedTokens   int             `json:"estimated_tokens"`
	CompressionRatio  float64         `json:"compression_ratio"`
}

// ReflectionView reports cached-reflection availability (§4.9: "if absent,
// return {available:false, reason}").
type ReflectionView struct {
	Available bool        `json:"available"`
	Reason    string      `json:"reason,omitempty"`
	Data      *Reflection `json:"data,omitempty"`
}

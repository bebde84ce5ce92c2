package models

import "time"

// Chunk is a derived, recomputable unit produced by the Chunker from one
// Event (§3, §4.3). Never directly edited — surgery happens via MemoryEdit
// and is applied at read time (§4.4).
type Chunk struct {
	ChunkID     string      `json:"chunk_id"`
	TenantID    string      `json:"tenant_id"`
	EventID     string      `json:"event_id"`
	SessionID   string      `json:"session_id"`
	TS          time.Time   `json:"ts"`
	Kind        EventKind   `json:"kind"`
	Channel     Channel     `json:"channel"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Tags        []string    `json:"tags,omitempty"`
	Text        string      `json:"text"`
	TokenEst    int         `json:"token_est"`
	Importance  float64     `json:"importance"`
	Scope       *Scope      `json:"scope,omitempty"`
	SubjectType *string     `json:"subject_type,omitempty"`
	SubjectID   *string     `json:"subject_id,omitempty"`
	ProjectID   *string     `json:"project_id,omitempty"`
	Refs        []string    `json:"refs,omitempty"`

	// FTSVector is opaque here; Postgres maintains the actual tsvector
	// column. Left as the raw text used to generate it for debugging.
	FTSVector string `json:"-"`
}

// EffectiveChunk is the read-time projection of a Chunk with the latest
// approved MemoryEdit applied (§4.4). Base storage rows are never mutated;
// this is always computed fresh (or from a cache invalidated by edits).
type EffectiveChunk struct {
	Chunk
	IsQuarantined   bool     `json:"is_quarantined"`
	BlockedChannels []string `json:"blocked_channels,omitempty"`
	EditsApplied    int      `json:"edits_applied"`
}

// TimelineEntry pairs an effective chunk neighboring a get_timeline
// anchor with its signed distance (seconds) from the anchor's ts.
type TimelineEntry struct {
	Chunk          *EffectiveChunk `json:"chunk"`
	DistanceSeconds float64        `json:"distance_seconds"`
}

package models

import "time"

// AuditLog records every authenticated mutation, success or failure
// (§3, §7). Never read on the hot path.
type AuditLog struct {
	AuditID  string         `json:"audit_id"`
	TenantID string         `json:"tenant_id"`
	Actor    EventActor     `json:"actor"`
	Op       string         `json:"op"`
	Target   string         `json:"target"`
	Outcome  string         `json:"outcome"` // "success" | "error:<kind>"
	TS       time.Time      `json:"ts"`
	IP       string         `json:"ip,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AuditFilters narrows an off-hot-path audit query.
type AuditFilters struct {
	Actor     string
	Op        string
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

// ConsolidationJob records one run of the background worker (§4.10).
type ConsolidationJob struct {
	JobID     string     `json:"job_id"`
	Kind      string     `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Count     int        `json:"count"`
	Status    string     `json:"status"` // running | succeeded | failed
	Error     string     `json:"error,omitempty"`
}

package models

import "time"

// Artifact is an opaque, content-addressed blob reference (§3). The core
// stores metadata and a content hash; actual bytes live behind StorageRef,
// an external blob store this core treats as an opaque collaborator.
type Artifact struct {
	ArtifactID  string    `json:"artifact_id"`
	TenantID    string    `json:"tenant_id"`
	TS          time.Time `json:"ts"`
	ContentHash string    `json:"content_hash"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageRef  string    `json:"storage_ref"`
	Title       string    `json:"title,omitempty"`
}

// CreateArtifactInput is the payload for registering an artifact reference.
type CreateArtifactInput struct {
	ContentHash string `json:"content_hash"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageRef  string `json:"storage_ref"`
	Title       string `json:"title,omitempty"`
}

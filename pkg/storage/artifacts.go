package storage

import (
	"context"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/google/uuid"
)

const artifactSelect = `SELECT artifact_id, tenant_id, ts, content_hash, content_type,
	size_bytes, storage_ref, title FROM artifacts`

// InsertArtifact registers an opaque artifact reference.
func (s *Storage) InsertArtifact(ctx context.Context, tenantID string, in models.CreateArtifactInput) (*models.Artifact, error) {
	a := &models.Artifact{
		ArtifactID:  uuid.New().String(),
		TenantID:    tenantID,
		TS:          time.Now(),
		ContentHash: in.ContentHash,
		ContentType: in.ContentType,
		SizeBytes:   in.SizeBytes,
		StorageRef:  in.StorageRef,
		Title:       in.Title,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (artifact_id, tenant_id, ts, content_hash, content_type,
			size_bytes, storage_ref, title)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ArtifactID, a.TenantID, a.TS, a.ContentHash, a.ContentType, a.SizeBytes, a.StorageRef, a.Title)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindInternal, err, "failed to insert artifact")
	}
	return a, nil
}

// GetArtifact fetches one artifact by id, tenant-scoped.
func (s *Storage) GetArtifact(ctx context.Context, tenantID, artifactID string) (*models.Artifact, error) {
	row := s.db.QueryRowContext(ctx, artifactSelect+` WHERE tenant_id = $1 AND artifact_id = $2`, tenantID, artifactID)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, wrapQueryErr("artifact", err)
	}
	return a, nil
}

// GetArtifactByHash deduplicates registration by content hash.
func (s *Storage) GetArtifactByHash(ctx context.Context, tenantID, contentHash string) (*models.Artifact, error) {
	row := s.db.QueryRowContext(ctx, artifactSelect+` WHERE tenant_id = $1 AND content_hash = $2`, tenantID, contentHash)
	a, err := scanArtifact(row)
	if err != nil {
		return nil, wrapQueryErr("artifact", err)
	}
	return a, nil
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var a models.Artifact
	if err := row.Scan(&a.ArtifactID, &a.TenantID, &a.TS, &a.ContentHash, &a.ContentType,
		&a.SizeBytes, &a.StorageRef, &a.Title); err != nil {
		return nil, err
	}
	return &a, nil
}

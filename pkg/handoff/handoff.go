// Package handoff implements C9: immutable session handoffs and the
// stratified wake-up read that reassembles them across four independent
// layers (§4.9).
package handoff

import (
	"context"
	"strings"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/chunker"
	"github.com/callin2/agent-memory-sub006/pkg/metrics"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// Store is the slice of *storage.Storage the handoff service needs.
type Store interface {
	InsertHandoff(ctx context.Context, tenantID string, in models.CreateHandoffInput) (*models.Handoff, error)
	ListRecentHandoffs(ctx context.Context, tenantID, withWhom string, limit int) ([]*models.Handoff, error)
	SearchHandoffsByTopic(ctx context.Context, tenantID, withWhom, topic string, excludeIDs []string, limit int) ([]*models.Handoff, error)
	GetTenantMetadata(ctx context.Context, tenantID, withWhom string) (*models.TenantMetadata, error)
	GetLatestReflection(ctx context.Context, tenantID, withWhom string) (*models.Reflection, error)
}

// Service owns create_handoff and wake_up_stratified (§4.9).
type Service struct {
	store   Store
	metrics *metrics.Registry
}

// New wires a Service against storage. reg may be nil.
func New(store Store, reg *metrics.Registry) *Service {
	return &Service{store: store, metrics: reg}
}

// defaultRecentCount is used when a wake-up request omits recent_count.
const defaultRecentCount = 3

// maxLayerLimit bounds the recent/progressive layers regardless of what
// the caller asks for.
const maxLayerLimit = 50

var validLayers = map[string]bool{
	"metadata":    true,
	"reflection":  true,
	"recent":      true,
	"progressive": true,
}

// Create appends one immutable handoff row.
func (s *Service) Create(ctx context.Context, tenantID string, in models.CreateHandoffInput) (*models.Handoff, error) {
	if in.WithWhom == "" {
		return nil, apierrors.InvalidField("with_whom", "must be non-empty")
	}
	if in.SessionID == "" {
		return nil, apierrors.InvalidField("session_id", "must be non-empty")
	}
	if in.Significance < 0 || in.Significance > 1 {
		return nil, apierrors.InvalidField("significance", "must be in [0,1]")
	}
	return s.store.InsertHandoff(ctx, tenantID, in)
}

// GetLast returns the single most recent handoff for (tenant, with_whom),
// or NotFound if there is none yet.
func (s *Service) GetLast(ctx context.Context, tenantID, withWhom string) (*models.Handoff, error) {
	handoffs, err := s.store.ListRecentHandoffs(ctx, tenantID, withWhom, 1)
	if err != nil {
		return nil, err
	}
	if len(handoffs) == 0 {
		return nil, apierrors.NotFound("handoff", withWhom)
	}
	return handoffs[0], nil
}

// WakeUpStratified assembles the requested layers independently (§4.9):
// metadata from the aggregate table, reflection from C10's cache,
// recent-N by ts desc, and progressive via tenant-scoped FTS over a
// topic excluding whatever the recent layer already surfaced. A missing
// layer never fails the call — metadata/reflection degrade to nil/
// unavailable, recent/progressive degrade to an empty slice.
func (s *Service) WakeUpStratified(ctx context.Context, tenantID string, req models.WakeUpRequest) (*models.WakeUpResult, error) {
	if req.WithWhom == "" {
		return nil, apierrors.InvalidField("with_whom", "must be non-empty")
	}
	for _, layer := range req.Layers {
		if !validLayers[layer] {
			return nil, apierrors.InvalidArgument("unknown wake-up layer %q", layer)
		}
	}

	recentCount := req.RecentCount
	if recentCount <= 0 {
		recentCount = defaultRecentCount
	}
	if recentCount > maxLayerLimit {
		recentCount = maxLayerLimit
	}

	wanted := layerSet(req.Layers)
	result := &models.WakeUpResult{}

	var recentIDs []string
	if wanted["recent"] || wanted["progressive"] {
		recent, err := s.store.ListRecentHandoffs(ctx, tenantID, req.WithWhom, recentCount)
		if err != nil {
			return nil, err
		}
		if wanted["recent"] {
			result.Recent = recent
		}
		for _, h := range recent {
			recentIDs = append(recentIDs, h.HandoffID)
		}
		result.FirstSession = len(recent) == 0 && !wanted["metadata"]
	}

	if wanted["metadata"] {
		meta, err := s.store.GetTenantMetadata(ctx, tenantID, req.WithWhom)
		if err != nil && apierrors.KindOf(err) != apierrors.KindNotFound {
			return nil, err
		}
		result.Metadata = meta
		result.FirstSession = meta == nil
	}

	if wanted["reflection"] {
		refl, err := s.store.GetLatestReflection(ctx, tenantID, req.WithWhom)
		if err != nil && apierrors.KindOf(err) != apierrors.KindNotFound {
			return nil, err
		}
		if refl == nil {
			result.Reflection = &models.ReflectionView{Available: false, Reason: "no consolidated reflection yet"}
		} else {
			result.Reflection = &models.ReflectionView{Available: true, Data: refl}
		}
	}

	if wanted["progressive"] && req.Topic != "" {
		progressive, err := s.store.SearchHandoffsByTopic(ctx, tenantID, req.WithWhom, req.Topic, recentIDs, maxLayerLimit)
		if err != nil {
			return nil, err
		}
		result.Progressive = progressive
	}

	result.EstimatedTokens = estimateTokens(result)
	result.CompressionRatio = compressionRatio(result)

	if s.metrics != nil {
		reflectionMissing := wanted["reflection"] && (result.Reflection == nil || !result.Reflection.Available)
		s.metrics.RecordWakeUp(reflectionMissing)
	}

	return result, nil
}

func layerSet(layers []string) map[string]bool {
	if len(layers) == 0 {
		return map[string]bool{"metadata": true, "reflection": true, "recent": true}
	}
	out := make(map[string]bool, len(layers))
	for _, l := range layers {
		out[l] = true
	}
	return out
}

func estimateTokens(r *models.WakeUpResult) int {
	total := 0
	for _, h := range r.Recent {
		total += handoffTokens(h)
	}
	for _, h := range r.Progressive {
		total += handoffTokens(h)
	}
	if r.Reflection != nil && r.Reflection.Data != nil {
		total += chunker.EstimateTokens(strings.Join(r.Reflection.Data.Insights, "\n"))
	}
	if r.Metadata != nil {
		total += chunker.EstimateTokens(strings.Join(r.Metadata.AllTags, " "))
	}
	return total
}

func handoffTokens(h *models.Handoff) int {
	return chunker.EstimateTokens(strings.Join([]string{h.Experienced, h.Noticed, h.Learned, h.Story, h.Becoming, h.Remember}, "\n"))
}

// compressionRatio reports how much the stratified response shrinks the
// full handoff history it stands in for, when that's knowable — the
// session_count from the metadata layer against the handoffs actually
// returned. Without a metadata layer there's nothing to compare against.
func compressionRatio(r *models.WakeUpResult) float64 {
	if r.Metadata == nil || r.Metadata.SessionCount == 0 {
		return 1.0
	}
	returned := len(r.Recent) + len(r.Progressive)
	if returned == 0 {
		returned = 1
	}
	return float64(returned) / float64(r.Metadata.SessionCount)
}

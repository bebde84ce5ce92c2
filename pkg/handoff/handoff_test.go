package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/metrics"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

type fakeStore struct {
	inserted   *models.Handoff
	recent     []*models.Handoff
	progressive []*models.Handoff
	meta       *models.TenantMetadata
	metaErr    error
	reflection *models.Reflection
	reflErr    error
}

func (f *fakeStore) InsertHandoff(ctx context.Context, tenantID string, in models.CreateHandoffInput) (*models.Handoff, error) {
	f.inserted = &models.Handoff{HandoffID: "ho-1", TenantID: tenantID, WithWhom: in.WithWhom, Significance: in.Significance}
	return f.inserted, nil
}

func (f *fakeStore) ListRecentHandoffs(ctx context.Context, tenantID, withWhom string, limit int) ([]*models.Handoff, error) {
	return f.recent, nil
}

func (f *fakeStore) SearchHandoffsByTopic(ctx context.Context, tenantID, withWhom, topic string, excludeIDs []string, limit int) ([]*models.Handoff, error) {
	return f.progressive, nil
}

func (f *fakeStore) GetTenantMetadata(ctx context.Context, tenantID, withWhom string) (*models.TenantMetadata, error) {
	return f.meta, f.metaErr
}

func (f *fakeStore) GetLatestReflection(ctx context.Context, tenantID, withWhom string) (*models.Reflection, error) {
	return f.reflection, f.reflErr
}

func TestCreate_HappyPath(t *testing.T) {
	s := New(&fakeStore{}, metrics.New())
	h, err := s.Create(context.Background(), "tenant-1", models.CreateHandoffInput{WithWhom: "agent-2", SessionID: "sess-1", Significance: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "ho-1", h.HandoffID)
}

func TestCreate_RejectsEmptyWithWhom(t *testing.T) {
	s := New(&fakeStore{}, metrics.New())
	_, err := s.Create(context.Background(), "tenant-1", models.CreateHandoffInput{SessionID: "sess-1"})
	require.Error(t, err)
}

func TestCreate_RejectsSignificanceOutOfRange(t *testing.T) {
	s := New(&fakeStore{}, metrics.New())
	_, err := s.Create(context.Background(), "tenant-1", models.CreateHandoffInput{WithWhom: "agent-2", SessionID: "sess-1", Significance: 1.5})
	require.Error(t, err)
}

func TestGetLast_NotFoundWhenNoHandoffs(t *testing.T) {
	s := New(&fakeStore{}, metrics.New())
	_, err := s.GetLast(context.Background(), "tenant-1", "agent-2")
	require.Error(t, err)
	assert.Equal(t, apierrors.KindNotFound, apierrors.KindOf(err))
}

func TestGetLast_ReturnsMostRecent(t *testing.T) {
	store := &fakeStore{recent: []*models.Handoff{{HandoffID: "ho-1"}}}
	s := New(store, metrics.New())
	h, err := s.GetLast(context.Background(), "tenant-1", "agent-2")
	require.NoError(t, err)
	assert.Equal(t, "ho-1", h.HandoffID)
}

func TestWakeUpStratified_RejectsEmptyWithWhom(t *testing.T) {
	s := New(&fakeStore{}, metrics.New())
	_, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{})
	require.Error(t, err)
}

func TestWakeUpStratified_RejectsUnknownLayer(t *testing.T) {
	s := New(&fakeStore{}, metrics.New())
	_, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{WithWhom: "agent-2", Layers: []string{"bogus"}})
	require.Error(t, err)
}

func TestWakeUpStratified_MissingReflectionReturnsUnavailable(t *testing.T) {
	s := New(&fakeStore{reflErr: apierrors.NotFound("reflection not found")}, metrics.New())
	out, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{WithWhom: "agent-2", Layers: []string{"reflection"}})
	require.NoError(t, err)
	require.NotNil(t, out.Reflection)
	assert.False(t, out.Reflection.Available)
	assert.NotEmpty(t, out.Reflection.Reason)
}

func TestWakeUpStratified_ReflectionPresent(t *testing.T) {
	refl := &models.Reflection{ReflectionID: "r-1", Insights: []string{"insight one"}}
	s := New(&fakeStore{reflection: refl}, metrics.New())
	out, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{WithWhom: "agent-2", Layers: []string{"reflection"}})
	require.NoError(t, err)
	require.NotNil(t, out.Reflection)
	assert.True(t, out.Reflection.Available)
	assert.Equal(t, "r-1", out.Reflection.Data.ReflectionID)
}

func TestWakeUpStratified_RecentAndProgressiveLayers(t *testing.T) {
	store := &fakeStore{
		recent:      []*models.Handoff{{HandoffID: "ho-1", TS: time.Now()}},
		progressive: []*models.Handoff{{HandoffID: "ho-2", TS: time.Now().Add(-time.Hour)}},
	}
	s := New(store, metrics.New())
	out, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{
		WithWhom: "agent-2", Layers: []string{"recent", "progressive"}, Topic: "deploy",
	})
	require.NoError(t, err)
	assert.Len(t, out.Recent, 1)
	assert.Len(t, out.Progressive, 1)
}

func TestWakeUpStratified_NoTopicSkipsProgressiveSearch(t *testing.T) {
	store := &fakeStore{progressive: []*models.Handoff{{HandoffID: "ho-2"}}}
	s := New(store, metrics.New())
	out, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{
		WithWhom: "agent-2", Layers: []string{"progressive"},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Progressive)
}

func TestWakeUpStratified_FirstSessionWhenNoMetadata(t *testing.T) {
	s := New(&fakeStore{metaErr: apierrors.NotFound("tenant metadata not found")}, metrics.New())
	out, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{WithWhom: "agent-2", Layers: []string{"metadata"}})
	require.NoError(t, err)
	assert.True(t, out.FirstSession)
	assert.Nil(t, out.Metadata)
}

func TestWakeUpStratified_DefaultLayersWhenUnspecified(t *testing.T) {
	store := &fakeStore{recent: []*models.Handoff{{HandoffID: "ho-1"}}}
	s := New(store, metrics.New())
	out, err := s.WakeUpStratified(context.Background(), "tenant-1", models.WakeUpRequest{WithWhom: "agent-2"})
	require.NoError(t, err)
	assert.Len(t, out.Recent, 1)
}

package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/config"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/storage"
)

type fakeStore struct {
	chunks []*models.Chunk
	edits  map[string][]*models.MemoryEdit
}

func (f *fakeStore) ListChunkCandidates(ctx context.Context, tenantID string, filter storage.ChunkCandidateFilter) ([]*models.Chunk, error) {
	return f.chunks, nil
}

func (f *fakeStore) ListApprovedEditsForTargets(ctx context.Context, tenantID string, targetType models.EditTargetType, targetIDs []string) (map[string][]*models.MemoryEdit, error) {
	if f.edits == nil {
		return map[string][]*models.MemoryEdit{}, nil
	}
	return f.edits, nil
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.RecencyHalfLife = 72 * time.Hour
	return cfg
}

func chunk(id, text string, importance float64, ts time.Time, tags, refs []string) *models.Chunk {
	return &models.Chunk{
		ChunkID:     id,
		TenantID:    "tenant-1",
		SessionID:   "sess-1",
		TS:          ts,
		Kind:        models.KindMessage,
		Channel:     models.ChannelTeam,
		Sensitivity: models.SensitivityNone,
		Tags:        tags,
		Text:        text,
		Importance:  importance,
		Refs:        refs,
	}
}

func TestRetrieve_NoCandidatesReturnsEmpty(t *testing.T) {
	store := &fakeStore{}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelTeam})

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRetrieve_HigherImportanceRanksFirstWithoutQuery(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: []*models.Chunk{
		chunk("c-low", "some text", 0.2, now, nil, nil),
		chunk("c-high", "other text", 0.9, now, nil, nil),
	}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelTeam})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c-high", out[0].Chunk.ChunkID)
}

func TestRetrieve_QueryTextBoostsMatchingChunk(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: []*models.Chunk{
		chunk("c-match", "token budget is sixty five thousand", 0.3, now, nil, []string{"evt-1"}),
		chunk("c-nomatch", "unrelated content about coffee", 0.3, now, nil, []string{"evt-2"}),
	}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{
		TenantID:  "tenant-1",
		Channel:   models.ChannelTeam,
		QueryText: "what is our token budget",
	})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c-match", out[0].Chunk.ChunkID)
}

func TestRetrieve_SensitivityCeilingFiltersByChannel(t *testing.T) {
	now := time.Now()
	secret := chunk("c-secret", "the nuclear codes", 0.9, now, nil, nil)
	secret.Sensitivity = models.SensitivitySecret
	store := &fakeStore{chunks: []*models.Chunk{secret}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelPublic})

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRetrieve_SensitivityCeilingAllowsPrivateToSeeSecret(t *testing.T) {
	now := time.Now()
	secret := chunk("c-secret", "the nuclear codes", 0.9, now, nil, nil)
	secret.Sensitivity = models.SensitivitySecret
	store := &fakeStore{chunks: []*models.Chunk{secret}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelPrivate})

	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestRetrieve_RetractedChunkDropsFromPool(t *testing.T) {
	now := time.Now()
	c := chunk("c-1", "forget this", 0.5, now, nil, nil)
	store := &fakeStore{
		chunks: []*models.Chunk{c},
		edits: map[string][]*models.MemoryEdit{
			"c-1": {{Op: models.EditRetract, Status: models.EditApproved}},
		},
	}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelTeam})

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRetrieve_TieBreakOrdersByImportanceThenTSThenChunkID(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	store := &fakeStore{chunks: []*models.Chunk{
		chunk("c-b", "same", 0.5, older, nil, nil),
		chunk("c-a", "same", 0.5, newer, nil, nil),
	}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelTeam})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c-a", out[0].Chunk.ChunkID)
}

func TestRetrieve_FloatingSummaryNeverOutranksGroundedMatch(t *testing.T) {
	now := time.Now()
	floating := chunk("c-floating", "Budget is 32K tokens per call", 0.9, now, []string{"summary"}, nil)
	grounded := chunk("c-grounded", "Token budget is 65K per call", 0.5, now.Add(-time.Minute), nil, []string{"evt-1"})
	store := &fakeStore{chunks: []*models.Chunk{floating, grounded}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{
		TenantID:  "tenant-1",
		Channel:   models.ChannelTeam,
		QueryText: "what is our budget",
	})

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "c-grounded", out[0].Chunk.ChunkID)
}

func TestRetrieve_MaxCandidatesCapsResultSize(t *testing.T) {
	now := time.Now()
	store := &fakeStore{chunks: []*models.Chunk{
		chunk("c-1", "a", 0.9, now, nil, nil),
		chunk("c-2", "b", 0.8, now, nil, nil),
		chunk("c-3", "c", 0.7, now, nil, nil),
	}}
	r := New(store, testConfig())

	out, err := r.Retrieve(context.Background(), Request{TenantID: "tenant-1", Channel: models.ChannelTeam, MaxCandidates: 2})

	require.NoError(t, err)
	assert.Len(t, out, 2)
}

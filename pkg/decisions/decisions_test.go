package decisions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

type fakeStore struct {
	inserted      *models.Decision
	superseded    *models.Decision
	active        *models.Decision
	activeErr     error
	list          []*models.Decision
	edits         []*models.MemoryEdit
	editsByTarget map[string][]*models.MemoryEdit
	supersedeErr  error
}

func (f *fakeStore) InsertDecision(ctx context.Context, tenantID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error) {
	f.inserted = &models.Decision{DecisionID: "dec-new", TenantID: tenantID, Decision: in.Decision, Scope: in.Scope, Status: models.DecisionActive, DecidedBy: decidedBy}
	return f.inserted, nil
}

func (f *fakeStore) SupersedeDecision(ctx context.Context, tenantID, predecessorID, decidedBy string, in models.CreateDecisionInput) (*models.Decision, error) {
	if f.supersedeErr != nil {
		return nil, f.supersedeErr
	}
	f.superseded = &models.Decision{DecisionID: "dec-new", TenantID: tenantID, Decision: in.Decision, Scope: in.Scope, Status: models.DecisionActive, DecidedBy: decidedBy, Refs: append(append([]string{}, in.Refs...), predecessorID)}
	return f.superseded, nil
}

func (f *fakeStore) GetActiveDecision(ctx context.Context, tenantID, subjectType, subjectID string) (*models.Decision, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeStore) ListActiveDecisions(ctx context.Context, tenantID, projectID string, limit int) ([]*models.Decision, error) {
	return f.list, nil
}

func (f *fakeStore) ListApprovedEditsForTarget(ctx context.Context, tenantID string, targetType models.EditTargetType, targetID string) ([]*models.MemoryEdit, error) {
	return f.edits, nil
}

func (f *fakeStore) ListApprovedEditsForTargets(ctx context.Context, tenantID string, targetType models.EditTargetType, targetIDs []string) (map[string][]*models.MemoryEdit, error) {
	if f.editsByTarget == nil {
		return map[string][]*models.MemoryEdit{}, nil
	}
	return f.editsByTarget, nil
}

func TestCreate_RejectsEmptyDecisionText(t *testing.T) {
	l := New(&fakeStore{})
	_, err := l.Create(context.Background(), "tenant-1", "agent-1", models.CreateDecisionInput{Scope: models.ScopeProject})
	require.Error(t, err)
}

func TestCreate_RejectsUnknownScope(t *testing.T) {
	l := New(&fakeStore{})
	_, err := l.Create(context.Background(), "tenant-1", "agent-1", models.CreateDecisionInput{Decision: "use postgres", Scope: "nonexistent"})
	require.Error(t, err)
}

func TestCreate_HappyPath(t *testing.T) {
	store := &fakeStore{}
	l := New(store)
	d, err := l.Create(context.Background(), "tenant-1", "agent-1", models.CreateDecisionInput{Decision: "use postgres", Scope: models.ScopeProject})
	require.NoError(t, err)
	assert.Equal(t, "use postgres", d.Decision)
}

func TestSupersede_RejectsEmptyPredecessorID(t *testing.T) {
	l := New(&fakeStore{})
	_, err := l.Supersede(context.Background(), "tenant-1", "", "agent-1", models.CreateDecisionInput{Decision: "x", Scope: models.ScopeProject})
	require.Error(t, err)
}

func TestSupersede_HappyPath(t *testing.T) {
	store := &fakeStore{}
	l := New(store)
	d, err := l.Supersede(context.Background(), "tenant-1", "dec-old", "agent-1", models.CreateDecisionInput{Decision: "use mysql instead", Scope: models.ScopeProject})
	require.NoError(t, err)
	assert.Contains(t, d.Refs, "dec-old")
}

func TestSupersede_PropagatesConflictFromStore(t *testing.T) {
	store := &fakeStore{supersedeErr: apierrors.Conflict("decision %s is already superseded", "dec-old")}
	l := New(store)
	_, err := l.Supersede(context.Background(), "tenant-1", "dec-old", "agent-1", models.CreateDecisionInput{Decision: "x", Scope: models.ScopeProject})
	require.Error(t, err)
	assert.Equal(t, apierrors.KindConflict, apierrors.KindOf(err))
}

func TestGetActive_ReturnsResolvedDecision(t *testing.T) {
	store := &fakeStore{active: &models.Decision{DecisionID: "dec-1", Decision: "use postgres", Scope: models.ScopeProject, Status: models.DecisionActive, TS: time.Now()}}
	l := New(store)
	ed, err := l.GetActive(context.Background(), "tenant-1", models.ChannelTeam, false, "project", "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "use postgres", ed.Decision.Decision)
}

func TestGetActive_HiddenByRetractReturnsNotFound(t *testing.T) {
	store := &fakeStore{
		active: &models.Decision{DecisionID: "dec-1", Decision: "use postgres", Scope: models.ScopeProject, Status: models.DecisionActive, TS: time.Now()},
		edits:  []*models.MemoryEdit{{Op: models.EditRetract, Status: models.EditApproved}},
	}
	l := New(store)
	_, err := l.GetActive(context.Background(), "tenant-1", models.ChannelTeam, false, "project", "proj-1")
	require.Error(t, err)
	assert.Equal(t, apierrors.KindNotFound, apierrors.KindOf(err))
}

func TestListActive_DropsHiddenRowsAndKeepsVisibleOnes(t *testing.T) {
	store := &fakeStore{
		list: []*models.Decision{
			{DecisionID: "dec-1", Decision: "visible", Scope: models.ScopeProject, Status: models.DecisionActive, TS: time.Now()},
			{DecisionID: "dec-2", Decision: "retracted", Scope: models.ScopeProject, Status: models.DecisionActive, TS: time.Now()},
		},
		editsByTarget: map[string][]*models.MemoryEdit{
			"dec-2": {{Op: models.EditRetract, Status: models.EditApproved}},
		},
	}
	l := New(store)
	out, err := l.ListActive(context.Background(), "tenant-1", models.ChannelTeam, false, "proj-1", 100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "dec-1", out[0].DecisionID)
}

func TestListActive_EmptyStoreReturnsNil(t *testing.T) {
	l := New(&fakeStore{})
	out, err := l.ListActive(context.Background(), "tenant-1", models.ChannelTeam, false, "proj-1", 100)
	require.NoError(t, err)
	assert.Empty(t, out)
}

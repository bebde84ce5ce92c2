package capsules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

type fakeStore struct {
	created      *models.Capsule
	createErr    error
	available    []*models.Capsule
	get          *models.Capsule
	getErr       error
	revokeErr    error
	revokedID    string
	revokedActor string
}

func (f *fakeStore) CreateCapsule(ctx context.Context, tenantID, authorAgentID string, in models.CreateCapsuleInput) (*models.Capsule, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &models.Capsule{CapsuleID: "cap-1", TenantID: tenantID, AuthorAgentID: authorAgentID, AudienceAgentIDs: in.AudienceAgentIDs, TTLDays: in.TTLDays}
	return f.created, nil
}

func (f *fakeStore) GetCapsuleForAudience(ctx context.Context, tenantID, capsuleID, agentID string) (*models.Capsule, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.get, nil
}

func (f *fakeStore) ListAvailableCapsules(ctx context.Context, tenantID, subjectType, subjectID, agentID string) ([]*models.Capsule, error) {
	return f.available, nil
}

func (f *fakeStore) RevokeCapsule(ctx context.Context, tenantID, capsuleID, agentID string) error {
	f.revokedID = capsuleID
	f.revokedActor = agentID
	return f.revokeErr
}

func validInput() models.CreateCapsuleInput {
	return models.CreateCapsuleInput{
		Scope:            models.ScopeProject,
		SubjectType:      "project",
		SubjectID:        "proj-1",
		AuthorAgentID:    "agent-1",
		AudienceAgentIDs: []string{"agent-2"},
		Items:            models.CapsuleItems{ChunkIDs: []string{"chunk-1"}},
		TTLDays:          30,
	}
}

func TestCreate_HappyPath(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	c, err := s.Create(context.Background(), "tenant-1", "agent-1", validInput())
	require.NoError(t, err)
	assert.Equal(t, "cap-1", c.CapsuleID)
}

func TestCreate_RejectsEmptyAudience(t *testing.T) {
	s := New(&fakeStore{})
	in := validInput()
	in.AudienceAgentIDs = nil
	_, err := s.Create(context.Background(), "tenant-1", "agent-1", in)
	require.Error(t, err)
}

func TestCreate_RejectsTTLBelowMinimum(t *testing.T) {
	s := New(&fakeStore{})
	in := validInput()
	in.TTLDays = 0
	_, err := s.Create(context.Background(), "tenant-1", "agent-1", in)
	require.Error(t, err)
}

func TestCreate_RejectsTTLAboveMaximum(t *testing.T) {
	s := New(&fakeStore{})
	in := validInput()
	in.TTLDays = 366
	_, err := s.Create(context.Background(), "tenant-1", "agent-1", in)
	require.Error(t, err)
}

func TestCreate_RejectsMissingSubject(t *testing.T) {
	s := New(&fakeStore{})
	in := validInput()
	in.SubjectID = ""
	_, err := s.Create(context.Background(), "tenant-1", "agent-1", in)
	require.Error(t, err)
}

func TestCreate_RejectsEmptyItems(t *testing.T) {
	s := New(&fakeStore{})
	in := validInput()
	in.Items = models.CapsuleItems{}
	_, err := s.Create(context.Background(), "tenant-1", "agent-1", in)
	require.Error(t, err)
}

func TestCreate_PropagatesIntegrityErrorFromStore(t *testing.T) {
	store := &fakeStore{createErr: apierrors.Integrity("capsule references an unknown chunk id")}
	s := New(store)
	_, err := s.Create(context.Background(), "tenant-1", "agent-1", validInput())
	require.Error(t, err)
	assert.Equal(t, apierrors.KindIntegrityError, apierrors.KindOf(err))
}

func TestRevoke_DelegatesToStore(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	err := s.Revoke(context.Background(), "tenant-1", "cap-1", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "cap-1", store.revokedID)
	assert.Equal(t, "agent-1", store.revokedActor)
}

func TestAvailable_DelegatesToStore(t *testing.T) {
	store := &fakeStore{available: []*models.Capsule{{CapsuleID: "cap-1"}}}
	s := New(store)
	out, err := s.Available(context.Background(), "tenant-1", "project", "proj-1", "agent-2")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

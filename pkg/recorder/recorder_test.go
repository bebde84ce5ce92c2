package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/redaction"
)

type fakeStore struct {
	existingEvents map[string]bool
	recorded       models.CreateEventInput
	recordedCalled bool
}

func (f *fakeStore) EventsExist(ctx context.Context, tenantID string, eventIDs []string) (bool, error) {
	for _, id := range eventIDs {
		if !f.existingEvents[id] {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeStore) RecordEvent(ctx context.Context, tenantID string, in models.CreateEventInput, derive func(*models.Event) []*models.Chunk) (*models.Event, []*models.Chunk, error) {
	f.recorded = in
	f.recordedCalled = true
	ev := &models.Event{
		EventID:     "evt-1",
		TenantID:    tenantID,
		SessionID:   in.SessionID,
		Channel:     in.Channel,
		Actor:       in.Actor,
		Kind:        in.Kind,
		Sensitivity: in.Sensitivity,
		Content:     in.Content,
	}
	chunks := derive(ev)
	return ev, chunks, nil
}

func validInput() models.CreateEventInput {
	return models.CreateEventInput{
		SessionID: "sess-1",
		Channel:   models.ChannelTeam,
		Actor:     models.EventActor{Type: models.ActorAgent, ID: "agent-1"},
		Kind:      models.KindMessage,
		Content:   map[string]any{"text": "hello there"},
	}
}

func TestRecordEvent_HappyPathReturnsEventIDAndChunkIDs(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	res, err := r.RecordEvent(context.Background(), "tenant-1", validInput())

	require.NoError(t, err)
	assert.Equal(t, "evt-1", res.EventID)
	assert.True(t, store.recordedCalled)
}

func TestRecordEvent_DefaultsSensitivityToNone(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	_, err := r.RecordEvent(context.Background(), "tenant-1", validInput())

	require.NoError(t, err)
	assert.Equal(t, models.SensitivityNone, store.recorded.Sensitivity)
}

func TestRecordEvent_MissingSessionIDRejected(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.SessionID = ""
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
	assert.Equal(t, apierrors.KindInvalidArgument, apierrors.KindOf(err))
	assert.False(t, store.recordedCalled)
}

func TestRecordEvent_UnknownChannelRejected(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Channel = "nonexistent"
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
	assert.False(t, store.recordedCalled)
}

func TestRecordEvent_UnknownActorTypeRejected(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Actor.Type = "robot"
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
}

func TestRecordEvent_UnknownKindRejected(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Kind = "nonsense"
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
}

func TestRecordEvent_NilContentRejected(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Content = nil
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
}

func TestRecordEvent_OversizedContentRejected(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	big := make([]byte, models.MaxContentBytes+1)
	in := validInput()
	in.Content = map[string]any{"blob": string(big)}
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
}

func TestRecordEvent_RefsMustResolveToExistingEvents(t *testing.T) {
	store := &fakeStore{existingEvents: map[string]bool{"evt-0": true}}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Refs = []string{"evt-0", "evt-missing"}
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.Error(t, err)
	assert.False(t, store.recordedCalled)
}

func TestRecordEvent_RefsResolveSucceeds(t *testing.T) {
	store := &fakeStore{existingEvents: map[string]bool{"evt-0": true}}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Refs = []string{"evt-0"}
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.NoError(t, err)
	assert.True(t, store.recordedCalled)
}

func TestRecordEvent_RedactsContentAtOrAboveThreshold(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Sensitivity = models.SensitivitySecret
	in.Content = map[string]any{"password": "hunter2"}
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", store.recorded.Content["password"])
}

func TestRecordEvent_LeavesContentUnredactedBelowThreshold(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Sensitivity = models.SensitivityLow
	in.Content = map[string]any{"password": "hunter2"}
	_, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.NoError(t, err)
	assert.Equal(t, "hunter2", store.recorded.Content["password"])
}

func TestRecordEvent_ChunkIDsReflectDerivedChunks(t *testing.T) {
	store := &fakeStore{}
	r := New(store, redaction.NewService(), models.SensitivityHigh)

	in := validInput()
	in.Kind = models.KindDecision
	in.Content = map[string]any{"decision": "use postgres", "rationale": "already in the stack"}
	res, err := r.RecordEvent(context.Background(), "tenant-1", in)

	require.NoError(t, err)
	assert.NotEmpty(t, res.ChunkIDs)
}

package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/storage"
	testdb "github.com/callin2/agent-memory-sub006/test/database"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	client := testdb.NewTestClient(t)
	return storage.New(client)
}

func TestInsertEvent_GetEvent_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ev, err := s.InsertEvent(ctx, "tenant-1", models.CreateEventInput{
		SessionID:   "sess-1",
		Channel:     models.ChannelPrivate,
		Actor:       models.EventActor{Type: models.ActorAgent, ID: "agent-1"},
		Kind:        models.KindMessage,
		Sensitivity: models.SensitivityNone,
		Content:     map[string]any{"text": "hello"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, ev.EventID)

	got, err := s.GetEvent(ctx, "tenant-1", ev.EventID)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, got.EventID)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "hello", got.Content["text"])
}

func TestGetEvent_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.GetEvent(ctx, "tenant-1", "does-not-exist")
	require.Error(t, err)
}

func TestListEventsBySession_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for i := 0; i < 3; i++ {
		_, err := s.InsertEvent(ctx, "tenant-1", models.CreateEventInput{
			SessionID:   "sess-list",
			Channel:     models.ChannelPrivate,
			Actor:       models.EventActor{Type: models.ActorAgent, ID: "agent-1"},
			Kind:        models.KindMessage,
			Sensitivity: models.SensitivityNone,
			Content:     map[string]any{"i": i},
		})
		require.NoError(t, err)
	}

	events, err := s.ListEventsBySession(ctx, "tenant-1", "sess-list", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
}

func TestChunk_InsertGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ev, err := s.InsertEvent(ctx, "tenant-1", models.CreateEventInput{
		SessionID:   "sess-1",
		Channel:     models.ChannelPrivate,
		Actor:       models.EventActor{Type: models.ActorAgent, ID: "agent-1"},
		Kind:        models.KindMessage,
		Sensitivity: models.SensitivityNone,
		Content:     map[string]any{"text": "hello"},
	})
	require.NoError(t, err)

	chunk := &models.Chunk{
		ChunkID:     "chunk-1",
		TenantID:    "tenant-1",
		EventID:     ev.EventID,
		SessionID:   "sess-1",
		Kind:        models.KindMessage,
		Channel:     models.ChannelPrivate,
		Sensitivity: models.SensitivityNone,
		Text:        "hello",
		TokenEst:    1,
		Importance:  0.5,
	}
	require.NoError(t, s.InsertChunk(ctx, chunk))

	got, err := s.GetChunk(ctx, "tenant-1", "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
}

func TestTask_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	task, err := s.InsertTask(ctx, "tenant-1", models.CreateTaskInput{
		Title:       "write tests",
		Status:      models.TaskOpen,
		ProjectRefs: []string{"proj-1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, task.TaskID)

	got, err := s.GetTask(ctx, "tenant-1", task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, "write tests", got.Title)

	newStatus := models.TaskDoing
	updated, err := s.UpdateTask(ctx, "tenant-1", task.TaskID, models.UpdateTaskInput{Status: &newStatus})
	require.NoError(t, err)
	assert.Equal(t, models.TaskDoing, updated.Status)

	tasks, err := s.ListTasks(ctx, "tenant-1", models.TaskFilters{ProjectID: "proj-1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, s.DeleteTask(ctx, "tenant-1", task.TaskID))
	_, err = s.GetTask(ctx, "tenant-1", task.TaskID)
	require.Error(t, err)
}

func TestGetProjectSummary_CountsByStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	statuses := []models.TaskStatus{models.TaskOpen, models.TaskDoing, models.TaskBlocked, models.TaskDone}
	for i, st := range statuses {
		_, err := s.InsertTask(ctx, "tenant-1", models.CreateTaskInput{
			Title:       "task",
			Status:      st,
			ProjectRefs: []string{"proj-summary"},
		})
		require.NoError(t, err, "task %d", i)
	}

	summary, err := s.GetProjectSummary(ctx, "tenant-1", "proj-summary", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OpenCount)
	assert.Equal(t, 1, summary.DoingCount)
	assert.Equal(t, 1, summary.BlockedCount)
	assert.Equal(t, 1, summary.DoneCount)
}

func TestSupersedeDecision_InjectsPredecessorIntoRefsEvenWhenCallerOmitsIt(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	original, err := s.InsertDecision(ctx, "tenant-1", "agent-1", models.CreateDecisionInput{
		Decision: "use mysql",
		Scope:    models.ScopeProject,
	})
	require.NoError(t, err)

	replacement, err := s.SupersedeDecision(ctx, "tenant-1", original.DecisionID, "agent-1", models.CreateDecisionInput{
		Decision: "use postgres instead",
		Scope:    models.ScopeProject,
	})
	require.NoError(t, err)
	assert.Contains(t, replacement.Refs, original.DecisionID, "predecessor must appear in the successor's refs regardless of caller input")
}

func TestTask_UpdateRejectsSelfReferenceInBlockedBy(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	task, err := s.InsertTask(ctx, "tenant-1", models.CreateTaskInput{Title: "solo", Status: models.TaskOpen})
	require.NoError(t, err)

	_, err = s.UpdateTask(ctx, "tenant-1", task.TaskID, models.UpdateTaskInput{BlockedBy: []string{task.TaskID}})
	require.Error(t, err)
}

func TestTask_UpdateRejectsCycleAndMaintainsBlockingReverseEdge(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	a, err := s.InsertTask(ctx, "tenant-1", models.CreateTaskInput{Title: "a", Status: models.TaskOpen})
	require.NoError(t, err)
	b, err := s.InsertTask(ctx, "tenant-1", models.CreateTaskInput{Title: "b", Status: models.TaskOpen, BlockedBy: []string{a.TaskID}})
	require.NoError(t, err)

	gotA, err := s.GetTask(ctx, "tenant-1", a.TaskID)
	require.NoError(t, err)
	assert.Contains(t, gotA.Blocking, b.TaskID, "inserting b with blocked_by=[a] must add b to a.blocking")

	_, err = s.UpdateTask(ctx, "tenant-1", a.TaskID, models.UpdateTaskInput{BlockedBy: []string{b.TaskID}})
	require.Error(t, err, "a depends on b while b already depends on a transitively through this edge, a cycle")

	_, err = s.UpdateTask(ctx, "tenant-1", b.TaskID, models.UpdateTaskInput{BlockedBy: []string{}})
	require.NoError(t, err)

	gotA, err = s.GetTask(ctx, "tenant-1", a.TaskID)
	require.NoError(t, err)
	assert.NotContains(t, gotA.Blocking, b.TaskID, "clearing b.blocked_by must remove b from a.blocking")
}

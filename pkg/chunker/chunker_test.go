package chunker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestDerive_UnknownKindYieldsNoChunks(t *testing.T) {
	ev := &models.Event{EventID: "evt-1", Kind: models.EventKind("unknown")}
	assert.Nil(t, Derive(ev))
}

func TestDerive_Message_SplitsOnBlankLines(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-1",
		Kind:    models.KindMessage,
		Actor:   models.EventActor{Type: models.ActorHuman},
		Content: map[string]any{
			"text": "first paragraph here.\n\nsecond paragraph, different topic.",
		},
	}

	chunks := Derive(ev)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first paragraph here.", chunks[0].Text)
	assert.Equal(t, "second paragraph, different topic.", chunks[1].Text)
	for _, c := range chunks {
		assert.Equal(t, ev.EventID, c.EventID)
		assert.Equal(t, models.KindMessage, c.Kind)
		assert.InDelta(t, 0.5, c.Importance, 0.0001)
	}
}

func TestDerive_Message_EmptyTextYieldsNoChunks(t *testing.T) {
	ev := &models.Event{EventID: "evt-1", Kind: models.KindMessage, Content: map[string]any{}}
	assert.Nil(t, Derive(ev))
}

func TestDerive_Message_SoftCapsLongParagraphs(t *testing.T) {
	word := "lorem "
	long := strings.Repeat(word, 2000) // far beyond maxParagraphTokens
	ev := &models.Event{
		EventID: "evt-1",
		Kind:    models.KindMessage,
		Content: map[string]any{"text": long},
	}

	chunks := Derive(ev)
	require.Greater(t, len(chunks), 1, "a long paragraph must split into multiple chunks")
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenEst, maxParagraphTokens+1)
	}
}

func TestDerive_ToolCall(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-2",
		Kind:    models.KindToolCall,
		Content: map[string]any{"tool": "search_files", "args": "pattern=*.go"},
	}

	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "search_files")
	assert.Contains(t, chunks[0].Text, "pattern=*.go")
}

func TestDerive_ToolCall_DefaultsToolName(t *testing.T) {
	ev := &models.Event{EventID: "evt-2", Kind: models.KindToolCall, Content: map[string]any{}}
	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "unknown_tool")
}

func TestDerive_ToolResult_PrefersExcerptText(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-3",
		Kind:    models.KindToolResult,
		Content: map[string]any{"excerpt_text": "first 200 chars of output", "result": "ignored"},
	}
	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Equal(t, "first 200 chars of output", chunks[0].Text)
}

func TestDerive_ToolResult_FallsBackToResult(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-3",
		Kind:    models.KindToolResult,
		Content: map[string]any{"result": 42},
	}
	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Equal(t, "42", chunks[0].Text)
}

func TestDerive_ToolResult_NoFieldsYieldsNoChunks(t *testing.T) {
	ev := &models.Event{EventID: "evt-3", Kind: models.KindToolResult, Content: map[string]any{}}
	assert.Nil(t, Derive(ev))
}

func TestDerive_Decision_TagsAndImportance(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-4",
		Kind:    models.KindDecision,
		Content: map[string]any{"decision": "use postgres", "rationale": "team already operates it"},
	}
	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Equal(t, "use postgres — team already operates it", chunks[0].Text)
	assert.Contains(t, chunks[0].Tags, "decision")
	assert.InDelta(t, 1.0, chunks[0].Importance, 0.0001)
}

func TestDerive_Decision_NoRationale(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-4",
		Kind:    models.KindDecision,
		Content: map[string]any{"decision": "use postgres"},
	}
	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Equal(t, "use postgres", chunks[0].Text)
}

func TestDerive_TaskUpdateAndArtifact_ShareTitleDerivation(t *testing.T) {
	task := &models.Event{
		EventID: "evt-5",
		Kind:    models.KindTaskUpdate,
		Content: map[string]any{"title": "wire up retrieval scoring", "status": "doing"},
	}
	chunks := Derive(task)
	require.Len(t, chunks, 1)
	assert.Equal(t, "wire up retrieval scoring (doing)", chunks[0].Text)

	artifact := &models.Event{
		EventID: "evt-6",
		Kind:    models.KindArtifact,
		Content: map[string]any{"title": "design doc v2"},
	}
	chunks = Derive(artifact)
	require.Len(t, chunks, 1)
	assert.Equal(t, "design doc v2", chunks[0].Text)
}

func TestDerive_InheritsScopeSubjectProjectAndRefsUnchanged(t *testing.T) {
	scope := models.ScopeProject
	ts := time.Now()
	ev := &models.Event{
		EventID:     "evt-7",
		TenantID:    "tenant-a",
		SessionID:   "sess-1",
		TS:          ts,
		Kind:        models.KindDecision,
		Channel:     models.ChannelTeam,
		Sensitivity: models.SensitivityNone,
		Scope:       &scope,
		SubjectType: strPtr("agent"),
		SubjectID:   strPtr("agent-1"),
		ProjectID:   strPtr("proj-1"),
		Refs:        []string{"chunk-9"},
		Content:     map[string]any{"decision": "adopt ent for schema docs"},
	}

	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, ev.TenantID, c.TenantID)
	assert.Equal(t, ev.SessionID, c.SessionID)
	assert.Equal(t, ev.TS, c.TS)
	assert.Equal(t, ev.Channel, c.Channel)
	assert.Equal(t, ev.Sensitivity, c.Sensitivity)
	assert.Same(t, ev.Scope, c.Scope)
	assert.Equal(t, ev.SubjectType, c.SubjectType)
	assert.Equal(t, ev.SubjectID, c.SubjectID)
	assert.Equal(t, ev.ProjectID, c.ProjectID)
	assert.Equal(t, ev.Refs, c.Refs)
}

func TestDerive_TruncatesTextToMaxChunkBytes(t *testing.T) {
	ev := &models.Event{
		EventID: "evt-8",
		Kind:    models.KindToolResult,
		Content: map[string]any{"excerpt_text": strings.Repeat("x", models.MaxChunkTextBytes+500)},
	}
	chunks := Derive(ev)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Text, models.MaxChunkTextBytes)
}

func TestMergeTags_DedupesUnion(t *testing.T) {
	got := mergeTags([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestMergeTags_NoExtraReturnsBaseUnchanged(t *testing.T) {
	base := []string{"a", "b"}
	assert.Equal(t, base, mergeTags(base, nil))
}

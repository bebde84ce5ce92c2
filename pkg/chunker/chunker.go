// Package chunker derives searchable Chunk rows from a single Event,
// inside the same transaction the event was written in (§4.2, §4.3). It
// never reads or writes storage itself — Derive is a pure function over
// an Event, and pkg/recorder is the one that persists the result.
package chunker

import (
	"fmt"
	"strings"

	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// maxParagraphTokens soft-caps a message chunk (§4.3: "soft-cap ≤ ~1000 tokens").
const maxParagraphTokens = 1000

// derivation dispatches by event kind, a small table rather than a
// type switch so adding a kind is one new entry plus a case function.
var derivation = map[models.EventKind]func(*models.Event) []chunkDraft{
	models.KindMessage:    deriveMessage,
	models.KindToolCall:   deriveToolCall,
	models.KindToolResult: deriveToolResult,
	models.KindDecision:   deriveDecision,
	models.KindTaskUpdate: deriveTitleChunk,
	models.KindArtifact:   deriveTitleChunk,
}

// chunkDraft is the derivation output before scope/subject inheritance
// and importance seeding are applied uniformly by Derive.
type chunkDraft struct {
	text string
	tags []string
}

// Derive produces 0..N chunks for ev. Every chunk inherits ev's scope,
// subject, and project unchanged (§4.3) — only text, tags, and
// kind-seeded importance vary by derivation rule.
func Derive(ev *models.Event) []*models.Chunk {
	fn, ok := derivation[ev.Kind]
	if !ok {
		return nil
	}

	drafts := fn(ev)
	chunks := make([]*models.Chunk, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.text) == "" {
			continue
		}
		text := d.text
		if len(text) > models.MaxChunkTextBytes {
			text = text[:models.MaxChunkTextBytes]
		}
		chunks = append(chunks, &models.Chunk{
			TenantID:    ev.TenantID,
			EventID:     ev.EventID,
			SessionID:   ev.SessionID,
			TS:          ev.TS,
			Kind:        ev.Kind,
			Channel:     ev.Channel,
			Sensitivity: ev.Sensitivity,
			Tags:        mergeTags(ev.Tags, d.tags),
			Text:        text,
			TokenEst:    EstimateTokens(text),
			Importance:  SeedImportance(ev, d.tags),
			Scope:       ev.Scope,
			SubjectType: ev.SubjectType,
			SubjectID:   ev.SubjectID,
			ProjectID:   ev.ProjectID,
			Refs:        ev.Refs,
		})
	}
	return chunks
}

func mergeTags(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, t := range append(append([]string{}, base...), extra...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func stringField(content map[string]any, key string) string {
	v, ok := content[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// deriveMessage splits a message's text into paragraphs, each its own
// chunk, soft-capped to keep any one chunk from dominating a candidate
// pool (§4.3).
func deriveMessage(ev *models.Event) []chunkDraft {
	text := stringField(ev.Content, "text")
	if text == "" {
		return nil
	}

	paragraphs := strings.Split(text, "\n\n")
	var drafts []chunkDraft
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for _, piece := range splitAtTokenCap(p, maxParagraphTokens) {
			drafts = append(drafts, chunkDraft{text: piece})
		}
	}
	return drafts
}

// splitAtTokenCap breaks text into pieces no longer than maxTokens as
// estimated by EstimateTokens, splitting on whitespace boundaries.
func splitAtTokenCap(text string, maxTokens int) []string {
	if EstimateTokens(text) <= maxTokens {
		return []string{text}
	}

	words := strings.Fields(text)
	var pieces []string
	var cur strings.Builder
	curTokens := 0
	for _, w := range words {
		wTokens := EstimateTokens(w) + 1
		if curTokens+wTokens > maxTokens && cur.Len() > 0 {
			pieces = append(pieces, strings.TrimSpace(cur.String()))
			cur.Reset()
			curTokens = 0
		}
		cur.WriteString(w)
		cur.WriteByte(' ')
		curTokens += wTokens
	}
	if cur.Len() > 0 {
		pieces = append(pieces, strings.TrimSpace(cur.String()))
	}
	return pieces
}

func deriveToolCall(ev *models.Event) []chunkDraft {
	tool := stringField(ev.Content, "tool")
	if tool == "" {
		tool = "unknown_tool"
	}
	args := stringField(ev.Content, "args")
	text := fmt.Sprintf("called %s", tool)
	if args != "" {
		text = fmt.Sprintf("%s with %s", text, args)
	}
	return []chunkDraft{{text: text}}
}

func deriveToolResult(ev *models.Event) []chunkDraft {
	if excerpt := stringField(ev.Content, "excerpt_text"); excerpt != "" {
		return []chunkDraft{{text: excerpt}}
	}
	if result, ok := ev.Content["result"]; ok {
		return []chunkDraft{{text: fmt.Sprintf("%v", result)}}
	}
	return nil
}

func deriveDecision(ev *models.Event) []chunkDraft {
	decision := stringField(ev.Content, "decision")
	rationale := stringField(ev.Content, "rationale")
	if decision == "" {
		return nil
	}
	text := decision
	if rationale != "" {
		text = fmt.Sprintf("%s — %s", decision, rationale)
	}
	return []chunkDraft{{text: text, tags: []string{"decision"}}}
}

func deriveTitleChunk(ev *models.Event) []chunkDraft {
	title := stringField(ev.Content, "title")
	if title == "" {
		return nil
	}
	text := title
	if status := stringField(ev.Content, "status"); status != "" {
		text = fmt.Sprintf("%s (%s)", title, status)
	}
	return []chunkDraft{{text: text}}
}

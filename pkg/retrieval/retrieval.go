// Package retrieval implements the retrieve algorithm (§4.5): pool a
// tenant-scoped set of candidate chunks through the Effective View, score
// each one against the caller's query/intent, and return them in
// deterministic rank order. The orchestrator (build_acb) and the
// search_chunks operation both sit on top of this one scoring engine.
package retrieval

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/callin2/agent-memory-sub006/pkg/config"
	"github.com/callin2/agent-memory-sub006/pkg/effective"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/storage"
)

// Store is the slice of *storage.Storage retrieval needs.
type Store interface {
	ListChunkCandidates(ctx context.Context, tenantID string, f storage.ChunkCandidateFilter) ([]*models.Chunk, error)
	ListApprovedEditsForTargets(ctx context.Context, tenantID string, targetType models.EditTargetType, targetIDs []string) (map[string][]*models.MemoryEdit, error)
}

// Request is the input to Retrieve.
type Request struct {
	TenantID           string
	SessionID          string
	SessionScoped      bool
	Channel            models.Channel
	Intent             string
	QueryText          string
	Scope              *models.Scope
	Subject            *models.Subject
	ProjectID          string
	IncludeQuarantined bool
	MaxCandidates      int
}

// Candidate is one scored, edit-resolved chunk.
type Candidate struct {
	Chunk      *models.EffectiveChunk
	Score      float64
	FTSRank    float64
	Importance float64
	Recency    float64
	TagOverlap float64
}

// Retriever runs the retrieve algorithm against a Store.
type Retriever struct {
	store Store
	cfg   *config.Config
}

// New wires a Retriever against storage and the scoring configuration.
func New(store Store, cfg *config.Config) *Retriever {
	return &Retriever{store: store, cfg: cfg}
}

// Retrieve runs the four-step algorithm from §4.5: candidate pool, scoring,
// deterministic tie-break, floating-fact suppression.
func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]Candidate, error) {
	limit := req.MaxCandidates
	if limit <= 0 || limit > models.DefaultMaxCandidatePool {
		limit = models.DefaultMaxCandidatePool
	}

	filter := storage.ChunkCandidateFilter{
		ProjectID: req.ProjectID,
		Limit:     limit,
	}
	if req.SessionScoped {
		filter.SessionID = req.SessionID
	}
	if req.Scope != nil {
		filter.Scope = *req.Scope
	}
	if req.Subject != nil {
		filter.SubjectType = req.Subject.Type
		filter.SubjectID = req.Subject.ID
	}

	bases, err := r.store.ListChunkCandidates(ctx, req.TenantID, filter)
	if err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		return nil, nil
	}

	chunkIDs := make([]string, len(bases))
	for i, c := range bases {
		chunkIDs[i] = c.ChunkID
	}
	edits, err := r.store.ListApprovedEditsForTargets(ctx, req.TenantID, models.EditTargetChunk, chunkIDs)
	if err != nil {
		return nil, err
	}

	resolved := effective.ApplyChunks(bases, edits, req.Channel, req.IncludeQuarantined)

	ceiling := req.Channel.SensitivityCeiling()
	weights := r.cfg.RetrievalWeights
	wFTS := weights.FTS
	if req.QueryText == "" {
		wFTS = 0
	}
	halfLife := r.cfg.RecencyHalfLife
	queryTokens := tokenize(req.QueryText)
	intentTokens := tokenize(req.Intent)
	now := latestTS(resolved)

	candidates := make([]Candidate, 0, len(resolved))
	for _, ec := range resolved {
		if !ec.Sensitivity.LTE(ceiling) {
			continue
		}
		ftsRank := termOverlap(queryTokens, ec.Text)
		recency := recencyDecay(now.Sub(ec.TS).Seconds(), halfLife.Seconds())
		tagOverlap := tagOverlapScore(intentTokens, ec.Tags)
		score := wFTS*ftsRank + weights.Importance*ec.Importance + weights.Recency*recency + weights.Tag*tagOverlap

		candidates = append(candidates, Candidate{
			Chunk:      ec,
			Score:      score,
			FTSRank:    ftsRank,
			Importance: ec.Importance,
			Recency:    recency,
			TagOverlap: tagOverlap,
		})
	}

	sortCandidates(candidates)
	candidates = suppressFloatingFacts(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// sortCandidates applies the tie-break from §4.5: higher score, then
// higher importance, then newer ts, then lexicographic chunk_id.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if !a.Chunk.TS.Equal(b.Chunk.TS) {
			return a.Chunk.TS.After(b.Chunk.TS)
		}
		return a.Chunk.ChunkID < b.Chunk.ChunkID
	})
}

// suppressFloatingFacts demotes refs-less summary chunks below the best
// grounded (refs non-empty) candidate that actually matches the query, so
// a floating summary never outranks a grounded decision or chunk covering
// the same topic.
func suppressFloatingFacts(candidates []Candidate) []Candidate {
	bestGrounded := -1.0
	for _, c := range candidates {
		if len(c.Chunk.Refs) > 0 && c.FTSRank > 0 && c.Score > bestGrounded {
			bestGrounded = c.Score
		}
	}
	if bestGrounded < 0 {
		return candidates
	}

	changed := false
	for i := range candidates {
		c := &candidates[i]
		if len(c.Chunk.Refs) == 0 && hasTag(c.Chunk.Tags, "summary") && c.FTSRank > 0 && c.Score >= bestGrounded {
			c.Score = math.Nextafter(bestGrounded, math.Inf(-1))
			changed = true
		}
	}
	if changed {
		sortCandidates(candidates)
	}
	return candidates
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// latestTS anchors recency decay to the newest ts in the pool rather than
// wall-clock time, so retrieval scoring stays deterministic in tests.
func latestTS(chunks []*models.EffectiveChunk) time.Time {
	var latest time.Time
	for _, c := range chunks {
		if c.TS.After(latest) {
			latest = c.TS
		}
	}
	return latest
}

func recencyDecay(ageSeconds, halfLifeSeconds float64) float64 {
	if halfLifeSeconds <= 0 {
		return 0
	}
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	return math.Pow(0.5, ageSeconds/halfLifeSeconds)
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		out[tok] = true
	}
	return out
}

// termOverlap is a deterministic, index-free stand-in for a Postgres
// ts_rank: the fraction of query tokens also present in text. Real
// full-text search (plainto_tsquery) still drives SearchChunksFTS's SQL
// prefilter; this only supplies the fts_rank scoring signal once the pool
// is already in hand.
func termOverlap(queryTokens map[string]bool, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	textTokens := tokenize(text)
	matched := 0
	for tok := range queryTokens {
		if textTokens[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func tagOverlapScore(intentTokens map[string]bool, tags []string) float64 {
	if len(tags) == 0 || len(intentTokens) == 0 {
		return 0
	}
	matched := 0
	for _, tag := range tags {
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(tag), -1) {
			if intentTokens[tok] {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(tags))
}

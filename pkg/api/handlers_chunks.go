package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/effective"
	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/retrieval"
)

// channelFrom reads the optional channel query param, defaulting to the
// most common agent-to-agent reader class when the caller omits it —
// decided the same way in get_active_decisions (see DESIGN.md).
func channelFrom(c *gin.Context) models.Channel {
	if v := models.Channel(c.Query("channel")); v.Valid() {
		return v
	}
	return models.ChannelAgent
}

// get_chunks has no dedicated service package (§6's "thin gin HTTP
// transport... still wired" framing) — it composes storage's base read
// with pkg/effective directly, the same pattern pkg/decisions.GetActive
// follows one layer down.
func (s *Server) getChunksHandler(c *gin.Context) {
	ids := queryCSV(c, "chunk_ids")
	if len(ids) == 0 {
		writeErr(c, apierrors.InvalidField("chunk_ids", "required"))
		return
	}
	tenantID := tenantFrom(c)
	channel := channelFrom(c)
	includeQuarantined := queryBool(c, "include_quarantined")

	bases, err := s.store.GetChunksByIDs(c.Request.Context(), tenantID, ids)
	if err != nil {
		writeErr(c, err)
		return
	}
	chunkIDs := make([]string, len(bases))
	for i, b := range bases {
		chunkIDs[i] = b.ChunkID
	}
	edits, err := s.store.ListApprovedEditsForTargets(c.Request.Context(), tenantID, models.EditTargetChunk, chunkIDs)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, effective.ApplyChunks(bases, edits, channel, includeQuarantined))
}

func (s *Server) searchChunksHandler(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		writeErr(c, apierrors.InvalidField("query", "required"))
		return
	}

	req := retrieval.Request{
		TenantID:           tenantFrom(c),
		Channel:            channelFrom(c),
		QueryText:          query,
		ProjectID:          c.Query("project"),
		IncludeQuarantined: queryBool(c, "include_quarantined"),
		MaxCandidates:      queryInt(c, "limit", models.DefaultMaxCandidatePool),
	}
	if scope := models.Scope(c.Query("scope")); scope.Valid() {
		req.Scope = &scope
	}
	if subjType, subjID := c.Query("subject_type"), c.Query("subject_id"); subjType != "" && subjID != "" {
		req.Subject = &models.Subject{Type: subjType, ID: subjID}
	}

	candidates, err := s.retriever.Retrieve(c.Request.Context(), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// get_timeline returns the effective neighbors of one chunk within
// window_seconds on either side (§4.4), signed by distance from the
// anchor's ts.
func (s *Server) getTimelineHandler(c *gin.Context) {
	chunkID := c.Query("chunk_id")
	if chunkID == "" {
		writeErr(c, apierrors.InvalidField("chunk_id", "required"))
		return
	}
	windowSeconds := queryInt(c, "window_seconds", 300)

	tenantID := tenantFrom(c)
	channel := channelFrom(c)
	includeQuarantined := queryBool(c, "include_quarantined")

	anchor, err := s.store.GetChunk(c.Request.Context(), tenantID, chunkID)
	if err != nil {
		writeErr(c, err)
		return
	}

	bases, err := s.store.ListChunksNearTS(c.Request.Context(), tenantID, anchor.SessionID, anchor.TS, windowSeconds)
	if err != nil {
		writeErr(c, err)
		return
	}
	ids := make([]string, len(bases))
	for i, b := range bases {
		ids[i] = b.ChunkID
	}
	edits, err := s.store.ListApprovedEditsForTargets(c.Request.Context(), tenantID, models.EditTargetChunk, ids)
	if err != nil {
		writeErr(c, err)
		return
	}

	entries := make([]models.TimelineEntry, 0, len(bases))
	for _, b := range bases {
		ec, ok := effective.ApplyChunk(b, edits[b.ChunkID], channel, includeQuarantined)
		if !ok {
			continue
		}
		entries = append(entries, models.TimelineEntry{
			Chunk:           ec,
			DistanceSeconds: ec.TS.Sub(anchor.TS).Seconds(),
		})
	}
	c.JSON(http.StatusOK, entries)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func (s *Server) createDecisionHandler(c *gin.Context) {
	var in models.CreateDecisionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)

	decision, err := s.ledger.Create(c.Request.Context(), tenantFrom(c), actor.ID, in)
	s.auditOutcome(c, actor, "create_decision", in.Decision, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, decision)
}

func (s *Server) supersedeDecisionHandler(c *gin.Context) {
	predecessorID := c.Param("id")
	var in models.CreateDecisionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)

	decision, err := s.ledger.Supersede(c.Request.Context(), tenantFrom(c), predecessorID, actor.ID, in)
	s.auditOutcome(c, actor, "supersede_decision", predecessorID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// get_active_decisions/list_active_decisions take an implicit reader
// channel the §6 table doesn't name explicitly — treated as an optional
// query param here, defaulting to the agent channel the way get_chunks
// and get_timeline do.
func (s *Server) listActiveDecisionsHandler(c *gin.Context) {
	tenantID := tenantFrom(c)
	channel := channelFrom(c)
	includeQuarantined := queryBool(c, "include_quarantined")

	if subjType, subjID := c.Query("subject_type"), c.Query("subject_id"); subjType != "" && subjID != "" {
		decision, err := s.ledger.GetActive(c.Request.Context(), tenantID, channel, includeQuarantined, subjType, subjID)
		if err != nil {
			writeErr(c, err)
			return
		}
		c.JSON(http.StatusOK, decision)
		return
	}

	limit := queryInt(c, "limit", 100)
	decisions, err := s.ledger.ListActive(c.Request.Context(), tenantID, channel, includeQuarantined, c.Query("project"), limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, decisions)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func (s *Server) createHandoffHandler(c *gin.Context) {
	var in models.CreateHandoffInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)

	handoff, err := s.handoffs.Create(c.Request.Context(), tenantFrom(c), in)
	s.auditOutcome(c, actor, "create_handoff", in.WithWhom, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, handoff)
}

func (s *Server) getLastHandoffHandler(c *gin.Context) {
	withWhom := c.Query("with_whom")
	if withWhom == "" {
		writeErr(c, apierrors.InvalidField("with_whom", "required"))
		return
	}
	handoff, err := s.handoffs.GetLast(c.Request.Context(), tenantFrom(c), withWhom)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, handoff)
}

func (s *Server) wakeUpStratifiedHandler(c *gin.Context) {
	var req models.WakeUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	result, err := s.handoffs.WakeUpStratified(c.Request.Context(), tenantFrom(c), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

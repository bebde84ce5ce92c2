package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func (s *Server) createCapsuleHandler(c *gin.Context) {
	var in models.CreateCapsuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)

	capsule, err := s.capsules.Create(c.Request.Context(), tenantFrom(c), actor.ID, in)
	s.auditOutcome(c, actor, "create_capsule", in.SubjectID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, capsule)
}

func (s *Server) getCapsuleHandler(c *gin.Context) {
	actor := actorFrom(c)
	capsule, err := s.capsules.Get(c.Request.Context(), tenantFrom(c), c.Param("id"), actor.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, capsule)
}

func (s *Server) listCapsulesHandler(c *gin.Context) {
	subjType, subjID := c.Query("subject_type"), c.Query("subject_id")
	if subjType == "" || subjID == "" {
		writeErr(c, apierrors.InvalidField("subject_type/subject_id", "required"))
		return
	}
	actor := actorFrom(c)

	capsules, err := s.capsules.Available(c.Request.Context(), tenantFrom(c), subjType, subjID, actor.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, capsules)
}

func (s *Server) revokeCapsuleHandler(c *gin.Context) {
	capsuleID := c.Param("id")
	actor := actorFrom(c)

	err := s.capsules.Revoke(c.Request.Context(), tenantFrom(c), capsuleID, actor.ID)
	s.auditOutcome(c, actor, "revoke_capsule", capsuleID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// Memory edits have no dedicated service package — apply/approve route
// straight through pkg/storage, mirroring tasks and chunks.
func (s *Server) applyMemoryEditHandler(c *gin.Context) {
	var in models.CreateMemoryEditInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)
	in.ProposedBy = actor.ID

	edit, err := s.store.InsertMemoryEdit(c.Request.Context(), tenantFrom(c), in)
	s.auditOutcome(c, actor, "apply_memory_edit", in.TargetID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, edit)
}

func (s *Server) listMemoryEditsHandler(c *gin.Context) {
	f := models.EditFilters{
		TargetType: models.EditTargetType(c.Query("target_type")),
		TargetID:   c.Query("target_id"),
		Status:     models.EditStatus(c.Query("status")),
		Limit:      queryInt(c, "limit", 100),
	}
	edits, err := s.store.ListMemoryEdits(c.Request.Context(), tenantFrom(c), f)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, edits)
}

func (s *Server) approveMemoryEditHandler(c *gin.Context) {
	editID := c.Param("id")
	actor := actorFrom(c)

	edit, err := s.store.ApproveMemoryEdit(c.Request.Context(), tenantFrom(c), editID, actor.ID)
	s.auditOutcome(c, actor, "approve_edit", editID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, edit)
}

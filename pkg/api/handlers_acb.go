package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func (s *Server) buildACBHandler(c *gin.Context) {
	var req models.BuildACBRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}

	acb, err := s.orchestrator.Build(c.Request.Context(), tenantFrom(c), req)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, acb)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func (s *Server) recordEventHandler(c *gin.Context) {
	var in models.CreateEventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	in.Actor = actorFrom(c)

	out, err := s.rec.RecordEvent(c.Request.Context(), tenantFrom(c), in)
	// record_event's own audit row is written atomically inside
	// storage.RecordEvent; it is the one operation exempt from the
	// after-the-fact auditOutcome call every other mutation below uses.
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) getEventHandler(c *gin.Context) {
	ev, err := s.store.GetEvent(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) listEventsHandler(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		writeErr(c, apierrors.InvalidField("session_id", "required"))
		return
	}
	limit := queryInt(c, "limit", 100)

	events, err := s.store.ListEventsBySession(c.Request.Context(), tenantFrom(c), sessionID, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, models.EventPage{Events: events})
}

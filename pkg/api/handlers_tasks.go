package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// Task and project-summary operations have no dedicated service package —
// §6 routes them straight through pkg/storage, same as get_chunks.
func (s *Server) createTaskHandler(c *gin.Context) {
	var in models.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)

	task, err := s.store.InsertTask(c.Request.Context(), tenantFrom(c), in)
	s.auditOutcome(c, actor, "create_task", in.Title, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTaskHandler(c *gin.Context) {
	taskID := c.Param("id")
	var in models.UpdateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeErr(c, apierrors.InvalidArgument("malformed request body: %v", err))
		return
	}
	actor := actorFrom(c)

	task, err := s.store.UpdateTask(c.Request.Context(), tenantFrom(c), taskID, in)
	s.auditOutcome(c, actor, "update_task", taskID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) getTaskHandler(c *gin.Context) {
	task, err := s.store.GetTask(c.Request.Context(), tenantFrom(c), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) listTasksHandler(c *gin.Context) {
	f := models.TaskFilters{
		Status:     models.TaskStatus(c.Query("status")),
		AssigneeID: c.Query("assignee_id"),
		ProjectID:  c.Query("project"),
		Limit:      queryInt(c, "limit", 100),
		Offset:     queryInt(c, "offset", 0),
	}
	tasks, err := s.store.ListTasks(c.Request.Context(), tenantFrom(c), f)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) deleteTaskHandler(c *gin.Context) {
	taskID := c.Param("id")
	actor := actorFrom(c)

	err := s.store.DeleteTask(c.Request.Context(), tenantFrom(c), taskID)
	s.auditOutcome(c, actor, "delete_task", taskID, err)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getProjectSummaryHandler(c *gin.Context) {
	recentLimit := queryInt(c, "recent_limit", 10)
	summary, err := s.store.GetProjectSummary(c.Request.Context(), tenantFrom(c), c.Param("id"), recentLimit)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

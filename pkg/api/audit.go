package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/apierrors"
	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// auditOutcome writes one audit_logs row recording op against target,
// whatever the result — §7 requires every mutation to leave a trail
// whether it succeeded or failed, and record_event is the only operation
// the core already does this for atomically (inside storage.RecordEvent).
// Every other mutating handler calls this explicitly after the fact.
func (s *Server) auditOutcome(c *gin.Context, actor models.EventActor, op, target string, mutationErr error) {
	outcome := "success"
	if mutationErr != nil {
		outcome = "error:" + string(apierrors.KindOf(mutationErr))
	}
	if err := s.store.InsertAuditLog(context.Background(), tenantFrom(c), actor, op, target, outcome, c.ClientIP(), nil); err != nil {
		slog.Error("failed to write audit log", "op", op, "target", target, "error", err)
	}
}

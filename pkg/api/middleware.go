package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callin2/agent-memory-sub006/pkg/models"
	"github.com/callin2/agent-memory-sub006/pkg/tenancy"
)

// tenantMiddleware stands in for the authentication layer the core assumes
// is already in front of it: every request must carry a verified tenant
// and actor, or the call is refused outright rather than defaulted. The
// verified pair is attached to the request context exactly once here, via
// tenancy.WithContext, the one call site its own doc comment names.
func (s *Server) tenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader("X-Tenant-ID")
	if tenantID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Kind: "permission_denied", Message: "X-Tenant-ID header is required"})
		return
	}

	actorType := tenancy.ActorType(c.GetHeader("X-Actor-Type"))
	actorID := c.GetHeader("X-Actor-ID")
	if !validActorType(actorType) || actorID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Kind: "permission_denied", Message: "X-Actor-Type/X-Actor-ID headers are required"})
		return
	}

	tc := tenancy.Context{TenantID: tenantID, Actor: tenancy.Actor{Type: actorType, ID: actorID}}
	c.Request = c.Request.WithContext(tenancy.WithContext(c.Request.Context(), tc))
	c.Next()
}

func validActorType(t tenancy.ActorType) bool {
	switch t {
	case tenancy.ActorHuman, tenancy.ActorAgent, tenancy.ActorTool:
		return true
	}
	return false
}

// tenantFrom and actorFrom pull the verified caller identity that
// tenantMiddleware attached, translating tenancy's wire-agnostic Actor into
// the models.EventActor shape the recorder/storage layer expects.
func tenantFrom(c *gin.Context) string {
	tc, err := tenancy.FromContext(c.Request.Context())
	if err != nil {
		return ""
	}
	return tc.TenantID
}

func actorFrom(c *gin.Context) models.EventActor {
	tc, err := tenancy.FromContext(c.Request.Context())
	if err != nil {
		return models.EventActor{}
	}
	return models.EventActor{Type: models.ActorType(tc.Actor.Type), ID: tc.Actor.ID}
}

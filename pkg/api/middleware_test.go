package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/callin2/agent-memory-sub006/pkg/models"
)

func TestTenantMiddleware_RejectsMissingTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	s.tenantMiddleware(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenantMiddleware_RejectsBadActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	req.Header.Set("X-Actor-Type", "not-a-real-actor-type")
	req.Header.Set("X-Actor-ID", "agent-1")
	c.Request = req

	s.tenantMiddleware(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTenantMiddleware_AcceptsValidHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	req.Header.Set("X-Actor-Type", string(models.ActorAgent))
	req.Header.Set("X-Actor-ID", "agent-1")
	c.Request = req

	s.tenantMiddleware(c)

	assert.False(t, c.IsAborted())
	assert.Equal(t, "tenant-1", tenantFrom(c))
	assert.Equal(t, "agent-1", actorFrom(c).ID)
}

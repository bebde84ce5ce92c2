package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	c.Request = req
	return c
}

func TestQueryInt(t *testing.T) {
	c := newTestContext(t, "limit=42")
	assert.Equal(t, 42, queryInt(c, "limit", 10))
	assert.Equal(t, 10, queryInt(c, "missing", 10))

	c = newTestContext(t, "limit=notanumber")
	assert.Equal(t, 10, queryInt(c, "limit", 10))
}

func TestQueryBool(t *testing.T) {
	c := newTestContext(t, "flag=true")
	assert.True(t, queryBool(c, "flag"))

	c = newTestContext(t, "")
	assert.False(t, queryBool(c, "flag"))
}

func TestQueryFloat(t *testing.T) {
	c := newTestContext(t, "score=0.75")
	assert.Equal(t, 0.75, queryFloat(c, "score", 0))
	assert.Equal(t, 1.5, queryFloat(c, "missing", 1.5))
}

func TestQueryCSV(t *testing.T) {
	c := newTestContext(t, "ids=a, b ,,c")
	assert.Equal(t, []string{"a", "b", "c"}, queryCSV(c, "ids"))

	c = newTestContext(t, "")
	assert.Nil(t, queryCSV(c, "ids"))
}

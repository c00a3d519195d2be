package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTenantRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TenantMiddleware())
	router.GET("/tenant", func(c *gin.Context) {
		c.String(http.StatusOK, GetTenantID(c))
	})
	return router
}

func TestTenantMiddleware_MissingHeaderRejected(t *testing.T) {
	router := newTenantRouter()

	req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "TENANT_REQUIRED")
}

func TestTenantMiddleware_HeaderPropagatedToContext(t *testing.T) {
	router := newTenantRouter()

	req := httptest.NewRequest(http.MethodGet, "/tenant", nil)
	req.Header.Set("X-Tenant-ID", "tenant-42")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "tenant-42", recorder.Body.String())
}

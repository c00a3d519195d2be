package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantMiddleware reads the tenant from the X-Tenant-ID header set by the
// storefront gateway.
// SECURITY: No default tenant fallback - requests without tenant context are rejected
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TENANT_REQUIRED",
					"message": "Tenant ID is required. Include the X-Tenant-ID header.",
				},
			})
			c.Abort()
			return
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from gin context
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}

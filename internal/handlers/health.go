package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthCheck reports service liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "configurator-service",
		"timestamp": time.Now().UTC(),
	})
}

// ReadyCheck reports readiness. Redis is optional; an unreachable cache
// degrades performance but does not make the service unready.
func ReadyCheck(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}
		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "unavailable"
			} else {
				checks["redis"] = "ok"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"checks": checks,
		})
	}
}

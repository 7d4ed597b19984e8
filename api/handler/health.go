package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cataloger/models"
)

// Version is reported by the health endpoint; overridden at build time.
var Version = "0.1.0"

// PoolReporter reports browser tab usage.
type PoolReporter interface {
	Stats() models.PoolStats
}

// Health returns a handler for GET /api/v1/health.
//
// Reports tab utilisation and degrades status when more than 80% of tabs
// are busy.
func Health(pool PoolReporter, sinks []string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pool.Stats()

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Sinks:     sinks,
			Version:   Version,
		})
	}
}

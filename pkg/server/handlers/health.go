package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	generatorReady bool
}

// NewHealthHandler creates a new health handler. generatorReady reports
// whether a text generation client is configured.
func NewHealthHandler(generatorReady bool) *HealthHandler {
	return &HealthHandler{
		generatorReady: generatorReady,
	}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "synthmem",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready. The service is ready for preview
// requests always, and for scenario generation only when a text generation
// client is configured.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	checks := gin.H{
		"system": gin.H{"status": "healthy"},
	}
	if h.generatorReady {
		checks["generator"] = gin.H{"status": "healthy"}
	} else {
		checks["generator"] = gin.H{
			"status": "unavailable",
			"error":  "no text generation client configured",
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   "synthmem",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "synthmem",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

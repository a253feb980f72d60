package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paperqa/paperqa"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	maintainer paperqa.Maintainer
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(m paperqa.Maintainer) *HealthHandler {
	return &HealthHandler{maintainer: m}
}

// HealthCheck handles GET /health - basic liveness check.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "paperqa",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready - verifies the vector store answers.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"status":    "ready",
		"service":   "paperqa",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{},
	}
	checks := response["checks"].(gin.H)

	healthy := true
	if h.maintainer != nil {
		start := time.Now()
		_, err := h.maintainer.Stats(ctx)
		duration := time.Since(start)
		if err != nil {
			checks["vector_store"] = gin.H{
				"status":   "unhealthy",
				"error":    err.Error(),
				"duration": duration.String(),
			}
			healthy = false
		} else {
			checks["vector_store"] = gin.H{
				"status":   "healthy",
				"duration": duration.String(),
			}
		}
	} else {
		checks["vector_store"] = gin.H{
			"status": "unhealthy",
			"error":  "client not initialized",
		}
		healthy = false
	}

	if !healthy {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "paperqa",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed.
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	response := gin.H{
		"status":  "healthy",
		"service": "paperqa",
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{
			"go_version": GoVersion,
		},
		"checks": gin.H{},
	}
	checks := response["checks"].(gin.H)

	healthy := true
	if h.maintainer != nil {
		storeStart := time.Now()
		stats, err := h.maintainer.Stats(ctx)
		storeDuration := time.Since(storeStart)

		storeStatus := gin.H{
			"status":      "healthy",
			"duration_ms": storeDuration.Milliseconds(),
		}
		if err != nil {
			storeStatus["status"] = "unhealthy"
			storeStatus["error"] = err.Error()
			healthy = false
		} else {
			storeStatus["indexed_chunks"] = stats.IndexedChunks
			if stats.History != nil {
				storeStatus["processed_documents"] = stats.History.Total
			}
		}
		checks["vector_store"] = storeStatus
	} else {
		checks["vector_store"] = gin.H{
			"status": "unhealthy",
			"error":  "client not initialized",
		}
		healthy = false
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	checks["system"] = gin.H{
		"status":       "healthy",
		"goroutines":   runtime.NumGoroutine(),
		"heap_objects": m.HeapObjects,
		"gc_cycles":    m.NumGC,
	}

	response["response_time_ms"] = time.Since(start).Milliseconds()
	if !healthy {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

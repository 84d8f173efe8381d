package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthResponse is the body of the health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks    map[string]HealthCheck
	logger    *zap.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks map[string]HealthCheck, logger *zap.Logger, version string) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		logger:    logger,
		version:   version,
		startTime: time.Now(),
	}
}

// Liveness handles the liveness probe
// @Summary Liveness check
// @Description Returns 200 if the service is alive
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health/liveness [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readiness handles the readiness probe and reports every dependency
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/readiness [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = "unhealthy"
			continue
		}
		results[name] = "ok"
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    results,
	})
}

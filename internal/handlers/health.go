package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/promptforge/api/internal/config"
)

const (
	serviceName    = "promptforge-api"
	serviceVersion = "0.1.0"
)

// Pinger is satisfied by database.Postgres and database.Redis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnStatus is satisfied by *nats.Conn.
type ConnStatus interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db       Pinger
	redis    Pinger
	nats     ConnStatus
	backends []config.Backend
}

// NewHealthHandler creates a new health handler. Nil dependencies report "not configured".
func NewHealthHandler(db, redis Pinger, nats ConnStatus, backends []config.Backend) *HealthHandler {
	return &HealthHandler{
		db:       db,
		redis:    redis,
		nats:     nats,
		backends: backends,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health returns basic health status
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
	})
}

// DeepHealth returns health status with dependency checks
// @Summary Readiness with dependency checks
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deps := make(map[string]string)
	allHealthy := true

	check := func(name string, p Pinger) {
		if p == nil {
			deps[name] = "not configured"
			return
		}
		if err := p.Ping(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			allHealthy = false
			return
		}
		deps[name] = "healthy"
	}
	check("database", h.db)
	check("redis", h.redis)

	switch {
	case h.nats == nil:
		deps["nats"] = "not configured"
	case h.nats.IsConnected():
		deps["nats"] = "healthy"
	default:
		deps["nats"] = "disconnected"
		allHealthy = false
	}

	for _, b := range h.backends {
		if b.APIKey == "" || b.BaseURL == "" || b.Model == "" {
			deps["model:"+b.Name] = "not configured"
			allHealthy = false
			continue
		}
		deps["model:"+b.Name] = "configured"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:       status,
		Service:      serviceName,
		Version:      serviceVersion,
		Dependencies: deps,
	})
}

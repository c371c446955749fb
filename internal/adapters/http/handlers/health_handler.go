// Package handlers - Health probe handlers.
//
// Liveness answers "is the process running"; readiness answers "can it
// serve traffic", which requires the database, and reports on Redis and
// NATS without failing the probe on them: transfers survive a cache or
// queue outage, webhook ingest degrades to gateway redelivery.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/centralpay/paycore/internal/adapters/http/middleware"
)

const dependencyCheckTimeout = 2 * time.Second

// CachePinger is the health surface of the idempotency cache.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ============================================
// Health Handler
// ============================================

// HealthHandler serves the health probes.
type HealthHandler struct {
	pool      *pgxpool.Pool
	cache     CachePinger
	nc        *nats.Conn
	version   string
	buildTime string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. Any dependency may be nil; it
// is then reported as not configured instead of failing the probe.
func NewHealthHandler(pool *pgxpool.Pool, cache CachePinger, nc *nats.Conn, version, buildTime string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		cache:     cache,
		nc:        nc,
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
	}
}

// ============================================
// Response Types
// ============================================

// HealthResponse is the basic health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Ready     bool              `json:"ready"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// ============================================
// HTTP Handlers
// ============================================

// Health returns the process status without touching any dependency.
//
// @Summary Health check
// @Description Basic health endpoint
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime).Round(time.Second).String()

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		BuildTime: h.buildTime,
		Uptime:    uptime,
		Timestamp: time.Now().UTC(),
	})
}

// Ready checks the dependencies. Only the database gates readiness; Redis
// and NATS are reported for operators but degraded paths keep serving.
//
// @Summary Readiness check
// @Description Readiness probe over database, cache and queue
// @Tags Health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := make(map[string]string)
	ready := true

	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), dependencyCheckTimeout)
		defer cancel()

		if err := h.pool.Ping(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			ready = false
		} else {
			stats := h.pool.Stat()
			checks["database"] = "healthy"
			checks["db_total_conns"] = strconv.Itoa(int(stats.TotalConns()))
			checks["db_idle_conns"] = strconv.Itoa(int(stats.IdleConns()))
			checks["db_acquired_conns"] = strconv.Itoa(int(stats.AcquiredConns()))

			middleware.UpdateDBConnections(stats.IdleConns(), stats.AcquiredConns(), stats.MaxConns())
		}
	} else {
		checks["database"] = "not configured"
		ready = false
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), dependencyCheckTimeout)
		defer cancel()

		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	if h.nc != nil {
		if h.nc.IsConnected() {
			checks["nats"] = "healthy"
		} else {
			checks["nats"] = "unhealthy: " + h.nc.Status().String()
		}
	} else {
		checks["nats"] = "not configured"
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Ready:     ready,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}

// Live reports process liveness.
//
// @Summary Liveness check
// @Description Simple liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// RegisterRoutes registers the probe routes.
//
// Routes:
// - GET /health       - Basic health check
// - GET /health/ready - Readiness probe
// - GET /health/live  - Liveness probe
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/health/ready", h.Ready)
	router.GET("/health/live", h.Live)
}

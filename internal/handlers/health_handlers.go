package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"pgdesk/internal/caching"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db    *pgxpool.Pool
	cache caching.CacheService
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(db *pgxpool.Pool, cache caching.CacheService) *HealthHandlers {
	return &HealthHandlers{
		db:    db,
		cache: cache,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
}

// HealthCheck reports aggregate service health
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   "1.0.0",
	}

	if err := h.checkDatabase(ctx); err != nil {
		health.Services["database"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["database"] = "healthy"
	}

	if err := h.cache.Ping(ctx); err != nil {
		health.Services["redis"] = "unhealthy"
		health.Status = "degraded"
	} else {
		health.Services["redis"] = "healthy"
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}

	return c.JSON(statusCode, health)
}

func (h *HealthHandlers) checkDatabase(ctx context.Context) error {
	_, err := h.db.Exec(ctx, "SELECT 1")
	return err
}

// ReadinessCheck determines if the application is ready to serve traffic
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.checkDatabase(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Database unavailable",
		})
	}
	if err := h.cache.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Cache unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck is the basic liveness probe
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck provides per-dependency health detail
func (h *HealthHandlers) DetailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()

	checks := make(map[string]interface{})
	overall := "healthy"

	dbCheck := map[string]string{"status": "healthy"}
	start := time.Now()
	if err := h.checkDatabase(ctx); err != nil {
		dbCheck["status"] = "unhealthy"
		dbCheck["message"] = err.Error()
		overall = "degraded"
	}
	dbCheck["latency"] = time.Since(start).String()
	checks["database"] = dbCheck

	redisCheck := map[string]string{"status": "healthy"}
	start = time.Now()
	if err := h.cache.Ping(ctx); err != nil {
		redisCheck["status"] = "unhealthy"
		redisCheck["message"] = err.Error()
		overall = "degraded"
	}
	redisCheck["latency"] = time.Since(start).String()
	checks["redis"] = redisCheck

	statusCode := http.StatusOK
	if overall == "degraded" {
		statusCode = http.StatusPartialContent
	}

	return c.JSON(statusCode, map[string]interface{}{
		"overall_status": overall,
		"checks":         checks,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"goroutines":     runtime.NumGoroutine(),
		"pool_max_conns": h.db.Config().MaxConns,
	})
}

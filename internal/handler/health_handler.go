package handler

import (
	"context"
	"net/http"
	"time"

	"bb-fantasy/pkg/logger"
)

// HealthChecker is anything that can report its own health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      HealthChecker
	cache   HealthChecker
	version string
	logger  *logger.Logger
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(db, cache HealthChecker, version string, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		version: version,
		logger:  logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health. The database is required; Redis is reported but
// only degrades the status.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Service:   "bb-fantasy",
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			h.logger.WithError(err).Error("Database health check failed")
			response.Checks["database"] = "down"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			response.Checks["database"] = "up"
		}
	}

	if h.cache == nil {
		response.Checks["redis"] = "disabled"
	} else if err := h.cache.Health(ctx); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		response.Checks["redis"] = "down"
		if status == http.StatusOK {
			response.Status = "degraded"
		}
	} else {
		response.Checks["redis"] = "up"
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, status, response)
}

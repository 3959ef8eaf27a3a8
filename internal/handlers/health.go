package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/farmstand/internal/repository"
)

// Pinger is implemented by the store and the cache
type Pinger interface {
	Ping(ctx context.Context) error
}

// statsReporter is implemented by the product cache
type statsReporter interface {
	Stats() repository.CacheStats
}

// HealthHandler provides health check endpoint
type HealthHandler struct {
	logger   *slog.Logger
	checks   map[string]Pinger
	optional map[string]Pinger
}

// NewHealthHandler creates a health handler that pings every named dependency
func NewHealthHandler(logger *slog.Logger, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		logger:   logger,
		checks:   checks,
		optional: make(map[string]Pinger),
	}
}

// Optional registers a dependency the service keeps working without. Its
// failure is reported as degraded and does not fail the health check.
func (h *HealthHandler) Optional(name string, p Pinger) *HealthHandler {
	h.optional[name] = p
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                           `json:"status"`
	Timestamp time.Time                        `json:"timestamp"`
	Version   string                           `json:"version"`
	Checks    map[string]string                `json:"checks,omitempty"`
	Stats     map[string]repository.CacheStats `json:"stats,omitempty"`
}

// ServeHTTP handles health check requests
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Checks:    make(map[string]string, len(h.checks)+len(h.optional)),
	}
	status := http.StatusOK

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			response.Checks[name] = "unavailable"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	for name, check := range h.optional {
		if reporter, ok := check.(statsReporter); ok {
			if response.Stats == nil {
				response.Stats = make(map[string]repository.CacheStats)
			}
			response.Stats[name] = reporter.Stats()
		}
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("optional dependency degraded", "check", name, "error", err)
			response.Checks[name] = "degraded"
			continue
		}
		response.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode health response", "error", err)
	}
}

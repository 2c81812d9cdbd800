package handler

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds all dependency checks of one readiness probe.
const readinessTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name     string
	checker  HealthChecker
	optional bool
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	version string
	deps    []dependency
}

// NewHealthHandler creates a new HealthHandler. The database is required;
// cache may be nil when Redis is not configured.
func NewHealthHandler(version string, db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		version: version,
		deps: []dependency{
			{name: "postgres", checker: db},
			{name: "redis", checker: cache, optional: true},
		},
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. It performs no dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Readyz is a readiness probe endpoint. It returns 200 only if every
// configured dependency answers; an unconfigured optional dependency is
// reported as disabled.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true

	for _, dep := range h.deps {
		switch {
		case dep.checker == nil && dep.optional:
			checks[dep.name] = "disabled"
		case dep.checker == nil:
			checks[dep.name] = "not configured"
			healthy = false
		default:
			if err := dep.checker.Ping(ctx); err != nil {
				checks[dep.name] = "error: " + err.Error()
				healthy = false
			} else {
				checks[dep.name] = "ok"
			}
		}
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status:  status,
		Version: h.version,
		Checks:  checks,
	})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Pinger is any backend that can report whether it is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	backends map[string]Pinger
	timeout  time.Duration
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler that pings each named backend.
func NewHealthHandler(backends map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{backends: backends, timeout: 2 * time.Second, logger: logHandler(logger, "health")}
}

// HealthCheck responds 200 when every wired backend answers and 503 with the
// failing ones otherwise.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.backends))
	for name := range h.backends {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.backends[name].Health(ctx); err != nil {
			h.logger.WarnContext(ctx, "backend unhealthy",
				slog.String("backend", name),
				slog.String("error", err.Error()),
			)
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"backends":  checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Root answers the landing route with a fixed greeting.
// GET /
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"Hello": "World"})
}

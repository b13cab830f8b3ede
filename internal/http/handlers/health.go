package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

// Check reports whether one backing dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	log     *logger.Logger
	checks  map[string]Check
	metrics *observability.Metrics
	timeout time.Duration
}

func NewHealthHandler(log *logger.Logger, metrics *observability.Metrics, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		log:     log.With("handler", "HealthHandler"),
		checks:  checks,
		metrics: metrics,
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(gin.H, len(names))
	ready := true
	for _, name := range names {
		err := h.checks[name](ctx)
		h.metrics.SetDependencyUp(name, err == nil)
		if err != nil {
			ready = false
			deps[name] = "down"
			h.log.Warn("dependency not ready", "dependency", name, "error", err)
			continue
		}
		deps[name] = "up"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "dependencies": deps})
}

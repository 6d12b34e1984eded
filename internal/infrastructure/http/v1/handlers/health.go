package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks  map[string]Pinger
	version string
	mode    string
}

// NewHealthHandler creates a health handler; checks may be empty in memory mode.
func NewHealthHandler(version, mode string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, version: version, mode: mode}
}

// Health reports liveness plus the state of every backing store.
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(c.Request.Context()); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "error"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"app":     "lotkeeper",
		"version": h.version,
		"store":   h.mode,
		"checks":  results,
	})
}

package api

import (
	"net/http"
	"time"

	"github.com/meetsync/meetsync/server/internal/api/respond"
	"github.com/meetsync/meetsync/server/internal/health"
)

// HealthHandler serves the aggregated service health.
type HealthHandler struct {
	svc *health.Service
}

func NewHealthHandler(svc *health.Service) *HealthHandler { return &HealthHandler{svc: svc} }

// CheckHealth handles GET /health. Always 200; the body reports
// healthy/unhealthy so probes can distinguish degraded from down.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.svc.IsHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"dependencies": h.svc.Dependencies(),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

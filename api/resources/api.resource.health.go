// FilePath: api/resources/api.resource.health.go
package resources

import (
	"context"
	"net/http"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/models"
)

// HealthHandlers reports liveness and store reachability
type HealthHandlers struct {
	store Pinger
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (h *HealthHandlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := models.HealthResponse{Status: "ok", Version: nuts.GetVersion(), Store: "ok"}
	code := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		nuts.L.Warnf("[API] Health check: store unreachable: %v", err)
		resp.Status = "degraded"
		resp.Store = "unreachable"
		code = http.StatusServiceUnavailable
	}

	respondWithJSON(w, code, resp)
}

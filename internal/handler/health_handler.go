package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ocrgate/internal/domain"
	"ocrgate/internal/service"
)

// HealthHandler exposes the model manager's state to the load balancer.
// Neither endpoint ever forces a model load.
type HealthHandler struct {
	manager *service.ModelManager
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(manager *service.ModelManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	state := h.manager.State()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_state":  state,
		"model_loaded": state == domain.ModelReady,
		"invocations":  h.manager.Invocations(),
		"queue_depth":  h.manager.QueueDepth(),
	})
}

// Readiness handles GET /readyz. A Failed model is permanent for this
// process, so the instance reports unavailable until the supervisor
// restarts it. Unloaded and Loading still count as ready because the
// model loads lazily on first request.
func (h *HealthHandler) Readiness(c *gin.Context) {
	state := h.manager.State()
	if state == domain.ModelFailed {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "model_state": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model_state": state})
}

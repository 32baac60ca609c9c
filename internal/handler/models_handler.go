package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ocrgate/internal/oai"
)

// ModelsHandler serves the static model listing.
type ModelsHandler struct {
	modelName string
	started   time.Time
}

// NewModelsHandler creates a new ModelsHandler.
func NewModelsHandler(modelName string) *ModelsHandler {
	return &ModelsHandler{modelName: modelName, started: time.Now()}
}

// List handles GET /v1/models (and the legacy GET /models alias).
func (h *ModelsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, oai.ModelList{
		Object: "list",
		Data: []oai.ModelInfo{
			{
				ID:      h.modelName,
				Object:  "model",
				Created: h.started.Unix(),
				OwnedBy: "deepseek-ai",
			},
		},
	})
}

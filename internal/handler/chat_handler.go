package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ocrgate/internal/oai"
	"ocrgate/internal/service"
)

// ChatHandler serves the OpenAI-compatible completion endpoints.
type ChatHandler struct {
	ocr service.OcrService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(ocr service.OcrService) *ChatHandler {
	return &ChatHandler{ocr: ocr}
}

// Completions handles POST /v1/chat/completions.
func (h *ChatHandler) Completions(c *gin.Context) {
	var req oai.ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, oai.ErrorResponse{
			Error: oai.APIError{
				Message: "malformed request body: " + err.Error(),
				Type:    "invalid_request_error",
				Code:    "malformed_body",
			},
		})
		return
	}

	requestID := c.GetString("request_id")
	resp, err := h.ocr.Process(c.Request.Context(), requestID, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LegacyCompletions handles POST /v1/completions, which this gateway
// does not implement.
func (h *ChatHandler) LegacyCompletions(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, oai.ErrorResponse{
		Error: oai.APIError{
			Message: "use /v1/chat/completions instead",
			Type:    "invalid_request_error",
			Code:    "not_implemented",
		},
	})
}

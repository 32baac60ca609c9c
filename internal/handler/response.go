package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"ocrgate/internal/domain"
	"ocrgate/internal/oai"
)

// MapDomainError translates pipeline errors to an HTTP status plus an
// OpenAI-style error type and code. Every error in the taxonomy gets a
// distinct, documented status.
func MapDomainError(err error) (status int, errType, code string) {
	switch {
	case errors.Is(err, domain.ErrNoImage):
		return http.StatusBadRequest, "invalid_request_error", "no_image"
	case errors.Is(err, domain.ErrInvalidImage):
		return http.StatusBadRequest, "invalid_request_error", "invalid_image"
	case errors.Is(err, domain.ErrUnknownPreset):
		return http.StatusBadRequest, "invalid_request_error", "unknown_preset"
	case errors.Is(err, domain.ErrUnknownTask):
		return http.StatusBadRequest, "invalid_request_error", "unknown_task"
	case errors.Is(err, domain.ErrMissingReference):
		return http.StatusBadRequest, "invalid_request_error", "missing_reference"
	case errors.Is(err, domain.ErrServerBusy):
		return http.StatusTooManyRequests, "overloaded_error", "server_busy"
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout_error", "deadline_exceeded"
	case errors.Is(err, domain.ErrResourceExhausted):
		return http.StatusInsufficientStorage, "server_error", "resource_exhausted"
	case errors.Is(err, domain.ErrModelLoadFailed):
		return http.StatusServiceUnavailable, "server_error", "model_load_failed"
	default:
		return http.StatusInternalServerError, "server_error", "inference_failed"
	}
}

// HandleError maps a pipeline error and writes the OpenAI-style error
// body. Server-side causes are kept in the logs, never in the response.
func HandleError(c *gin.Context, err error) {
	status, errType, code := MapDomainError(err)
	msg := err.Error()
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%v] %s: %v", requestID, code, err)
		msg = publicMessage(code)
	}
	c.JSON(status, oai.ErrorResponse{
		Error: oai.APIError{Message: msg, Type: errType, Code: code},
	})
}

func publicMessage(code string) string {
	switch code {
	case "resource_exhausted":
		return "accelerator memory exhausted; retry with a smaller model_size"
	case "model_load_failed":
		return "model is unavailable; the service needs a restart to recover"
	default:
		return "inference failed"
	}
}

package router

import (
	"github.com/gin-gonic/gin"

	"ocrgate/internal/handler"
	"ocrgate/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	chatH *handler.ChatHandler,
	modelsH *handler.ModelsHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks (polled by the load balancer)
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// OpenAI-compatible surface
	r.POST("/v1/chat/completions", chatH.Completions)
	r.POST("/v1/completions", chatH.LegacyCompletions)
	r.GET("/v1/models", modelsH.List)
	r.GET("/models", modelsH.List)

	return r
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oneentry/currency-sync/config"
)

// SetupRouter creates and configures the Gin router.
// metrics may be nil, in which case /metrics is not mounted.
func SetupRouter(cfg *config.Config, handler *Handler, metrics http.Handler, logger *slog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(logger))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", handler.SyncStatus)
	}

	return router
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oneentry/currency-sync/internal/usecase"
)

// StatusProvider reports the state of the sync loop
type StatusProvider interface {
	Status() usecase.Status
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sync StatusProvider
}

// NewHandler creates a new HTTP handler
func NewHandler(sync StatusProvider) *Handler {
	return &Handler{sync: sync}
}

// HealthCheck returns the health status of the service
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "currency-sync",
		"version": "1.0.0",
	})
}

// SyncStatus returns the current rate, the last pass summary and the loop state
func (h *Handler) SyncStatus(c *gin.Context) {
	if h.sync == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Sync service not configured",
		})
		return
	}

	c.JSON(http.StatusOK, h.sync.Status())
}

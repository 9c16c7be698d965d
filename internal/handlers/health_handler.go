package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/services"
)

type HealthHandler struct {
	serviceManager services.ServiceManager
}

func NewHealthHandler(serviceManager services.ServiceManager) *HealthHandler {
	return &HealthHandler{serviceManager: serviceManager}
}

// HealthCheck pings the database and cache.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:     "unhealthy",
			Message:   "dependency check failed",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message:   "healthy",
		Data:      gin.H{"service": "portal-service"},
		Timestamp: time.Now().UTC(),
	})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	service string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(serviceName string) *HealthHandler {
	return &HealthHandler{service: serviceName}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.service,
	})
}

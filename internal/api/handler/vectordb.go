package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/nlsql-console/internal/service"
)

// VectorDBHandler reports the vector store status.
type VectorDBHandler struct {
	service *service.VectorDBService
}

// NewVectorDBHandler creates a new vector store handler.
func NewVectorDBHandler(svc *service.VectorDBService) *VectorDBHandler {
	return &VectorDBHandler{service: svc}
}

// Status handles GET /api/v1/vectordb/status. An unreachable store is reported in the body, not as an error status.
func (h *VectorDBHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Status(c.Request.Context()))
}

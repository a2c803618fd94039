package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emaide/internal/api"
)

// Health обрабатывает health check
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

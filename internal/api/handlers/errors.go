package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"emaide/internal/api"
	"emaide/internal/domain"
)

// handleDomainError обрабатывает domain ошибки и возвращает правильный HTTP response
func handleDomainError(c *gin.Context, err error) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.Status, api.ErrorResponse{
			Error: api.Error{
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
			},
		})
		return
	}

	// Fallback на internal error
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error: api.Error{
			Code:    api.ErrCodeInternalError,
			Message: "internal server error",
		},
	})
}

// teamIDParam разбирает path-параметр team_id. При невалидном значении
// пишет 400 и возвращает false.
func teamIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("team_id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error: api.Error{
				Code:    api.ErrCodeInvalidRequest,
				Message: "invalid team_id: " + raw,
			},
		})
		return 0, false
	}
	return uint(id), true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"emaide/internal/api"
	"emaide/internal/api/middleware"
)

// SyncGit запускает синхронизацию внешней активности команды
func (h *Handler) SyncGit(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	log.Info().
		Str("request_id", c.MustGet(middleware.RequestIDKey).(string)).
		Str("layer", "handler").
		Uint("team_id", teamID).
		Msg("sync requested")

	result, err := h.sync.SyncTeam(c.Request.Context(), teamID, h.cfg.Sync.SinceDays)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.SyncResultResponse{
		ChangeRequests: result.ChangeRequests,
		Reviews:        result.Reviews,
		Issues:         result.Issues,
	})
}

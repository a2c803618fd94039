package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"emaide/internal/api"
	"emaide/internal/api/middleware"
	"emaide/internal/domain"
)

// RunPlan запускает построение недельного плана команды
func (h *Handler) RunPlan(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	log.Info().
		Str("request_id", c.MustGet(middleware.RequestIDKey).(string)).
		Str("layer", "handler").
		Uint("team_id", teamID).
		Msg("plan run requested")

	plan, err := h.plans.Run(c.Request.Context(), teamID, "api-"+uuid.NewString())
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.PlanRunResponse{
		WeeklyPlanID: plan.ID,
		WeekStart:    plan.WeekStart.Format("2006-01-02"),
	})
}

// LatestPlan возвращает последний план команды
func (h *Handler) LatestPlan(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	plan, err := h.plans.GetLatest(c.Request.Context(), teamID)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.PlanResponse{
		WeeklyPlanID: plan.ID,
		WeekStart:    plan.WeekStart.Format("2006-01-02"),
		Plan:         json.RawMessage(plan.Content),
	})
}

// ContextPreview возвращает последний контекстный пакет команды.
// Доступен только в debug окружении: пакет хоть и санитизирован,
// наружу отдавать его незачем.
func (h *Handler) ContextPreview(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	if h.cfg.ProductionType != "debug" {
		handleDomainError(c, domain.ErrPreviewForbidden)
		return
	}

	record, err := h.plans.GetContextPreview(c.Request.Context(), teamID)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", []byte(record.Content))
}

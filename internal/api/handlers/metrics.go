package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"emaide/internal/api"
)

// metricsLatestLimit - предел выборки снапшотов для API
const metricsLatestLimit = 200

// SnapshotMetrics строит и сохраняет метрический снапшот за сегодня
func (h *Handler) SnapshotMetrics(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	upserts, err := h.metricsSvc.Snapshot(c.Request.Context(), teamID, time.Now().UTC())
	if err != nil {
		handleDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.SnapshotResponse{Upserts: upserts})
}

// LatestMetrics возвращает последние снапшоты команды
func (h *Handler) LatestMetrics(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	snaps, err := h.metricsSvc.LatestSnapshots(c.Request.Context(), teamID, metricsLatestLimit)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	resp := make([]api.MetricResponse, 0, len(snaps))
	for _, snap := range snaps {
		resp = append(resp, mapMetricToAPI(snap))
	}
	c.JSON(http.StatusOK, resp)
}

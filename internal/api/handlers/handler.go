package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emaide/internal/api/middleware"
	"emaide/internal/config"
	"emaide/internal/domain"
)

type Handler struct {
	cfg        *config.Config
	teams      domain.TeamService
	sync       domain.SyncService
	metricsSvc domain.MetricsService
	plans      domain.PlanService
}

func NewHandler(
	cfg *config.Config,
	teams domain.TeamService,
	sync domain.SyncService,
	metricsSvc domain.MetricsService,
	plans domain.PlanService,
) *Handler {
	return &Handler{
		cfg:        cfg,
		teams:      teams,
		sync:       sync,
		metricsSvc: metricsSvc,
		plans:      plans,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.LoggerMiddleware(),
		middleware.RecoveryMiddleware(),
		middleware.CORSMiddleware(),
		middleware.MetricsMiddleware(),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", h.Health)
		apiGroup.GET("/teams", h.ListTeams)

		teamGroup := apiGroup.Group("/teams/:team_id")
		{
			teamGroup.GET("/git/pull-requests", h.GetTeamPullRequests)
			teamGroup.POST("/sync/git", h.SyncGit)
			teamGroup.POST("/metrics/snapshot", h.SnapshotMetrics)
			teamGroup.GET("/metrics/latest", h.LatestMetrics)
			teamGroup.POST("/plan/run", h.RunPlan)
			teamGroup.GET("/plan/latest", h.LatestPlan)
			teamGroup.GET("/llm/context/preview", h.ContextPreview)
			teamGroup.GET("/llm/runs", h.ListAgentRuns)
		}
	}

	return r
}

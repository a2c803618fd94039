package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emaide/internal/api"
)

// ListTeams возвращает все команды
func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.teams.ListTeams(c.Request.Context())
	if err != nil {
		handleDomainError(c, err)
		return
	}

	resp := make([]api.TeamResponse, 0, len(teams))
	for _, t := range teams {
		resp = append(resp, mapTeamToAPI(t))
	}
	c.JSON(http.StatusOK, resp)
}

// GetTeamPullRequests возвращает номера PR команды по репозиториям
func (h *Handler) GetTeamPullRequests(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	groups, err := h.teams.GetTeamPullRequests(c.Request.Context(), teamID)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	resp := make([]api.RepoPullRequestsResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, mapTeamPullRequestsToAPI(g))
	}
	c.JSON(http.StatusOK, resp)
}

// ListAgentRuns возвращает последние вызовы reasoning-сервиса команды
func (h *Handler) ListAgentRuns(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	runs, err := h.teams.ListAgentRuns(c.Request.Context(), teamID, 50)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	resp := make([]api.AgentRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, mapAgentRunToAPI(run))
	}
	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"strings"
	"time"

	"emaide/internal/api"
	"emaide/internal/domain"
)

// webBaseURL выводит веб-адрес репозитория из API base URL
// (api.github.com -> github.com, GHE /api/v3 -> корень инстанса)
func webBaseURL(apiBaseURL string) string {
	url := strings.Replace(apiBaseURL, "api.", "", 1)
	return strings.Replace(url, "/api/v3", "", 1)
}

// mapTeamToAPI конвертирует domain.Team в API response
func mapTeamToAPI(team domain.Team) api.TeamResponse {
	return api.TeamResponse{
		ID:   team.ID,
		Org:  team.OrgName,
		Name: team.Name,
	}
}

// mapTeamPullRequestsToAPI конвертирует domain.TeamPullRequests в API response
func mapTeamPullRequestsToAPI(group domain.TeamPullRequests) api.RepoPullRequestsResponse {
	numbers := group.Numbers
	if numbers == nil {
		numbers = []int{}
	}
	return api.RepoPullRequestsResponse{
		RepoRefID:    group.RepoRefID,
		Owner:        group.Owner,
		Repo:         group.Repo,
		APIBaseURL:   group.APIBaseURL,
		WebBaseURL:   webBaseURL(group.APIBaseURL),
		PullRequests: numbers,
	}
}

// mapMetricToAPI конвертирует domain.MetricSnapshot в API response
func mapMetricToAPI(snap domain.MetricSnapshot) api.MetricResponse {
	return api.MetricResponse{
		Name:     snap.Name,
		Value:    snap.Value,
		AsOfDate: snap.AsOfDate.Format("2006-01-02"),
	}
}

// mapAgentRunToAPI конвертирует domain.AgentRun в API response
func mapAgentRunToAPI(run domain.AgentRun) api.AgentRunResponse {
	return api.AgentRunResponse{
		ID:        run.ID,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		LLMMode:   run.LLMMode,
		Model:     run.Model,
		Status:    string(run.Status),
		Error:     run.Error,
	}
}

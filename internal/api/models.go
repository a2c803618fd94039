package api

import "encoding/json"

const (
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// Error represents a standardized error structure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error Error `json:"error"`
}

// HealthResponse - ответ health check
type HealthResponse struct {
	Status string `json:"status"`
}

// TeamResponse - одна команда в списке
type TeamResponse struct {
	ID   uint   `json:"id"`
	Org  string `json:"org"`
	Name string `json:"name"`
}

// RepoPullRequestsResponse - номера PR одного репозитория команды
type RepoPullRequestsResponse struct {
	RepoRefID    uint   `json:"repo_ref_id"`
	Owner        string `json:"owner"`
	Repo         string `json:"repo"`
	APIBaseURL   string `json:"api_base_url"`
	WebBaseURL   string `json:"web_base_url"`
	PullRequests []int  `json:"pull_requests"`
}

// SyncResultResponse - итог прогона синхронизации
type SyncResultResponse struct {
	ChangeRequests int `json:"change_requests"`
	Reviews        int `json:"reviews"`
	Issues         int `json:"issues"`
}

// SnapshotResponse - итог построения метрического снапшота
type SnapshotResponse struct {
	Upserts int `json:"upserts"`
}

// MetricResponse - одно значение метрики
type MetricResponse struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	AsOfDate string  `json:"as_of_date"`
}

// PlanRunResponse - подтверждение успешного построения плана
type PlanRunResponse struct {
	WeeklyPlanID uint   `json:"weekly_plan_id"`
	WeekStart    string `json:"week_start"`
}

// PlanResponse - последний план команды
type PlanResponse struct {
	WeeklyPlanID uint            `json:"weekly_plan_id"`
	WeekStart    string          `json:"week_start"`
	Plan         json.RawMessage `json:"plan"`
}

// AgentRunResponse - одна запись вызова reasoning-сервиса
type AgentRunResponse struct {
	ID        uint   `json:"id"`
	CreatedAt string `json:"created_at"`
	LLMMode   string `json:"llm_mode"`
	Model     string `json:"model"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

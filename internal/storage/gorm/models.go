package gorm

import (
	"time"
)

// Org - модель БД для организации
type Org struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:200;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Org) TableName() string {
	return "orgs"
}

// Team - модель БД для команды
type Team struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	OrgID     uint      `gorm:"column:org_id;uniqueIndex:uq_team;not null"`
	Name      string    `gorm:"column:name;size:200;uniqueIndex:uq_team;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

func (Team) TableName() string {
	return "teams"
}

// GitProvider - модель БД для провайдера хостинга кода
type GitProvider struct {
	ID         uint   `gorm:"column:id;primaryKey"`
	Name       string `gorm:"column:name;size:100;uniqueIndex;not null"`
	APIBaseURL string `gorm:"column:api_base_url;size:500;not null"`
}

func (GitProvider) TableName() string {
	return "git_providers"
}

// RepoRef - модель БД для ссылки на внешний репозиторий
type RepoRef struct {
	ID            uint   `gorm:"column:id;primaryKey"`
	TeamID        uint   `gorm:"column:team_id;uniqueIndex:uq_repo;not null"`
	GitProviderID uint   `gorm:"column:git_provider_id;not null"`
	APIBaseURL    string `gorm:"column:api_base_url;size:500;uniqueIndex:uq_repo;not null"`
	TokenPresent  bool   `gorm:"column:token_present;not null;default:false"`
	Owner         string `gorm:"column:owner;size:200;uniqueIndex:uq_repo;not null"`
	Repo          string `gorm:"column:repo;size:200;uniqueIndex:uq_repo;not null"`
}

func (RepoRef) TableName() string {
	return "repo_refs"
}

// JiraConfig - модель БД для конфигурации issue tracker команды
type JiraConfig struct {
	ID           uint   `gorm:"column:id;primaryKey"`
	TeamID       uint   `gorm:"column:team_id;uniqueIndex;not null"`
	BaseURL      string `gorm:"column:base_url;size:500;not null"`
	Email        string `gorm:"column:email;size:300;not null"`
	TokenPresent bool   `gorm:"column:token_present;not null;default:false"`
	ProjectKey   string `gorm:"column:project_key;size:50;not null"`
	BoardID      string `gorm:"column:board_id;size:50"`
}

func (JiraConfig) TableName() string {
	return "jira_configs"
}

// ChangeRequest - модель БД для pull/merge request.
// Хранятся только хэши идентифицирующих полей.
type ChangeRequest struct {
	ID           uint       `gorm:"column:id;primaryKey"`
	TeamID       uint       `gorm:"column:team_id;uniqueIndex:uq_change_request;not null"`
	RepoRefID    uint       `gorm:"column:repo_ref_id;uniqueIndex:uq_change_request;not null"`
	Number       int        `gorm:"column:number;uniqueIndex:uq_change_request;not null"`
	TitleHash    string     `gorm:"column:title_hash;size:64;not null"`
	AuthorHash   string     `gorm:"column:author_hash;size:64;not null"`
	State        string     `gorm:"column:state;size:50;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	MergedAt     *time.Time `gorm:"column:merged_at"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
	Additions    int        `gorm:"column:additions;not null;default:0"`
	Deletions    int        `gorm:"column:deletions;not null;default:0"`
	ChangedFiles int        `gorm:"column:changed_files;not null;default:0"`
	SyncedAt     time.Time  `gorm:"column:synced_at;not null;default:CURRENT_TIMESTAMP"`
}

func (ChangeRequest) TableName() string {
	return "change_requests"
}

// Review - модель БД для ревью на change request
type Review struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	TeamID       uint      `gorm:"column:team_id;uniqueIndex:uq_review;not null"`
	RepoRefID    uint      `gorm:"column:repo_ref_id;uniqueIndex:uq_review;not null"`
	Number       int       `gorm:"column:number;uniqueIndex:uq_review;not null"`
	ReviewerHash string    `gorm:"column:reviewer_hash;size:64;uniqueIndex:uq_review;not null"`
	State        string    `gorm:"column:state;size:50;not null"`
	SubmittedAt  time.Time `gorm:"column:submitted_at;uniqueIndex:uq_review;not null"`
}

func (Review) TableName() string {
	return "reviews"
}

// Issue - модель БД для задачи issue tracker
type Issue struct {
	ID           uint       `gorm:"column:id;primaryKey"`
	TeamID       uint       `gorm:"column:team_id;uniqueIndex:uq_issue;not null"`
	Key          string     `gorm:"column:key;size:50;uniqueIndex:uq_issue;not null"`
	Status       string     `gorm:"column:status;size:100;not null"`
	IssueType    string     `gorm:"column:issue_type;size:100;not null"`
	Priority     string     `gorm:"column:priority;size:100"`
	AssigneeHash string     `gorm:"column:assignee_hash;size:64"`
	CreatedAt    *time.Time `gorm:"column:created_at"`
	UpdatedAt    *time.Time `gorm:"column:updated_at"`
	DueDate      string     `gorm:"column:due_date;size:30"`
	IsBlocked    bool       `gorm:"column:is_blocked;not null;default:false"`
}

func (Issue) TableName() string {
	return "issues"
}

// MetricSnapshot - модель БД для значения метрики за день
type MetricSnapshot struct {
	ID       uint      `gorm:"column:id;primaryKey"`
	TeamID   uint      `gorm:"column:team_id;uniqueIndex:uq_metric;not null"`
	AsOfDate time.Time `gorm:"column:as_of_date;type:date;uniqueIndex:uq_metric;not null"`
	Name     string    `gorm:"column:name;size:200;uniqueIndex:uq_metric;not null"`
	Value    float64   `gorm:"column:value;not null"`
}

func (MetricSnapshot) TableName() string {
	return "metric_snapshots"
}

// ContextPacket - модель БД для санитизированного пакета (append-only)
type ContextPacket struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	TeamID    uint      `gorm:"column:team_id;index;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	Content   string    `gorm:"column:content;type:text;not null"`
}

func (ContextPacket) TableName() string {
	return "context_packets"
}

// AgentRun - модель БД для попытки вызова reasoning-сервиса
type AgentRun struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	TeamID    uint      `gorm:"column:team_id;index;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	LLMMode   string    `gorm:"column:llm_mode;size:20;not null"`
	Model     string    `gorm:"column:model;size:200;not null"`
	Status    string    `gorm:"column:status;size:50;not null;default:ok"`
	Error     string    `gorm:"column:error;type:text"`
}

func (AgentRun) TableName() string {
	return "agent_runs"
}

// Plan - модель БД для недельного плана
type Plan struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	TeamID     uint      `gorm:"column:team_id;index;not null"`
	AgentRunID uint      `gorm:"column:agent_run_id;not null"`
	WeekStart  time.Time `gorm:"column:week_start;type:date;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	Content    string    `gorm:"column:content;type:text;not null"`
}

func (Plan) TableName() string {
	return "plans"
}

// ActionLock - модель БД для advisory-блокировки.
// Уникальный индекс (team_id, action) и есть сам механизм взаимного исключения.
type ActionLock struct {
	ID       uint      `gorm:"column:id;primaryKey"`
	TeamID   uint      `gorm:"column:team_id;uniqueIndex:uq_action_lock;not null"`
	Action   string    `gorm:"column:action;size:50;uniqueIndex:uq_action_lock;not null"`
	Owner    string    `gorm:"column:owner;size:100"`
	LockedAt time.Time `gorm:"column:locked_at;not null;default:CURRENT_TIMESTAMP"`
}

func (ActionLock) TableName() string {
	return "action_locks"
}

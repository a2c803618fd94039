package domain

import "time"

// ChangeRequestState - состояние жизненного цикла change request
type ChangeRequestState string

const (
	ChangeRequestStateOpen   ChangeRequestState = "open"
	ChangeRequestStateMerged ChangeRequestState = "merged"
	ChangeRequestStateClosed ChangeRequestState = "closed"
)

// AgentRunStatus - статус одной попытки вызова reasoning-сервиса
type AgentRunStatus string

const (
	AgentRunStatusRunning AgentRunStatus = "running"
	AgentRunStatusOK      AgentRunStatus = "ok"
	AgentRunStatusError   AgentRunStatus = "error"
)

// Действия, защищаемые advisory-блокировками
const (
	ActionSyncGit    = "sync_git"
	ActionWeeklyPlan = "weekly_plan"
)

// Org - организация, владеющая командами
type Org struct {
	ID        uint
	Name      string
	CreatedAt time.Time
}

// Team - команда внутри организации. Идентичность: (org, name)
type Team struct {
	ID        uint
	OrgID     uint
	OrgName   string
	Name      string
	CreatedAt time.Time
}

// GitProvider - провайдер хостинга кода (GitHub, GHE и т.д.)
type GitProvider struct {
	ID         uint
	Name       string
	APIBaseURL string
}

// RepoRef - ссылка на один внешний репозиторий команды.
// Уникальна по (team, api_base_url, owner, repo).
type RepoRef struct {
	ID            uint
	TeamID        uint
	GitProviderID uint
	ProviderName  string
	APIBaseURL    string
	TokenPresent  bool
	Owner         string
	Repo          string
}

// JiraConfig - конфигурация issue tracker команды (не более одной на команду)
type JiraConfig struct {
	ID           uint
	TeamID       uint
	BaseURL      string
	Email        string
	TokenPresent bool
	ProjectKey   string
	BoardID      string
}

// ChangeRequest - локальная запись pull/merge request.
// Хранит только хэши идентифицирующих полей, никогда сырые строки.
// Ключ: (team, repo_ref, number).
type ChangeRequest struct {
	ID           uint
	TeamID       uint
	RepoRefID    uint
	Number       int
	TitleHash    string
	AuthorHash   string
	State        ChangeRequestState
	CreatedAt    time.Time
	MergedAt     *time.Time
	ClosedAt     *time.Time
	Additions    int
	Deletions    int
	ChangedFiles int
	SyncedAt     time.Time
}

// IsOpen сообщает, открыт ли change request (нет ни merge, ни close)
func (cr *ChangeRequest) IsOpen() bool {
	return cr.MergedAt == nil && cr.ClosedAt == nil
}

// Size возвращает суммарный размер изменений (additions + deletions)
func (cr *ChangeRequest) Size() int {
	return cr.Additions + cr.Deletions
}

// Review - одно ревью на change request.
// Ключ: (team, repo_ref, pr_number, reviewer_hash, submitted_at).
// При повторной синхронизации может обновиться state, но не timestamp.
type Review struct {
	ID           uint
	TeamID       uint
	RepoRefID    uint
	Number       int
	ReviewerHash string
	State        string
	SubmittedAt  time.Time
}

// Issue - задача из issue tracker. Ключ: (team, key)
type Issue struct {
	ID           uint
	TeamID       uint
	Key          string
	Status       string
	IssueType    string
	Priority     string
	AssigneeHash string
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	DueDate      string
	IsBlocked    bool
}

// MetricSnapshot - одно значение именованной метрики за день.
// Ключ: (team, as_of_date, name); upsert, без дублей за один день.
type MetricSnapshot struct {
	ID       uint
	TeamID   uint
	AsOfDate time.Time
	Name     string
	Value    float64
}

// ContextPacketRecord - неизменяемая запись санитизированного пакета,
// отправленного в reasoning-сервис; хранится дословно для аудита и превью.
type ContextPacketRecord struct {
	ID        uint
	TeamID    uint
	CreatedAt time.Time
	Content   string
}

// AgentRun - одна попытка вызова reasoning-сервиса
type AgentRun struct {
	ID        uint
	TeamID    uint
	CreatedAt time.Time
	LLMMode   string
	Model     string
	Status    AgentRunStatus
	Error     string
}

// Plan - один успешно сгенерированный недельный план
type Plan struct {
	ID         uint
	TeamID     uint
	AgentRunID uint
	WeekStart  time.Time
	CreatedAt  time.Time
	Content    string
}

// ActionLock - эфемерная строка-блокировка. Ключ: (team, action).
// Удаляется при release или перехватывается после истечения TTL.
type ActionLock struct {
	ID       uint
	TeamID   uint
	Action   string
	Owner    string
	LockedAt time.Time
}

// SyncResult - итог одного прогона синхронизации команды
type SyncResult struct {
	ChangeRequests int
	Reviews        int
	Issues         int
}

// TeamPullRequests - номера PR команды, сгруппированные по репозиторию
type TeamPullRequests struct {
	RepoRefID  uint
	Owner      string
	Repo       string
	APIBaseURL string
	Numbers    []int
}

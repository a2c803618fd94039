package storage

import (
	"context"
	"time"

	"emaide/internal/domain"
)

// TxManager управляет транзакциями базы данных
//
//go:generate mockery --name=TxManager --output=../mocks --outpkg=mocks --filename=tx_manager_mock.go
type TxManager interface {
	// Do выполняет функцию fn внутри транзакции
	// Если fn возвращает ошибку, транзакция откатывается
	// Иначе транзакция коммитится
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx представляет транзакцию с доступом к репозиториям
//
//go:generate mockery --name=Tx --output=../mocks --outpkg=mocks --filename=tx_mock.go
type Tx interface {
	OrgRepo() OrgRepository
	TeamRepo() TeamRepository
	RepoRefRepo() RepoRefRepository
	JiraConfigRepo() JiraConfigRepository
	ChangeRequestRepo() ChangeRequestRepository
	ReviewRepo() ReviewRepository
	IssueRepo() IssueRepository
	MetricRepo() MetricRepository
	PacketRepo() PacketRepository
	AgentRunRepo() AgentRunRepository
	PlanRepo() PlanRepository
	LockRepo() LockRepository
}

// OrgRepository определяет операции с организациями
type OrgRepository interface {
	// GetOrCreate возвращает организацию по имени, создавая её при отсутствии
	GetOrCreate(ctx context.Context, name string) (*domain.Org, error)
}

// TeamRepository определяет операции с командами
type TeamRepository interface {
	// GetByID возвращает команду по ID вместе с именем организации
	GetByID(ctx context.Context, teamID uint) (*domain.Team, error)

	// GetOrCreate возвращает команду по (org, name), создавая при отсутствии
	GetOrCreate(ctx context.Context, orgID uint, name string) (*domain.Team, error)

	// List возвращает все команды
	List(ctx context.Context) ([]domain.Team, error)
}

// RepoRefRepository определяет операции со ссылками на репозитории
type RepoRefRepository interface {
	// ListByTeam возвращает все репозитории команды
	ListByTeam(ctx context.Context, teamID uint) ([]domain.RepoRef, error)

	// Upsert создаёт или обновляет ссылку по ключу (team, api_base_url, owner, repo)
	Upsert(ctx context.Context, ref *domain.RepoRef) error

	// EnsureProvider возвращает git-провайдера по имени, создавая при отсутствии
	EnsureProvider(ctx context.Context, name, apiBaseURL string) (*domain.GitProvider, error)
}

// JiraConfigRepository определяет операции с конфигурацией issue tracker
type JiraConfigRepository interface {
	// GetByTeam возвращает конфигурацию команды или ErrNotFound
	GetByTeam(ctx context.Context, teamID uint) (*domain.JiraConfig, error)

	// Upsert создаёт или обновляет конфигурацию (не более одной на команду)
	Upsert(ctx context.Context, cfg *domain.JiraConfig) error
}

// ChangeRequestRepository определяет операции с change requests
type ChangeRequestRepository interface {
	// Upsert создаёт или обновляет запись по ключу (team, repo_ref, number)
	Upsert(ctx context.Context, cr *domain.ChangeRequest) error

	// ListByTeam возвращает все change requests команды
	ListByTeam(ctx context.Context, teamID uint) ([]domain.ChangeRequest, error)

	// ListByTeamOldestFirst возвращает до limit записей, старейшие по created_at первыми
	ListByTeamOldestFirst(ctx context.Context, teamID uint, limit int) ([]domain.ChangeRequest, error)
}

// ReviewRepository определяет операции с ревью
type ReviewRepository interface {
	// Upsert создаёт запись или обновляет state по ключу
	// (team, repo_ref, pr_number, reviewer_hash, submitted_at)
	Upsert(ctx context.Context, rv *domain.Review) error

	// ListByTeam возвращает все ревью команды
	ListByTeam(ctx context.Context, teamID uint) ([]domain.Review, error)
}

// IssueRepository определяет операции с задачами issue tracker
type IssueRepository interface {
	// Upsert создаёт или обновляет запись по ключу (team, key)
	Upsert(ctx context.Context, issue *domain.Issue) error

	// ListByTeam возвращает все задачи команды
	ListByTeam(ctx context.Context, teamID uint) ([]domain.Issue, error)
}

// MetricRepository определяет операции со снапшотами метрик
type MetricRepository interface {
	// Upsert перезаписывает значение по ключу (team, as_of_date, name)
	Upsert(ctx context.Context, snap *domain.MetricSnapshot) error

	// LatestByTeam возвращает до limit снапшотов, новые даты первыми
	LatestByTeam(ctx context.Context, teamID uint, limit int) ([]domain.MetricSnapshot, error)
}

// PacketRepository определяет операции с контекстными пакетами (append-only)
type PacketRepository interface {
	// Create сохраняет пакет дословно для аудита
	Create(ctx context.Context, packet *domain.ContextPacketRecord) error

	// Latest возвращает последний по времени создания пакет команды
	Latest(ctx context.Context, teamID uint) (*domain.ContextPacketRecord, error)
}

// AgentRunRepository определяет операции с записями вызовов reasoning-сервиса
type AgentRunRepository interface {
	// Create сохраняет запись о попытке вызова
	Create(ctx context.Context, run *domain.AgentRun) error

	// ListByTeam возвращает до limit записей, новые первыми
	ListByTeam(ctx context.Context, teamID uint, limit int) ([]domain.AgentRun, error)
}

// PlanRepository определяет операции с планами
type PlanRepository interface {
	// Create сохраняет план
	Create(ctx context.Context, plan *domain.Plan) error

	// Latest возвращает последний по времени создания план команды
	Latest(ctx context.Context, teamID uint) (*domain.Plan, error)
}

// LockRepository - CAS-примитив над хранилищем с уникальным ключом (team, action).
// Конфликт вставки означает, что блокировка уже удерживается.
type LockRepository interface {
	// Create вставляет строку блокировки; при конфликте возвращает ErrAlreadyExists
	Create(ctx context.Context, lock *domain.ActionLock) error

	// Get возвращает текущую блокировку или ErrNotFound
	Get(ctx context.Context, teamID uint, action string) (*domain.ActionLock, error)

	// Delete удаляет блокировку. Удаление несуществующей строки не является ошибкой
	Delete(ctx context.Context, teamID uint, action string) error

	// DeleteOwned удаляет блокировку, только если её всё ещё держит owner.
	// Возвращает true, если строка была удалена. Предикат по owner закрывает
	// гонку двух одновременных перехватов протухшей блокировки: медленный
	// процесс не может снести строку, которую быстрый уже успел пересоздать.
	DeleteOwned(ctx context.Context, teamID uint, action, owner string) (bool, error)
}

// LockStaleAfter сообщает, протухла ли блокировка относительно ttl на момент now
func LockStaleAfter(lock *domain.ActionLock, ttl time.Duration, now time.Time) bool {
	return now.Sub(lock.LockedAt) > ttl
}

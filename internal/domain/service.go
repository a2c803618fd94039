package domain

import (
	"context"
	"time"
)

// LockManager - межпроцессная advisory-блокировка по ключу (team, action).
// Блокировка никогда не ждёт: при конфликте операция сразу завершается ошибкой.
//
//go:generate mockery --name=LockManager --output=../mocks --outpkg=mocks --filename=lock_manager_mock.go
type LockManager interface {
	// Acquire пытается захватить блокировку. Если блокировка уже удерживается
	// и не протухла (now - locked_at <= ttl), возвращает ошибку контенции.
	// Протухшая блокировка удаляется и захват повторяется ровно один раз.
	Acquire(ctx context.Context, teamID uint, action, owner string, ttl time.Duration) error

	// Release снимает блокировку. Идемпотентна: снятие несуществующей
	// блокировки не является ошибкой.
	Release(ctx context.Context, teamID uint, action string) error
}

// SyncService - идемпотентная синхронизация внешней активности в локальные записи
//
//go:generate mockery --name=SyncService --output=../mocks --outpkg=mocks --filename=sync_service_mock.go
type SyncService interface {
	// SyncTeam подтягивает change requests, ревью и задачи для всех
	// сконфигурированных источников команды. At-least-once и идемпотентно.
	SyncTeam(ctx context.Context, teamID uint, sinceDays int) (*SyncResult, error)
}

// MetricsService - детерминированный агрегатор метрик по локальным записям
//
//go:generate mockery --name=MetricsService --output=../mocks --outpkg=mocks --filename=metrics_service_mock.go
type MetricsService interface {
	// Compute считает фиксированный набор именованных метрик команды
	Compute(ctx context.Context, teamID uint) (map[string]float64, error)

	// Snapshot считает метрики и upsert-ит по одной строке на имя за дату.
	// Возвращает количество записанных метрик.
	Snapshot(ctx context.Context, teamID uint, asOf time.Time) (int, error)

	// LatestSnapshots возвращает последние снапшоты команды (новые даты первыми)
	LatestSnapshots(ctx context.Context, teamID uint, limit int) ([]MetricSnapshot, error)
}

// PacketBuilder строит санитизированный контекстный пакет команды
//
//go:generate mockery --name=PacketBuilder --output=../mocks --outpkg=mocks --filename=packet_builder_mock.go
type PacketBuilder interface {
	Build(ctx context.Context, teamID uint) (*ContextPacket, error)
}

// PlanService - оркестратор построения недельного плана
//
//go:generate mockery --name=PlanService --output=../mocks --outpkg=mocks --filename=plan_service_mock.go
type PlanService interface {
	// Run строит пакет, вызывает reasoning-сервис и атомарно сохраняет
	// пакет, запись о вызове и план. При контенции возвращает ErrPlanInProgress.
	Run(ctx context.Context, teamID uint, owner string) (*Plan, error)

	// GetLatest возвращает последний сохранённый план команды
	GetLatest(ctx context.Context, teamID uint) (*Plan, error)

	// GetContextPreview возвращает последний сохранённый контекстный пакет
	GetContextPreview(ctx context.Context, teamID uint) (*ContextPacketRecord, error)
}

// TeamService - read-only доступ к командам и связанным записям
//
//go:generate mockery --name=TeamService --output=../mocks --outpkg=mocks --filename=team_service_mock.go
type TeamService interface {
	ListTeams(ctx context.Context) ([]Team, error)
	GetTeamPullRequests(ctx context.Context, teamID uint) ([]TeamPullRequests, error)
	ListAgentRuns(ctx context.Context, teamID uint, limit int) ([]AgentRun, error)
}

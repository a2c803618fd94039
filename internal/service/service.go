package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"emaide/internal/config"
	"emaide/internal/domain"
	"emaide/internal/llm"
	"emaide/internal/metrics"
	"emaide/internal/storage"
	"emaide/internal/tracker"
)

// Service реализует доменные сервисы поверх storage.TxManager и клиентов
// внешних трекеров и reasoning-сервиса
type Service struct {
	txmgr     storage.TxManager
	cfg       *config.Config
	codeHost  tracker.CodeHostClient
	issues    tracker.IssueTrackerClient
	generator llm.Generator
}

// Проверка что Service реализует доменные интерфейсы
var (
	_ domain.LockManager    = (*Service)(nil)
	_ domain.SyncService    = (*Service)(nil)
	_ domain.MetricsService = (*Service)(nil)
	_ domain.PacketBuilder  = (*Service)(nil)
	_ domain.PlanService    = (*Service)(nil)
	_ domain.TeamService    = (*Service)(nil)
)

// New создаёт новый Service. Клиенты трекеров и reasoning-сервиса
// передаются явно: в тестах их заменяют фейки.
func New(
	txmgr storage.TxManager,
	cfg *config.Config,
	codeHost tracker.CodeHostClient,
	issues tracker.IssueTrackerClient,
	generator llm.Generator,
) *Service {
	return &Service{
		txmgr:     txmgr,
		cfg:       cfg,
		codeHost:  codeHost,
		issues:    issues,
		generator: generator,
	}
}

// formatError преобразует ошибки storage слоя в доменные ошибки с правильными HTTP кодами
func (s *Service) formatError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrResourceNotFound
	case domain.IsDomainError(err):
		var derr *domain.Error
		errors.As(err, &derr)
		metrics.DomainErrorsTotal.WithLabelValues(string(derr.Code)).Inc()
		return err
	case errors.Is(err, ctx.Err()):
		return ctx.Err()
	default:
		log.Error().Err(err).Str("operation", op).Msg("operation failed")
		return domain.ErrInternal
	}
}

package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type packetRepository struct {
	db *gorm.DB
}

// NewPacketRepository создаёт новый репозиторий контекстных пакетов
func NewPacketRepository(db *gorm.DB) storage.PacketRepository {
	return &packetRepository{db: db}
}

// Create сохраняет пакет дословно. Пакеты append-only и никогда не обновляются.
func (r *packetRepository) Create(ctx context.Context, packet *domain.ContextPacketRecord) error {
	dbPacket := ContextPacket{
		TeamID:  packet.TeamID,
		Content: packet.Content,
	}
	if err := r.db.WithContext(ctx).Create(&dbPacket).Error; err != nil {
		return err
	}
	packet.ID = dbPacket.ID
	packet.CreatedAt = dbPacket.CreatedAt
	return nil
}

// Latest возвращает последний по времени создания пакет команды
func (r *packetRepository) Latest(ctx context.Context, teamID uint) (*domain.ContextPacketRecord, error) {
	var dbPacket ContextPacket
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at desc, id desc").
		First(&dbPacket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &domain.ContextPacketRecord{
		ID:        dbPacket.ID,
		TeamID:    dbPacket.TeamID,
		CreatedAt: dbPacket.CreatedAt,
		Content:   dbPacket.Content,
	}, nil
}

type agentRunRepository struct {
	db *gorm.DB
}

// NewAgentRunRepository создаёт новый репозиторий записей вызовов reasoning-сервиса
func NewAgentRunRepository(db *gorm.DB) storage.AgentRunRepository {
	return &agentRunRepository{db: db}
}

// Create сохраняет запись о попытке вызова
func (r *agentRunRepository) Create(ctx context.Context, run *domain.AgentRun) error {
	dbRun := AgentRun{
		TeamID:  run.TeamID,
		LLMMode: run.LLMMode,
		Model:   run.Model,
		Status:  string(run.Status),
		Error:   run.Error,
	}
	if err := r.db.WithContext(ctx).Create(&dbRun).Error; err != nil {
		return err
	}
	run.ID = dbRun.ID
	run.CreatedAt = dbRun.CreatedAt
	return nil
}

// ListByTeam возвращает до limit записей, новые первыми
func (r *agentRunRepository) ListByTeam(ctx context.Context, teamID uint, limit int) ([]domain.AgentRun, error) {
	var dbRuns []AgentRun
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&dbRuns).Error
	if err != nil {
		return nil, err
	}

	runs := make([]domain.AgentRun, len(dbRuns))
	for i, run := range dbRuns {
		runs[i] = domain.AgentRun{
			ID:        run.ID,
			TeamID:    run.TeamID,
			CreatedAt: run.CreatedAt,
			LLMMode:   run.LLMMode,
			Model:     run.Model,
			Status:    domain.AgentRunStatus(run.Status),
			Error:     run.Error,
		}
	}
	return runs, nil
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository создаёт новый репозиторий планов
func NewPlanRepository(db *gorm.DB) storage.PlanRepository {
	return &planRepository{db: db}
}

// Create сохраняет план
func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	dbPlan := Plan{
		TeamID:     plan.TeamID,
		AgentRunID: plan.AgentRunID,
		WeekStart:  plan.WeekStart,
		Content:    plan.Content,
	}
	if err := r.db.WithContext(ctx).Create(&dbPlan).Error; err != nil {
		return err
	}
	plan.ID = dbPlan.ID
	plan.CreatedAt = dbPlan.CreatedAt
	return nil
}

// Latest возвращает последний по времени создания план команды
func (r *planRepository) Latest(ctx context.Context, teamID uint) (*domain.Plan, error) {
	var dbPlan Plan
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at desc, id desc").
		First(&dbPlan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &domain.Plan{
		ID:         dbPlan.ID,
		TeamID:     dbPlan.TeamID,
		AgentRunID: dbPlan.AgentRunID,
		WeekStart:  dbPlan.WeekStart,
		CreatedAt:  dbPlan.CreatedAt,
		Content:    dbPlan.Content,
	}, nil
}

package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/logger"
	"emaide/internal/storage"
)

type changeRequestRepository struct {
	db *gorm.DB
}

// NewChangeRequestRepository создаёт новый репозиторий change requests
func NewChangeRequestRepository(db *gorm.DB) storage.ChangeRequestRepository {
	return &changeRequestRepository{db: db}
}

// Upsert создаёт или обновляет запись по ключу (team, repo_ref, number).
// Переходы состояний монотонны: open -> merged|closed, ингест их не откатывает.
func (r *changeRequestRepository) Upsert(ctx context.Context, cr *domain.ChangeRequest) error {
	requestID := logger.GetRequestID(ctx)

	var existing ChangeRequest
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND repo_ref_id = ? AND number = ?", cr.TeamID, cr.RepoRefID, cr.Number).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbCR := ChangeRequest{
			TeamID:       cr.TeamID,
			RepoRefID:    cr.RepoRefID,
			Number:       cr.Number,
			TitleHash:    cr.TitleHash,
			AuthorHash:   cr.AuthorHash,
			State:        string(cr.State),
			CreatedAt:    cr.CreatedAt,
			MergedAt:     cr.MergedAt,
			ClosedAt:     cr.ClosedAt,
			Additions:    cr.Additions,
			Deletions:    cr.Deletions,
			ChangedFiles: cr.ChangedFiles,
			SyncedAt:     time.Now().UTC(),
		}
		if err := r.db.WithContext(ctx).Create(&dbCR).Error; err != nil {
			log.Error().
				Err(err).
				Str("request_id", requestID).
				Str("layer", "storage").
				Int("number", cr.Number).
				Msg("error creating change request")
			return err
		}
		cr.ID = dbCR.ID
		return nil
	}
	if err != nil {
		return err
	}

	// merged_at/closed_at не откатываются: повторное открытие PR в трекере
	// не стирает уже зафиксированный переход
	if cr.MergedAt == nil {
		cr.MergedAt = existing.MergedAt
	}
	if cr.ClosedAt == nil {
		cr.ClosedAt = existing.ClosedAt
	}
	if cr.MergedAt != nil {
		cr.State = domain.ChangeRequestStateMerged
	} else if cr.ClosedAt != nil {
		cr.State = domain.ChangeRequestStateClosed
	}

	existing.State = string(cr.State)
	existing.MergedAt = cr.MergedAt
	existing.ClosedAt = cr.ClosedAt
	existing.Additions = cr.Additions
	existing.Deletions = cr.Deletions
	existing.ChangedFiles = cr.ChangedFiles
	existing.SyncedAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("layer", "storage").
			Int("number", cr.Number).
			Msg("error updating change request")
		return err
	}
	cr.ID = existing.ID
	return nil
}

// ListByTeam возвращает все change requests команды
func (r *changeRequestRepository) ListByTeam(ctx context.Context, teamID uint) ([]domain.ChangeRequest, error) {
	var dbCRs []ChangeRequest
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&dbCRs).Error; err != nil {
		return nil, err
	}
	return mapChangeRequests(dbCRs), nil
}

// ListByTeamOldestFirst возвращает до limit записей, старейшие по created_at первыми
func (r *changeRequestRepository) ListByTeamOldestFirst(ctx context.Context, teamID uint, limit int) ([]domain.ChangeRequest, error) {
	var dbCRs []ChangeRequest
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at asc").
		Limit(limit).
		Find(&dbCRs).Error
	if err != nil {
		return nil, err
	}
	return mapChangeRequests(dbCRs), nil
}

func mapChangeRequests(dbCRs []ChangeRequest) []domain.ChangeRequest {
	crs := make([]domain.ChangeRequest, len(dbCRs))
	for i, cr := range dbCRs {
		crs[i] = domain.ChangeRequest{
			ID:           cr.ID,
			TeamID:       cr.TeamID,
			RepoRefID:    cr.RepoRefID,
			Number:       cr.Number,
			TitleHash:    cr.TitleHash,
			AuthorHash:   cr.AuthorHash,
			State:        domain.ChangeRequestState(cr.State),
			CreatedAt:    cr.CreatedAt,
			MergedAt:     cr.MergedAt,
			ClosedAt:     cr.ClosedAt,
			Additions:    cr.Additions,
			Deletions:    cr.Deletions,
			ChangedFiles: cr.ChangedFiles,
			SyncedAt:     cr.SyncedAt,
		}
	}
	return crs
}

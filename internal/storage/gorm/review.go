package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository создаёт новый репозиторий ревью
func NewReviewRepository(db *gorm.DB) storage.ReviewRepository {
	return &reviewRepository{db: db}
}

// Upsert создаёт запись или обновляет state по ключу
// (team, repo_ref, pr_number, reviewer_hash, submitted_at).
// Timestamp у существующей записи никогда не меняется.
func (r *reviewRepository) Upsert(ctx context.Context, rv *domain.Review) error {
	var existing Review
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND repo_ref_id = ? AND number = ? AND reviewer_hash = ? AND submitted_at = ?",
			rv.TeamID, rv.RepoRefID, rv.Number, rv.ReviewerHash, rv.SubmittedAt).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbReview := Review{
			TeamID:       rv.TeamID,
			RepoRefID:    rv.RepoRefID,
			Number:       rv.Number,
			ReviewerHash: rv.ReviewerHash,
			State:        rv.State,
			SubmittedAt:  rv.SubmittedAt,
		}
		if err := r.db.WithContext(ctx).Create(&dbReview).Error; err != nil {
			return err
		}
		rv.ID = dbReview.ID
		return nil
	}
	if err != nil {
		return err
	}

	existing.State = rv.State
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	rv.ID = existing.ID
	return nil
}

// ListByTeam возвращает все ревью команды
func (r *reviewRepository) ListByTeam(ctx context.Context, teamID uint) ([]domain.Review, error) {
	var dbReviews []Review
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&dbReviews).Error; err != nil {
		return nil, err
	}

	reviews := make([]domain.Review, len(dbReviews))
	for i, rv := range dbReviews {
		reviews[i] = domain.Review{
			ID:           rv.ID,
			TeamID:       rv.TeamID,
			RepoRefID:    rv.RepoRefID,
			Number:       rv.Number,
			ReviewerHash: rv.ReviewerHash,
			State:        rv.State,
			SubmittedAt:  rv.SubmittedAt,
		}
	}
	return reviews, nil
}

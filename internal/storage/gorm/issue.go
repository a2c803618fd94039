package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type issueRepository struct {
	db *gorm.DB
}

// NewIssueRepository создаёт новый репозиторий задач issue tracker
func NewIssueRepository(db *gorm.DB) storage.IssueRepository {
	return &issueRepository{db: db}
}

// Upsert создаёт или обновляет запись по ключу (team, key).
// У существующей записи created_at не перезаписывается, updated_at -
// только если трекер прислал валидное значение.
func (r *issueRepository) Upsert(ctx context.Context, issue *domain.Issue) error {
	var existing Issue
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND key = ?", issue.TeamID, issue.Key).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbIssue := Issue{
			TeamID:       issue.TeamID,
			Key:          issue.Key,
			Status:       issue.Status,
			IssueType:    issue.IssueType,
			Priority:     issue.Priority,
			AssigneeHash: issue.AssigneeHash,
			CreatedAt:    issue.CreatedAt,
			UpdatedAt:    issue.UpdatedAt,
			DueDate:      issue.DueDate,
			IsBlocked:    issue.IsBlocked,
		}
		if err := r.db.WithContext(ctx).Create(&dbIssue).Error; err != nil {
			return err
		}
		issue.ID = dbIssue.ID
		return nil
	}
	if err != nil {
		return err
	}

	existing.Status = issue.Status
	existing.IssueType = issue.IssueType
	existing.Priority = issue.Priority
	existing.AssigneeHash = issue.AssigneeHash
	existing.DueDate = issue.DueDate
	existing.IsBlocked = issue.IsBlocked
	if issue.UpdatedAt != nil {
		existing.UpdatedAt = issue.UpdatedAt
	}

	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	issue.ID = existing.ID
	return nil
}

// ListByTeam возвращает все задачи команды
func (r *issueRepository) ListByTeam(ctx context.Context, teamID uint) ([]domain.Issue, error) {
	var dbIssues []Issue
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&dbIssues).Error; err != nil {
		return nil, err
	}

	issues := make([]domain.Issue, len(dbIssues))
	for i, iss := range dbIssues {
		issues[i] = domain.Issue{
			ID:           iss.ID,
			TeamID:       iss.TeamID,
			Key:          iss.Key,
			Status:       iss.Status,
			IssueType:    iss.IssueType,
			Priority:     iss.Priority,
			AssigneeHash: iss.AssigneeHash,
			CreatedAt:    iss.CreatedAt,
			UpdatedAt:    iss.UpdatedAt,
			DueDate:      iss.DueDate,
			IsBlocked:    iss.IsBlocked,
		}
	}
	return issues, nil
}

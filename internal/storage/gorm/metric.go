package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type metricRepository struct {
	db *gorm.DB
}

// NewMetricRepository создаёт новый репозиторий снапшотов метрик
func NewMetricRepository(db *gorm.DB) storage.MetricRepository {
	return &metricRepository{db: db}
}

// Upsert перезаписывает значение по ключу (team, as_of_date, name).
// За один день существует не более одной строки на имя.
func (r *metricRepository) Upsert(ctx context.Context, snap *domain.MetricSnapshot) error {
	var existing MetricSnapshot
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND as_of_date = ? AND name = ?", snap.TeamID, snap.AsOfDate, snap.Name).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbSnap := MetricSnapshot{
			TeamID:   snap.TeamID,
			AsOfDate: snap.AsOfDate,
			Name:     snap.Name,
			Value:    snap.Value,
		}
		if err := r.db.WithContext(ctx).Create(&dbSnap).Error; err != nil {
			return err
		}
		snap.ID = dbSnap.ID
		return nil
	}
	if err != nil {
		return err
	}

	existing.Value = snap.Value
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	snap.ID = existing.ID
	return nil
}

// LatestByTeam возвращает до limit снапшотов, новые даты первыми
func (r *metricRepository) LatestByTeam(ctx context.Context, teamID uint, limit int) ([]domain.MetricSnapshot, error) {
	var dbSnaps []MetricSnapshot
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("as_of_date desc, id desc").
		Limit(limit).
		Find(&dbSnaps).Error
	if err != nil {
		return nil, err
	}

	snaps := make([]domain.MetricSnapshot, len(dbSnaps))
	for i, s := range dbSnaps {
		snaps[i] = domain.MetricSnapshot{
			ID:       s.ID,
			TeamID:   s.TeamID,
			AsOfDate: s.AsOfDate,
			Name:     s.Name,
			Value:    s.Value,
		}
	}
	return snaps, nil
}

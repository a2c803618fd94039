package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type lockRepository struct {
	db *gorm.DB
}

// NewLockRepository создаёт новый репозиторий advisory-блокировок
func NewLockRepository(db *gorm.DB) storage.LockRepository {
	return &lockRepository{db: db}
}

// Create вставляет строку блокировки. Уникальный индекс (team_id, action)
// превращает межпроцессную гонку в детерминированный конфликт вставки:
// проигравший получает ErrAlreadyExists.
func (r *lockRepository) Create(ctx context.Context, lock *domain.ActionLock) error {
	dbLock := ActionLock{
		TeamID:   lock.TeamID,
		Action:   lock.Action,
		Owner:    lock.Owner,
		LockedAt: time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).Create(&dbLock)
	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == storage.UniqueViolation {
			log.Warn().
				Str("layer", "storage").
				Uint("team_id", lock.TeamID).
				Str("action", lock.Action).
				Msg("action lock already held")
			return storage.ErrAlreadyExists
		}
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return storage.ErrAlreadyExists
		}
		log.Error().
			Err(result.Error).
			Str("layer", "storage").
			Uint("team_id", lock.TeamID).
			Str("action", lock.Action).
			Msg("error creating action lock")
		return result.Error
	}

	lock.ID = dbLock.ID
	lock.LockedAt = dbLock.LockedAt
	return nil
}

// Get возвращает текущую блокировку или ErrNotFound
func (r *lockRepository) Get(ctx context.Context, teamID uint, action string) (*domain.ActionLock, error) {
	var dbLock ActionLock
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND action = ?", teamID, action).
		First(&dbLock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &domain.ActionLock{
		ID:       dbLock.ID,
		TeamID:   dbLock.TeamID,
		Action:   dbLock.Action,
		Owner:    dbLock.Owner,
		LockedAt: dbLock.LockedAt,
	}, nil
}

// Delete удаляет блокировку безусловно. Удаление несуществующей строки
// не является ошибкой - release идемпотентен.
func (r *lockRepository) Delete(ctx context.Context, teamID uint, action string) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND action = ?", teamID, action).
		Delete(&ActionLock{}).Error
}

// DeleteOwned удаляет блокировку, только если её всё ещё держит owner.
// Под READ COMMITTED два процесса могут одновременно прочитать одну и ту же
// протухшую строку; предикат по owner гарантирует, что удалить её сможет
// только один из них - второй увидит RowsAffected == 0.
func (r *lockRepository) DeleteOwned(ctx context.Context, teamID uint, action, owner string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("team_id = ? AND action = ? AND owner = ?", teamID, action, owner).
		Delete(&ActionLock{})
	if result.Error != nil {
		log.Error().
			Err(result.Error).
			Str("layer", "storage").
			Uint("team_id", teamID).
			Str("action", action).
			Msg("error deleting owned action lock")
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

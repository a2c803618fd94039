package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"emaide/internal/domain"
	"emaide/internal/metrics"
	"emaide/internal/storage"
)

// Acquire пытается захватить advisory-блокировку (team, action).
// Конфликт вставки означает, что блокировка удерживается; если её возраст
// превысил ttl, держатель считается погибшим - строка удаляется и вставка
// повторяется ровно один раз. Захват никогда не ждёт.
func (s *Service) Acquire(ctx context.Context, teamID uint, action, owner string, ttl time.Duration) error {
	const op = "service.AcquireLock"

	err := s.insertLock(ctx, teamID, action, owner)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrAlreadyExists) {
		return s.formatError(ctx, op, err)
	}

	// Блокировка удерживается: проверяем протухание
	reclaimed := false
	err = s.txmgr.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		lock, err := tx.LockRepo().Get(ctx, teamID, action)
		if errors.Is(err, storage.ErrNotFound) {
			// Держатель успел освободить блокировку между вставкой и чтением
			reclaimed = true
			return nil
		}
		if err != nil {
			return err
		}
		if !storage.LockStaleAfter(lock, ttl, time.Now().UTC()) {
			return nil
		}
		deleted, err := tx.LockRepo().DeleteOwned(ctx, teamID, action, lock.Owner)
		if err != nil {
			return err
		}
		if !deleted {
			// Конкурент успел перехватить блокировку между нашим чтением
			// и удалением: его свежую строку не трогаем
			return nil
		}
		log.Warn().
			Str("layer", "service").
			Uint("team_id", teamID).
			Str("action", action).
			Str("stale_owner", lock.Owner).
			Time("locked_at", lock.LockedAt).
			Msg("reclaimed stale lock")
		metrics.LockReclaimsTotal.WithLabelValues(action).Inc()
		reclaimed = true
		return nil
	})
	if err != nil {
		return s.formatError(ctx, op, err)
	}
	if !reclaimed {
		metrics.LockConflictsTotal.WithLabelValues(action).Inc()
		return contentionError(action)
	}

	// Ровно одна повторная попытка после перехвата
	if err := s.insertLock(ctx, teamID, action, owner); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			metrics.LockConflictsTotal.WithLabelValues(action).Inc()
			return contentionError(action)
		}
		return s.formatError(ctx, op, err)
	}
	return nil
}

// Release снимает блокировку. Идемпотентна.
func (s *Service) Release(ctx context.Context, teamID uint, action string) error {
	const op = "service.ReleaseLock"

	err := s.txmgr.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.LockRepo().Delete(ctx, teamID, action)
	})
	if err != nil {
		return s.formatError(ctx, op, err)
	}
	return nil
}

func (s *Service) insertLock(ctx context.Context, teamID uint, action, owner string) error {
	return s.txmgr.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.LockRepo().Create(ctx, &domain.ActionLock{
			TeamID:   teamID,
			Action:   action,
			Owner:    owner,
			LockedAt: time.Now().UTC(),
		})
	})
}

// contentionError возвращает доменную ошибку контенции для действия
func contentionError(action string) error {
	if action == domain.ActionWeeklyPlan {
		return domain.ErrPlanInProgress
	}
	return domain.ErrLockHeld
}

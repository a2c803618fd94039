package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

func TestAcquire_Exclusive(t *testing.T) {
	// Arrange
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	// Act
	err := svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-a", time.Minute)
	require.NoError(t, err)

	second := svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-b", time.Minute)

	// Assert
	require.Error(t, second)
	assert.ErrorIs(t, second, domain.ErrLockHeld)
}

func TestAcquire_PlanContentionCode(t *testing.T) {
	// Arrange
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionWeeklyPlan, "owner-a", time.Minute))

	// Act
	err := svc.Acquire(ctx, team.ID, domain.ActionWeeklyPlan, "owner-b", time.Minute)

	// Assert
	assert.ErrorIs(t, err, domain.ErrPlanInProgress)
}

func TestAcquire_IndependentActions(t *testing.T) {
	// Arrange
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	// Act & Assert: блокировки разных действий не мешают друг другу
	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-a", time.Minute))
	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionWeeklyPlan, "owner-a", time.Minute))
}

func TestAcquire_StaleReclaim(t *testing.T) {
	// Arrange: блокировка, захваченная погибшим держателем давно
	svc, store, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.LockRepo().Create(ctx, &domain.ActionLock{
			TeamID:   team.ID,
			Action:   domain.ActionSyncGit,
			Owner:    "dead-owner",
			LockedAt: time.Now().UTC().Add(-time.Hour),
		})
	})
	require.NoError(t, err)

	// Act
	err = svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "new-owner", time.Minute)

	// Assert
	require.NoError(t, err)

	var lock *domain.ActionLock
	err = store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		lock, err = tx.LockRepo().Get(ctx, team.ID, domain.ActionSyncGit)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "new-owner", lock.Owner)
}

func TestAcquire_FreshLockNotReclaimed(t *testing.T) {
	// Arrange
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-a", time.Hour))

	// Act: TTL час, блокировке секунды - перехвата быть не должно
	err := svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-b", time.Hour)

	// Assert
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestRelease_Idempotent(t *testing.T) {
	// Arrange
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-a", time.Minute))

	// Act & Assert
	require.NoError(t, svc.Release(ctx, team.ID, domain.ActionSyncGit))
	require.NoError(t, svc.Release(ctx, team.ID, domain.ActionSyncGit))

	// После release блокировка свободна
	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-b", time.Minute))
}

func TestLockRepo_DeleteOwnedRequiresMatchingOwner(t *testing.T) {
	// Arrange
	_, store, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.LockRepo().Create(ctx, &domain.ActionLock{
			TeamID:   team.ID,
			Action:   domain.ActionSyncGit,
			Owner:    "owner-a",
			LockedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	// Act: удаление с чужим owner не трогает строку
	var deleted bool
	err = store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		deleted, err = tx.LockRepo().DeleteOwned(ctx, team.ID, domain.ActionSyncGit, "owner-b")
		return err
	})
	require.NoError(t, err)
	assert.False(t, deleted)

	var lock *domain.ActionLock
	err = store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		lock, err = tx.LockRepo().Get(ctx, team.ID, domain.ActionSyncGit)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "owner-a", lock.Owner)

	// Act: совпадающий owner удаляет строку
	err = store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		deleted, err = tx.LockRepo().DeleteOwned(ctx, team.ID, domain.ActionSyncGit, "owner-a")
		return err
	})
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestAcquire_SlowReclaimerCannotEvictFreshLock(t *testing.T) {
	// Arrange: два процесса увидели одну и ту же протухшую блокировку.
	// Быстрый уже перехватил её; медленный всё ещё держит в руках
	// старого владельца и пытается удалить по нему.
	svc, store, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.LockRepo().Create(ctx, &domain.ActionLock{
			TeamID:   team.ID,
			Action:   domain.ActionSyncGit,
			Owner:    "dead-owner",
			LockedAt: time.Now().UTC().Add(-time.Hour),
		})
	})
	require.NoError(t, err)

	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "fast-owner", time.Minute))

	// Act: удаление медленного процесса обусловлено протухшим владельцем
	var deleted bool
	err = store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		deleted, err = tx.LockRepo().DeleteOwned(ctx, team.ID, domain.ActionSyncGit, "dead-owner")
		return err
	})
	require.NoError(t, err)

	// Assert: свежая блокировка уцелела, повторная вставка конфликтует
	assert.False(t, deleted)

	insertErr := store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.LockRepo().Create(ctx, &domain.ActionLock{
			TeamID:   team.ID,
			Action:   domain.ActionSyncGit,
			Owner:    "slow-owner",
			LockedAt: time.Now().UTC(),
		})
	})
	assert.ErrorIs(t, insertErr, storage.ErrAlreadyExists)

	var lock *domain.ActionLock
	err = store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		lock, err = tx.LockRepo().Get(ctx, team.ID, domain.ActionSyncGit)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "fast-owner", lock.Owner)
}

func TestAcquire_ReleasedBetweenInsertAndCheck(t *testing.T) {
	// Arrange: Get после конфликта не находит строку - захват повторяется
	svc, store, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})
	ctx := context.Background()

	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-a", time.Minute))
	require.NoError(t, svc.Release(ctx, team.ID, domain.ActionSyncGit))

	err := store.Do(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.LockRepo().Get(ctx, team.ID, domain.ActionSyncGit)
		return err
	})
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	// Act & Assert
	require.NoError(t, svc.Acquire(ctx, team.ID, domain.ActionSyncGit, "owner-b", time.Minute))
}

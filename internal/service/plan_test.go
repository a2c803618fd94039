package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

func latestAgentRun(t *testing.T, store storage.TxManager, teamID uint) *domain.AgentRun {
	t.Helper()
	var runs []domain.AgentRun
	err := store.Do(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		runs, err = tx.AgentRunRepo().ListByTeam(ctx, teamID, 1)
		return err
	})
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	return &runs[0]
}

func TestRunPlan_SuccessPersistsAtomically(t *testing.T) {
	// Arrange
	gen := &fakeGenerator{plan: validWeeklyPlan()}
	svc, store, team := newTestService(t, &fakeCodeHost{}, nil, gen)

	// Act
	plan, err := svc.Run(context.Background(), team.ID, "test-owner")

	// Assert: план, agent run и пакет сохранены и связаны
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, team.ID, plan.TeamID)
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), plan.WeekStart)

	run := latestAgentRun(t, store, team.ID)
	assert.Equal(t, domain.AgentRunStatusOK, run.Status)
	assert.Equal(t, "remote", run.LLMMode)
	assert.Equal(t, "test-model", run.Model)
	assert.Empty(t, run.Error)
	assert.Equal(t, run.ID, plan.AgentRunID)

	var weekly domain.WeeklyPlan
	require.NoError(t, json.Unmarshal([]byte(plan.Content), &weekly))
	assert.Equal(t, "2026-08-24", weekly.WeekStart)
	assert.Len(t, weekly.TopActions, 3)
	assert.Len(t, weekly.TopRisks, 5)

	preview, err := svc.GetContextPreview(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Contains(t, preview.Content, `"org":"acme"`)

	latest, err := svc.GetLatest(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, latest.ID)
}

func TestRunPlan_GenerationFailureLeavesNoPlan(t *testing.T) {
	// Arrange
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc, store, team := newTestService(t, &fakeCodeHost{}, nil, gen)

	// Act
	plan, err := svc.Run(context.Background(), team.ID, "test-owner")

	// Assert: 502 AGENT_ERROR, план отсутствует
	require.Error(t, err)
	assert.Nil(t, plan)

	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusBadGateway, domainErr.Status)
	assert.Equal(t, domain.ErrorCodeAgentError, domainErr.Code)

	// Пакет и ошибочный agent run сохранены для аудита
	run := latestAgentRun(t, store, team.ID)
	assert.Equal(t, domain.AgentRunStatusError, run.Status)
	assert.Contains(t, run.Error, "model unavailable")

	preview, err := svc.GetContextPreview(context.Background(), team.ID)
	require.NoError(t, err)
	assert.Contains(t, preview.Content, `"team":"platform"`)

	_, err = svc.GetLatest(context.Background(), team.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}

func TestRunPlan_InvalidPlanShapeRejected(t *testing.T) {
	// Arrange: генератор отвечает планом без рисков
	broken := validWeeklyPlan()
	broken.TopRisks = nil
	gen := &fakeGenerator{plan: broken}
	svc, store, team := newTestService(t, &fakeCodeHost{}, nil, gen)

	// Act
	_, err := svc.Run(context.Background(), team.ID, "test-owner")

	// Assert
	require.Error(t, err)
	var domainErr *domain.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrorCodeAgentError, domainErr.Code)

	run := latestAgentRun(t, store, team.ID)
	assert.Equal(t, domain.AgentRunStatusError, run.Status)
	assert.Contains(t, run.Error, "no risks")
}

func TestRunPlan_ContentionReturnsPlanInProgress(t *testing.T) {
	// Arrange: лок недельного плана уже держит другой владелец
	gen := &fakeGenerator{plan: validWeeklyPlan()}
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, gen)
	require.NoError(t, svc.Acquire(context.Background(), team.ID, domain.ActionWeeklyPlan, "other-owner", time.Minute))

	// Act
	_, err := svc.Run(context.Background(), team.ID, "test-owner")

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlanInProgress)
	assert.Equal(t, 0, gen.calls)
}

func TestRunPlan_WeekStartFallsBackToMonday(t *testing.T) {
	// Arrange: генератор не заполняет week_start
	plan := validWeeklyPlan()
	plan.WeekStart = ""
	gen := &fakeGenerator{plan: plan}
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, gen)

	// Act
	created, err := svc.Run(context.Background(), team.ID, "test-owner")

	// Assert: понедельник текущей недели в UTC
	require.NoError(t, err)
	expected := domain.WeekStart(time.Now().UTC())
	assert.Equal(t, expected, created.WeekStart)
	assert.Equal(t, time.Monday, created.WeekStart.Weekday())

	var weekly domain.WeeklyPlan
	require.NoError(t, json.Unmarshal([]byte(created.Content), &weekly))
	assert.Equal(t, expected.Format("2006-01-02"), weekly.WeekStart)
}

func TestRunPlan_LockReleasedAfterRun(t *testing.T) {
	// Arrange
	gen := &fakeGenerator{plan: validWeeklyPlan()}
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, gen)

	// Act: успешный прогон, затем сбойный
	_, err := svc.Run(context.Background(), team.ID, "owner-1")
	require.NoError(t, err)

	gen.err = errors.New("boom")
	_, err = svc.Run(context.Background(), team.ID, "owner-2")
	require.Error(t, err)

	// Assert: лок свободен, третий запуск доходит до генератора
	gen.err = nil
	_, err = svc.Run(context.Background(), team.ID, "owner-3")
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emaide/internal/domain"
	"emaide/internal/privacy"
	"emaide/internal/storage"
	"emaide/internal/tracker"
)

func listChangeRequests(t *testing.T, store storage.TxManager, teamID uint) []domain.ChangeRequest {
	t.Helper()
	var crs []domain.ChangeRequest
	err := store.Do(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		crs, err = tx.ChangeRequestRepo().ListByTeam(ctx, teamID)
		return err
	})
	require.NoError(t, err)
	return crs
}

func TestSyncTeam_UpsertAndIdempotence(t *testing.T) {
	// Arrange
	now := time.Now().UTC()
	created := now.Add(-48 * time.Hour)
	merged := now.Add(-24 * time.Hour)
	codeHost := &fakeCodeHost{
		pulls: []tracker.ChangeRequestActivity{
			{
				Number:      7,
				Title:       "Add cache layer",
				AuthorLogin: "alice",
				State:       "closed",
				CreatedAt:   timePtr(created),
				UpdatedAt:   timePtr(merged),
				MergedAt:    timePtr(merged),
				Additions:   120,
				Deletions:   30,
			},
		},
		reviews: map[int][]tracker.ReviewActivity{
			7: {{ReviewerLogin: "bob", State: "APPROVED", SubmittedAt: timePtr(created.Add(2 * time.Hour))}},
		},
	}
	svc, store, team := newTestService(t, codeHost, nil, &fakeGenerator{})

	// Act: два прогона подряд
	first, err := svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)
	second, err := svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)

	// Assert: счётчики прогонов совпадают, записи не задвоились
	assert.Equal(t, 1, first.ChangeRequests)
	assert.Equal(t, 1, first.Reviews)
	assert.Equal(t, first, second)

	crs := listChangeRequests(t, store, team.ID)
	require.Len(t, crs, 1)
	assert.Equal(t, 7, crs[0].Number)
	assert.Equal(t, domain.ChangeRequestStateMerged, crs[0].State)
	assert.Equal(t, privacy.HashIdentifier("Add cache layer"), crs[0].TitleHash)
	assert.Equal(t, privacy.HashIdentifier("alice"), crs[0].AuthorHash)

	var reviews []domain.Review
	err = store.Do(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		reviews, err = tx.ReviewRepo().ListByTeam(ctx, team.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, privacy.HashIdentifier("bob"), reviews[0].ReviewerHash)
}

func TestSyncTeam_NoRawStringsPersisted(t *testing.T) {
	// Arrange
	now := time.Now().UTC()
	codeHost := &fakeCodeHost{
		pulls: []tracker.ChangeRequestActivity{
			{Number: 1, Title: "Secret feature title", AuthorLogin: "carol", CreatedAt: timePtr(now), UpdatedAt: timePtr(now)},
		},
	}
	svc, store, team := newTestService(t, codeHost, nil, &fakeGenerator{})

	// Act
	_, err := svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)

	// Assert
	crs := listChangeRequests(t, store, team.ID)
	require.Len(t, crs, 1)
	assert.NotContains(t, crs[0].TitleHash, "Secret")
	assert.NotContains(t, crs[0].AuthorHash, "carol")
	assert.Len(t, crs[0].TitleHash, 64)
}

func TestSyncTeam_ReopenDoesNotRevertMergedState(t *testing.T) {
	// Arrange: первый прогон видит PR влитым
	now := time.Now().UTC()
	created := now.Add(-48 * time.Hour)
	merged := now.Add(-24 * time.Hour)
	codeHost := &fakeCodeHost{
		pulls: []tracker.ChangeRequestActivity{
			{Number: 9, State: "closed", CreatedAt: timePtr(created), UpdatedAt: timePtr(merged), MergedAt: timePtr(merged)},
		},
	}
	svc, store, team := newTestService(t, codeHost, nil, &fakeGenerator{})

	_, err := svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)

	// Act: трекер вернул тот же PR переоткрытым, без merged_at
	codeHost.pulls = []tracker.ChangeRequestActivity{
		{Number: 9, State: "open", CreatedAt: timePtr(created), UpdatedAt: timePtr(now)},
	}
	_, err = svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)

	// Assert: зафиксированный переход не откатился
	crs := listChangeRequests(t, store, team.ID)
	require.Len(t, crs, 1)
	assert.Equal(t, domain.ChangeRequestStateMerged, crs[0].State)
	require.NotNil(t, crs[0].MergedAt)
	assert.WithinDuration(t, merged, *crs[0].MergedAt, time.Second)
}

func TestSyncTeam_CutoffStopsIteration(t *testing.T) {
	// Arrange: вторая запись за пределами окна, третья не должна быть тронута
	now := time.Now().UTC()
	codeHost := &fakeCodeHost{
		pulls: []tracker.ChangeRequestActivity{
			{Number: 3, CreatedAt: timePtr(now.Add(-time.Hour)), UpdatedAt: timePtr(now.Add(-time.Hour))},
			{Number: 2, CreatedAt: timePtr(now.AddDate(0, 0, -90)), UpdatedAt: timePtr(now.AddDate(0, 0, -60))},
			{Number: 1, CreatedAt: timePtr(now.AddDate(0, 0, -91)), UpdatedAt: timePtr(now.AddDate(0, 0, -61))},
		},
	}
	svc, store, team := newTestService(t, codeHost, nil, &fakeGenerator{})

	// Act
	result, err := svc.SyncTeam(context.Background(), team.ID, 30)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChangeRequests)
	assert.Len(t, listChangeRequests(t, store, team.ID), 1)
}

func TestSyncTeam_ReviewFailureTolerated(t *testing.T) {
	// Arrange
	now := time.Now().UTC()
	codeHost := &fakeCodeHost{
		pulls: []tracker.ChangeRequestActivity{
			{Number: 5, CreatedAt: timePtr(now), UpdatedAt: timePtr(now)},
		},
		reviewsErr: errors.New("rate limited"),
	}
	svc, store, team := newTestService(t, codeHost, nil, &fakeGenerator{})

	// Act
	result, err := svc.SyncTeam(context.Background(), team.ID, 30)

	// Assert: сбой ревью не роняет прогон, PR записан
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChangeRequests)
	assert.Equal(t, 0, result.Reviews)
	assert.Len(t, listChangeRequests(t, store, team.ID), 1)
}

func TestSyncTeam_TrackerFailure(t *testing.T) {
	// Arrange
	codeHost := &fakeCodeHost{iterateErr: errors.New("connection refused")}
	svc, _, team := newTestService(t, codeHost, nil, &fakeGenerator{})

	// Act
	_, err := svc.SyncTeam(context.Background(), team.ID, 30)

	// Assert
	require.Error(t, err)
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrorCodeTrackerError, derr.Code)
}

func TestSyncTeam_LockReleasedAfterRun(t *testing.T) {
	// Arrange
	svc, _, team := newTestService(t, &fakeCodeHost{}, nil, &fakeGenerator{})

	// Act: прогон (даже со сбоем трекера) освобождает блокировку
	_, err := svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)

	// Assert
	require.NoError(t, svc.Acquire(context.Background(), team.ID, domain.ActionSyncGit, "next-owner", time.Minute))
}

func TestSyncTeam_MalformedIssueTimestamps(t *testing.T) {
	// Arrange
	svc, store, team := newTestService(t, &fakeCodeHost{}, &fakeIssueTracker{
		issues: []tracker.IssueActivity{
			{Key: "PROJ-1", Status: "In Progress", IssueType: "Task", CreatedRaw: "not-a-date", UpdatedRaw: "2026-08-20T10:00:00.000+0000"},
		},
	}, &fakeGenerator{})

	seedJiraConfig(t, store, team.ID)

	// Act
	result, err := svc.SyncTeam(context.Background(), team.ID, 30)

	// Assert: мусорная метка стала nil, валидная распарсилась
	require.NoError(t, err)
	assert.Equal(t, 1, result.Issues)

	var issues []domain.Issue
	err = store.Do(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		issues, err = tx.IssueRepo().ListByTeam(ctx, team.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Nil(t, issues[0].CreatedAt)
	require.NotNil(t, issues[0].UpdatedAt)
	assert.Equal(t, 2026, issues[0].UpdatedAt.Year())
}

func TestSyncTeam_BlockedIssueFlag(t *testing.T) {
	// Arrange
	svc, store, team := newTestService(t, &fakeCodeHost{}, &fakeIssueTracker{
		issues: []tracker.IssueActivity{
			{Key: "PROJ-2", Status: "Blocked", IssueType: "Bug", Blocked: true, AssigneeName: "dave"},
		},
	}, &fakeGenerator{})

	seedJiraConfig(t, store, team.ID)

	// Act
	_, err := svc.SyncTeam(context.Background(), team.ID, 30)
	require.NoError(t, err)

	// Assert
	var issues []domain.Issue
	err = store.Do(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		issues, err = tx.IssueRepo().ListByTeam(ctx, team.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].IsBlocked)
	assert.Equal(t, privacy.HashIdentifier("dave"), issues[0].AssigneeHash)
	assert.False(t, strings.Contains(issues[0].AssigneeHash, "dave"))
}

func seedJiraConfig(t *testing.T, store storage.TxManager, teamID uint) {
	t.Helper()
	err := store.Do(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.JiraConfigRepo().Upsert(ctx, &domain.JiraConfig{
			TeamID:     teamID,
			BaseURL:    "https://jira.example.com",
			Email:      "bot@example.com",
			ProjectKey: "PROJ",
		})
	})
	require.NoError(t, err)
}

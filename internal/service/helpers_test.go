package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"emaide/internal/config"
	"emaide/internal/domain"
	"emaide/internal/storage/memory"
	"emaide/internal/tracker"
)

// fakeCodeHost отдаёт заранее подготовленные активности в порядке объявления
// (тесты готовят их в порядке убывания updated_at, как настоящий клиент)
type fakeCodeHost struct {
	pulls      []tracker.ChangeRequestActivity
	reviews    map[int][]tracker.ReviewActivity
	reviewsErr error
	iterateErr error
}

func (f *fakeCodeHost) IterateChangeRequests(_ context.Context, _, _ string, fn func(tracker.ChangeRequestActivity) error) error {
	if f.iterateErr != nil {
		return f.iterateErr
	}
	for _, act := range f.pulls {
		if err := fn(act); err != nil {
			if errors.Is(err, tracker.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (f *fakeCodeHost) ListReviews(_ context.Context, _, _ string, number int) ([]tracker.ReviewActivity, error) {
	if f.reviewsErr != nil {
		return nil, f.reviewsErr
	}
	return f.reviews[number], nil
}

type fakeIssueTracker struct {
	issues []tracker.IssueActivity
	err    error
}

func (f *fakeIssueTracker) SearchActiveIssues(_ context.Context, _ string, _ int) ([]tracker.IssueActivity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.issues, nil
}

// fakeGenerator подменяет reasoning-сервис: отдаёт заданный план или ошибку
type fakeGenerator struct {
	plan  *domain.WeeklyPlan
	err   error
	calls int
}

func (f *fakeGenerator) GenerateStructured(_ context.Context, _, _ string, out interface{}) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	target, ok := out.(*domain.WeeklyPlan)
	if !ok {
		return errors.New("unexpected output type")
	}
	*target = *f.plan
	return nil
}

func (f *fakeGenerator) Mode() string  { return "remote" }
func (f *fakeGenerator) Model() string { return "test-model" }

func validWeeklyPlan() *domain.WeeklyPlan {
	return &domain.WeeklyPlan{
		WeekStart:   "2026-08-24",
		GeneratedAt: "2026-08-28T10:00:00Z",
		TopActions: []domain.PlanAction{
			{Title: "Unblock reviews", Rationale: "Latency is high", Confidence: 0.8},
			{Title: "Split large change", Confidence: 0.7},
			{Title: "Clarify blocked work", Confidence: 0.6},
		},
		TopRisks: []domain.PlanRisk{
			{Title: "Stale work ages further", Severity: "medium", Likelihood: 0.5},
			{Title: "Risky merge", Severity: "high", Likelihood: 0.3},
			{Title: "Review bottleneck", Severity: "medium", Likelihood: 0.4},
			{Title: "Blocked issues pile up", Severity: "low", Likelihood: 0.4},
			{Title: "Scope creep", Severity: "low", Likelihood: 0.2},
		},
		Summary: "Focus on review flow.",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		ProductionType:  "debug",
		DefaultOrgName:  "acme",
		DefaultTeamName: "platform",
		GitHub: config.GitHub{
			APIBaseURL: "https://api.github.com",
			Token:      "token",
			Owner:      "acme",
			Repo:       "platform",
		},
		Sync: config.Sync{
			IntervalMinutes: 60,
			SinceDays:       30,
			LockTTL:         time.Minute,
			PlanLockTTL:     time.Minute,
		},
	}
}

// newTestService собирает сервис поверх in-memory хранилища
func newTestService(t *testing.T, codeHost tracker.CodeHostClient, issues tracker.IssueTrackerClient, gen *fakeGenerator) (*Service, *memory.Store, *domain.Team) {
	t.Helper()

	store := memory.NewStore()
	svc := New(store, testConfig(), codeHost, issues, gen)

	team, err := svc.EnsureDefaults(context.Background())
	require.NoError(t, err)
	return svc, store, team
}

func timePtr(t time.Time) *time.Time { return &t }

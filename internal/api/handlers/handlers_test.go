package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emaide/internal/api"
	"emaide/internal/config"
	"emaide/internal/domain"
	"emaide/internal/service"
	"emaide/internal/storage/memory"
	"emaide/internal/tracker"
)

type stubCodeHost struct {
	pulls []tracker.ChangeRequestActivity
}

func (s *stubCodeHost) IterateChangeRequests(_ context.Context, _, _ string, fn func(tracker.ChangeRequestActivity) error) error {
	for _, act := range s.pulls {
		if err := fn(act); err != nil {
			if errors.Is(err, tracker.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (s *stubCodeHost) ListReviews(_ context.Context, _, _ string, _ int) ([]tracker.ReviewActivity, error) {
	return nil, nil
}

type stubGenerator struct {
	err error
}

func (s *stubGenerator) GenerateStructured(_ context.Context, _, _ string, out interface{}) error {
	if s.err != nil {
		return s.err
	}
	plan := out.(*domain.WeeklyPlan)
	*plan = domain.WeeklyPlan{
		WeekStart: "2026-08-24",
		TopActions: []domain.PlanAction{
			{Title: "Unblock reviews", Confidence: 0.8},
			{Title: "Split large change", Confidence: 0.7},
			{Title: "Clarify blocked work", Confidence: 0.6},
		},
		TopRisks: []domain.PlanRisk{
			{Title: "Stale work", Severity: "medium", Likelihood: 0.5},
			{Title: "Risky merge", Severity: "high", Likelihood: 0.3},
			{Title: "Review bottleneck", Severity: "medium", Likelihood: 0.4},
			{Title: "Blocked issues", Severity: "low", Likelihood: 0.4},
			{Title: "Scope creep", Severity: "low", Likelihood: 0.2},
		},
		Summary: "Focus on review flow.",
	}
	return nil
}

func (s *stubGenerator) Mode() string  { return "remote" }
func (s *stubGenerator) Model() string { return "test-model" }

func testRouterConfig(productionType string) *config.Config {
	return &config.Config{
		ProductionType:  productionType,
		DefaultOrgName:  "acme",
		DefaultTeamName: "platform",
		GitHub: config.GitHub{
			APIBaseURL: "https://api.github.com",
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

// newTestRouter собирает полный роутер поверх in-memory хранилища
func newTestRouter(t *testing.T, cfg *config.Config, codeHost tracker.CodeHostClient, gen *stubGenerator) (*gin.Engine, *domain.Team) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.New(memory.NewStore(), cfg, codeHost, nil, gen)
	team, err := svc.EnsureDefaults(context.Background())
	require.NoError(t, err)

	handler := NewHandler(cfg, svc, svc, svc, svc)
	return handler.InitRoutes(), team
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})

	w := doRequest(router, http.MethodGet, "/api/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListTeams(t *testing.T) {
	router, team := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})

	w := doRequest(router, http.MethodGet, "/api/teams")

	require.Equal(t, http.StatusOK, w.Code)
	var teams []api.TeamResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)
	assert.Equal(t, "acme", teams[0].Org)
	assert.Equal(t, "platform", teams[0].Name)
}

func TestTeamIDValidation(t *testing.T) {
	router, _ := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})

	for _, path := range []string{
		"/api/teams/abc/metrics/latest",
		"/api/teams/0/metrics/latest",
		"/api/teams/-1/metrics/latest",
	} {
		w := doRequest(router, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, api.ErrCodeInvalidRequest, resp.Error.Code)
	}
}

func TestUnknownTeamReturns404(t *testing.T) {
	router, _ := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})

	w := doRequest(router, http.MethodGet, "/api/teams/999/git/pull-requests")

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestSyncGitEndpoint(t *testing.T) {
	// Arrange
	now := time.Now().UTC()
	merged := now.Add(-time.Hour)
	codeHost := &stubCodeHost{pulls: []tracker.ChangeRequestActivity{
		{Number: 5, Title: "Add cache", AuthorLogin: "alice", State: "closed",
			CreatedAt: &merged, UpdatedAt: &now, MergedAt: &now, Additions: 10, Deletions: 2},
	}}
	router, team := newTestRouter(t, testRouterConfig("debug"), codeHost, &stubGenerator{})

	// Act
	w := doRequest(router, http.MethodPost, "/api/teams/"+uintStr(team.ID)+"/sync/git")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.SyncResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ChangeRequests)
	assert.Equal(t, 0, resp.Issues)
}

func TestMetricsEndpoints(t *testing.T) {
	router, team := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})
	base := "/api/teams/" + uintStr(team.ID)

	// Снапшот пустой команды пишет все метрики нулями
	w := doRequest(router, http.MethodPost, base+"/metrics/snapshot")
	require.Equal(t, http.StatusOK, w.Code)
	var snap api.SnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 10, snap.Upserts)

	w = doRequest(router, http.MethodGet, base+"/metrics/latest")
	require.Equal(t, http.StatusOK, w.Code)
	var latest []api.MetricResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &latest))
	assert.Len(t, latest, 10)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), latest[0].AsOfDate)
}

func TestPlanEndpoints(t *testing.T) {
	router, team := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})
	base := "/api/teams/" + uintStr(team.ID)

	// До первого прогона плана нет
	w := doRequest(router, http.MethodGet, base+"/plan/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Запуск
	w = doRequest(router, http.MethodPost, base+"/plan/run")
	require.Equal(t, http.StatusOK, w.Code)
	var run api.PlanRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "2026-08-24", run.WeekStart)

	// Последний план содержит сгенерированный контент
	w = doRequest(router, http.MethodGet, base+"/plan/latest")
	require.Equal(t, http.StatusOK, w.Code)
	var plan api.PlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, run.WeeklyPlanID, plan.WeeklyPlanID)

	var weekly domain.WeeklyPlan
	require.NoError(t, json.Unmarshal(plan.Plan, &weekly))
	assert.Len(t, weekly.TopActions, 3)

	// Запись о вызове reasoning-сервиса видна в списке
	w = doRequest(router, http.MethodGet, base+"/llm/runs")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []api.AgentRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "ok", runs[0].Status)
}

func TestPlanRunFailureReturns502(t *testing.T) {
	router, team := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{err: errors.New("model unavailable")})

	w := doRequest(router, http.MethodPost, "/api/teams/"+uintStr(team.ID)+"/plan/run")

	require.Equal(t, http.StatusBadGateway, w.Code)
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AGENT_ERROR", resp.Error.Code)
}

func TestContextPreviewGatedByEnvironment(t *testing.T) {
	// В debug окружении превью доступно после прогона плана
	router, team := newTestRouter(t, testRouterConfig("debug"), &stubCodeHost{}, &stubGenerator{})
	base := "/api/teams/" + uintStr(team.ID)

	w := doRequest(router, http.MethodPost, base+"/plan/run")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, base+"/llm/context/preview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"org":"acme"`)

	// В prod окружении превью закрыто
	prodRouter, prodTeam := newTestRouter(t, testRouterConfig("prod"), &stubCodeHost{}, &stubGenerator{})
	w = doRequest(prodRouter, http.MethodGet, "/api/teams/"+uintStr(prodTeam.ID)+"/llm/context/preview")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPullRequestsEndpoint(t *testing.T) {
	// Arrange: один синхронизированный PR
	now := time.Now().UTC()
	codeHost := &stubCodeHost{pulls: []tracker.ChangeRequestActivity{
		{Number: 11, Title: "Fix race", AuthorLogin: "alice", State: "open", CreatedAt: &now, UpdatedAt: &now},
	}}
	router, team := newTestRouter(t, testRouterConfig("debug"), codeHost, &stubGenerator{})
	base := "/api/teams/" + uintStr(team.ID)

	w := doRequest(router, http.MethodPost, base+"/sync/git")
	require.Equal(t, http.StatusOK, w.Code)

	// Act
	w = doRequest(router, http.MethodGet, base+"/git/pull-requests")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var resp []api.RepoPullRequestsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "acme", resp[0].Owner)
	assert.Equal(t, "platform", resp[0].Repo)
	assert.Equal(t, []int{11}, resp[0].PullRequests)
	assert.Equal(t, "https://github.com", resp[0].WebBaseURL)
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

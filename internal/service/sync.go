package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"emaide/internal/domain"
	"emaide/internal/logger"
	"emaide/internal/metrics"
	"emaide/internal/privacy"
	"emaide/internal/storage"
	"emaide/internal/tracker"
)

// jiraMaxResults - предел выборки задач за один прогон синхронизации
const jiraMaxResults = 200

// SyncTeam подтягивает change requests, ревью и задачи команды.
// Операция at-least-once и идемпотентна: каждая запись upsert-ится по
// естественному ключу и коммитится отдельно, поэтому падение посреди
// прогона теряет максимум одну запись, а не весь прогон.
func (s *Service) SyncTeam(outerCtx context.Context, teamID uint, sinceDays int) (*domain.SyncResult, error) {
	const op = "service.SyncTeam"
	requestID := logger.GetRequestID(outerCtx)

	if sinceDays <= 0 {
		sinceDays = s.cfg.Sync.SinceDays
	}

	lockOwner := uuid.NewString()
	if err := s.Acquire(outerCtx, teamID, domain.ActionSyncGit, lockOwner, s.cfg.Sync.LockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.Release(context.WithoutCancel(outerCtx), teamID, domain.ActionSyncGit); err != nil {
			log.Error().Err(err).
				Str("request_id", requestID).
				Str("layer", "service").
				Uint("team_id", teamID).
				Msg("failed to release sync lock")
		}
	}()

	start := time.Now()
	log.Info().
		Str("request_id", requestID).
		Str("layer", "service").
		Uint("team_id", teamID).
		Int("since_days", sinceDays).
		Msg("starting team sync")

	var repos []domain.RepoRef
	var jiraCfg *domain.JiraConfig
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		repos, err = tx.RepoRefRepo().ListByTeam(ctx, teamID)
		if err != nil {
			return err
		}
		jiraCfg, err = tx.JiraConfigRepo().GetByTeam(ctx, teamID)
		if errors.Is(err, storage.ErrNotFound) {
			jiraCfg = nil
			return nil
		}
		return err
	})
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		return nil, s.formatError(outerCtx, op, err)
	}

	result := &domain.SyncResult{}
	cutoff := time.Now().UTC().AddDate(0, 0, -sinceDays)

	for _, repo := range repos {
		if !strings.EqualFold(repo.ProviderName, "github") {
			log.Warn().
				Str("request_id", requestID).
				Str("layer", "service").
				Str("provider", repo.ProviderName).
				Msg("skipping repo with unsupported provider")
			continue
		}
		if err := s.syncRepo(outerCtx, teamID, repo, cutoff, result); err != nil {
			metrics.SyncRunsTotal.WithLabelValues("error").Inc()
			return nil, s.formatError(outerCtx, op,
				domain.WrapError(err, http.StatusBadGateway, domain.ErrorCodeTrackerError, "code host sync failed"))
		}
	}

	if jiraCfg != nil && s.issues != nil {
		if err := s.syncIssues(outerCtx, teamID, jiraCfg, result); err != nil {
			metrics.SyncRunsTotal.WithLabelValues("error").Inc()
			return nil, s.formatError(outerCtx, op,
				domain.WrapError(err, http.StatusBadGateway, domain.ErrorCodeTrackerError, "issue tracker sync failed"))
		}
	}

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	log.Info().
		Str("request_id", requestID).
		Str("layer", "service").
		Uint("team_id", teamID).
		Int("change_requests", result.ChangeRequests).
		Int("reviews", result.Reviews).
		Int("issues", result.Issues).
		Dur("elapsed", time.Since(start)).
		Msg("team sync finished")
	return result, nil
}

// syncRepo перебирает change requests одного репозитория от самых свежих
// к старым и останавливается на первой записи за пределами окна.
func (s *Service) syncRepo(ctx context.Context, teamID uint, repo domain.RepoRef, cutoff time.Time, result *domain.SyncResult) error {
	trackerStart := time.Now()
	err := s.codeHost.IterateChangeRequests(ctx, repo.Owner, repo.Repo, func(act tracker.ChangeRequestActivity) error {
		if act.UpdatedAt != nil && act.UpdatedAt.Before(cutoff) {
			return tracker.ErrStop
		}
		if err := s.upsertChangeRequest(ctx, teamID, repo.ID, act); err != nil {
			return err
		}
		result.ChangeRequests++
		metrics.SyncItemsTotal.WithLabelValues("change_request").Inc()

		// Ревью best-effort: сбой загрузки ревью одного PR не роняет прогон
		result.Reviews += s.syncReviews(ctx, teamID, repo, act.Number)
		return nil
	})
	metrics.TrackerRequestDuration.WithLabelValues("github").Observe(time.Since(trackerStart).Seconds())
	return err
}

// upsertChangeRequest хэширует идентифицирующие поля и upsert-ит запись
// в отдельной транзакции
func (s *Service) upsertChangeRequest(outerCtx context.Context, teamID, repoRefID uint, act tracker.ChangeRequestActivity) error {
	now := time.Now().UTC()
	createdAt := now
	if act.CreatedAt != nil {
		createdAt = act.CreatedAt.UTC()
	}
	author := act.AuthorLogin
	if author == "" {
		author = "unknown"
	}

	cr := &domain.ChangeRequest{
		TeamID:       teamID,
		RepoRefID:    repoRefID,
		Number:       act.Number,
		TitleHash:    privacy.HashIdentifier(act.Title),
		AuthorHash:   privacy.HashIdentifier(author),
		State:        mapChangeRequestState(act),
		CreatedAt:    createdAt,
		MergedAt:     act.MergedAt,
		ClosedAt:     act.ClosedAt,
		Additions:    act.Additions,
		Deletions:    act.Deletions,
		ChangedFiles: act.ChangedFiles,
		SyncedAt:     now,
	}
	return s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		return tx.ChangeRequestRepo().Upsert(ctx, cr)
	})
}

// syncReviews загружает и upsert-ит ревью одного change request.
// Возвращает количество записанных ревью; любые ошибки логируются и глотаются.
func (s *Service) syncReviews(outerCtx context.Context, teamID uint, repo domain.RepoRef, number int) int {
	reviews, err := s.codeHost.ListReviews(outerCtx, repo.Owner, repo.Repo, number)
	if err != nil {
		log.Warn().Err(err).
			Str("layer", "service").
			Uint("team_id", teamID).
			Int("number", number).
			Msg("failed to list reviews, skipping")
		return 0
	}

	count := 0
	for _, rv := range reviews {
		if rv.SubmittedAt == nil {
			continue
		}
		reviewer := rv.ReviewerLogin
		if reviewer == "" {
			reviewer = "unknown"
		}
		state := rv.State
		if state == "" {
			state = "COMMENTED"
		}
		row := &domain.Review{
			TeamID:       teamID,
			RepoRefID:    repo.ID,
			Number:       number,
			ReviewerHash: privacy.HashIdentifier(reviewer),
			State:        state,
			SubmittedAt:  rv.SubmittedAt.UTC(),
		}
		err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
			return tx.ReviewRepo().Upsert(ctx, row)
		})
		if err != nil {
			log.Warn().Err(err).
				Str("layer", "service").
				Uint("team_id", teamID).
				Int("number", number).
				Msg("failed to upsert review, skipping")
			continue
		}
		count++
		metrics.SyncItemsTotal.WithLabelValues("review").Inc()
	}
	return count
}

// syncIssues подтягивает активные задачи issue tracker-а
func (s *Service) syncIssues(outerCtx context.Context, teamID uint, cfg *domain.JiraConfig, result *domain.SyncResult) error {
	trackerStart := time.Now()
	issues, err := s.issues.SearchActiveIssues(outerCtx, cfg.ProjectKey, jiraMaxResults)
	metrics.TrackerRequestDuration.WithLabelValues("jira").Observe(time.Since(trackerStart).Seconds())
	if err != nil {
		return err
	}

	for _, act := range issues {
		var assigneeHash string
		if act.AssigneeName != "" {
			assigneeHash = privacy.HashIdentifier(act.AssigneeName)
		}
		row := &domain.Issue{
			TeamID:       teamID,
			Key:          act.Key,
			Status:       act.Status,
			IssueType:    act.IssueType,
			Priority:     act.Priority,
			AssigneeHash: assigneeHash,
			CreatedAt:    parseIssueTime(act.Key, "created", act.CreatedRaw),
			UpdatedAt:    parseIssueTime(act.Key, "updated", act.UpdatedRaw),
			DueDate:      act.DueDate,
			IsBlocked:    act.Blocked,
		}
		err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
			return tx.IssueRepo().Upsert(ctx, row)
		})
		if err != nil {
			return err
		}
		result.Issues++
		metrics.SyncItemsTotal.WithLabelValues("issue").Inc()
	}
	return nil
}

// issueTimeLayouts - форматы временных меток, встречающиеся у Jira-подобных
// трекеров. Смещение без двоеточия не покрывается RFC3339.
var issueTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

// parseIssueTime разбирает сырую временную метку задачи. Мусорное значение
// логируется и превращается в nil, не роняя синхронизацию.
func parseIssueTime(key, field, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range issueTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			u := t.UTC()
			return &u
		}
	}
	log.Warn().
		Str("layer", "service").
		Str("issue_key", key).
		Str("field", field).
		Str("raw", raw).
		Msg("failed to parse issue timestamp")
	return nil
}

// mapChangeRequestState выводит состояние записи из активности трекера
func mapChangeRequestState(act tracker.ChangeRequestActivity) domain.ChangeRequestState {
	if act.MergedAt != nil {
		return domain.ChangeRequestStateMerged
	}
	if act.ClosedAt != nil {
		return domain.ChangeRequestStateClosed
	}
	return domain.ChangeRequestStateOpen
}

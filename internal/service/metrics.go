package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"emaide/internal/domain"
	"emaide/internal/logger"
	"emaide/internal/metrics"
	"emaide/internal/storage"
)

// Пороговые значения метрик
const (
	staleAgeDays       = 7.0
	lowCoverageAgeDays = 1.0
	megaSizeThreshold  = 2000
	secondsPerHour     = 3600.0
	secondsPerDay      = 86400.0
)

// wipStatuses - статусы задач, считающиеся работой в процессе
var wipStatuses = map[string]struct{}{
	"in progress":  {},
	"doing":        {},
	"development":  {},
	"implementing": {},
}

// reviewKey - каноническая идентичность ревью внутри команды
type reviewKey struct {
	RepoRefID uint
	Number    int
}

// Compute считает фиксированный набор метрик команды по локальным записям.
// Детерминирован: никаких обращений к внешним трекерам.
func (s *Service) Compute(outerCtx context.Context, teamID uint) (map[string]float64, error) {
	const op = "service.ComputeMetrics"

	var crs []domain.ChangeRequest
	var reviews []domain.Review
	var issues []domain.Issue
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if crs, err = tx.ChangeRequestRepo().ListByTeam(ctx, teamID); err != nil {
			return err
		}
		if reviews, err = tx.ReviewRepo().ListByTeam(ctx, teamID); err != nil {
			return err
		}
		issues, err = tx.IssueRepo().ListByTeam(ctx, teamID)
		return err
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}

	return computeMetrics(crs, reviews, issues, time.Now().UTC()), nil
}

// computeMetrics - чистая функция агрегации
func computeMetrics(crs []domain.ChangeRequest, reviews []domain.Review, issues []domain.Issue, now time.Time) map[string]float64 {
	reviewsByCR := make(map[reviewKey][]domain.Review)
	for _, rv := range reviews {
		k := reviewKey{RepoRefID: rv.RepoRefID, Number: rv.Number}
		reviewsByCR[k] = append(reviewsByCR[k], rv)
	}

	var cycleHours []float64
	var firstReviewLatencyHours []float64
	openCount := 0
	staleCount := 0
	megaCount := 0
	lowCoverageCount := 0

	for i := range crs {
		cr := &crs[i]
		isOpen := cr.IsOpen()
		if isOpen {
			openCount++
		}

		if cr.MergedAt != nil {
			cycleHours = append(cycleHours, cr.MergedAt.Sub(cr.CreatedAt).Seconds()/secondsPerHour)
		}

		ageDays := now.Sub(cr.CreatedAt).Seconds() / secondsPerDay
		if isOpen && ageDays > staleAgeDays {
			staleCount++
		}
		if cr.Size() >= megaSizeThreshold {
			megaCount++
		}

		crReviews := reviewsByCR[reviewKey{RepoRefID: cr.RepoRefID, Number: cr.Number}]
		if len(crReviews) > 0 {
			first := crReviews[0]
			for _, rv := range crReviews[1:] {
				if rv.SubmittedAt.Before(first.SubmittedAt) {
					first = rv
				}
			}
			firstReviewLatencyHours = append(firstReviewLatencyHours, first.SubmittedAt.Sub(cr.CreatedAt).Seconds()/secondsPerHour)
		} else if isOpen && ageDays > lowCoverageAgeDays {
			lowCoverageCount++
		}
	}

	blocked := 0
	wip := 0
	for _, iss := range issues {
		if iss.IsBlocked {
			blocked++
		}
		if _, ok := wipStatuses[strings.ToLower(iss.Status)]; ok {
			wip++
		}
	}
	blockedRate := 0.0
	if len(issues) > 0 {
		blockedRate = float64(blocked) / float64(len(issues))
	}

	return map[string]float64{
		"pr_count":                          float64(len(crs)),
		"pr_open_count":                     float64(openCount),
		"pr_avg_cycle_hours":                mean(cycleHours),
		"pr_avg_first_review_latency_hours": mean(firstReviewLatencyHours),
		"pr_stale_count":                    float64(staleCount),
		"pr_mega_count":                     float64(megaCount),
		"pr_low_review_coverage_count":      float64(lowCoverageCount),
		"jira_blocked_rate":                 blockedRate,
		"jira_wip_count":                    float64(wip),
		"jira_issue_count":                  float64(len(issues)),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Snapshot считает метрики и upsert-ит по строке на имя за дату asOf.
// Повторный вызов за ту же дату перезаписывает значения, не создавая дублей.
func (s *Service) Snapshot(outerCtx context.Context, teamID uint, asOf time.Time) (int, error) {
	const op = "service.SnapshotMetrics"
	requestID := logger.GetRequestID(outerCtx)

	values, err := s.Compute(outerCtx, teamID)
	if err != nil {
		metrics.SnapshotRunsTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	asOfDate := truncateToDate(asOf)
	upserts := 0
	err = s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		for name, value := range values {
			snap := &domain.MetricSnapshot{
				TeamID:   teamID,
				AsOfDate: asOfDate,
				Name:     name,
				Value:    value,
			}
			if err := tx.MetricRepo().Upsert(ctx, snap); err != nil {
				return err
			}
			upserts++
		}
		return nil
	})
	if err != nil {
		metrics.SnapshotRunsTotal.WithLabelValues("error").Inc()
		return 0, s.formatError(outerCtx, op, err)
	}

	metrics.SnapshotRunsTotal.WithLabelValues("success").Inc()
	log.Info().
		Str("request_id", requestID).
		Str("layer", "service").
		Uint("team_id", teamID).
		Time("as_of", asOfDate).
		Int("upserts", upserts).
		Msg("metric snapshot written")
	return upserts, nil
}

// LatestSnapshots возвращает последние снапшоты команды, новые даты первыми
func (s *Service) LatestSnapshots(outerCtx context.Context, teamID uint, limit int) ([]domain.MetricSnapshot, error) {
	const op = "service.LatestSnapshots"

	var snaps []domain.MetricSnapshot
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		snaps, err = tx.MetricRepo().LatestByTeam(ctx, teamID, limit)
		return err
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}
	return snaps, nil
}

// truncateToDate отбрасывает время, оставляя дату в UTC
func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

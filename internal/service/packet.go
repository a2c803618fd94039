package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

// Пределы выборки сущностей контекстного пакета
const (
	packetSnapshotLimit = 50
	packetSelectLimit   = 200
	packetPRLimit       = 40
	packetIssueLimit    = 40
	packetEntityCap     = 60
)

// packetGoals - фиксированные цели недели в пакете
var packetGoals = []string{
	"Improve delivery predictability this week",
	"Reduce PR review latency and avoid risky merges",
}

// Build собирает санитизированный контекстный пакет команды.
// Гарантия: результат не содержит ни одной сырой строки из внешних систем -
// только хэши, счётчики, состояния и перечислимые флаги.
func (s *Service) Build(outerCtx context.Context, teamID uint) (*domain.ContextPacket, error) {
	const op = "service.BuildPacket"

	var team *domain.Team
	var snaps []domain.MetricSnapshot
	var crs []domain.ChangeRequest
	var reviews []domain.Review
	var issues []domain.Issue
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if team, err = tx.TeamRepo().GetByID(ctx, teamID); err != nil {
			return err
		}
		if snaps, err = tx.MetricRepo().LatestByTeam(ctx, teamID, packetSnapshotLimit); err != nil {
			return err
		}
		if crs, err = tx.ChangeRequestRepo().ListByTeamOldestFirst(ctx, teamID, packetSelectLimit); err != nil {
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

	now := time.Now().UTC()
	packet := &domain.ContextPacket{
		Org:      team.OrgName,
		Team:     team.Name,
		AsOf:     now,
		Goals:    packetGoals,
		Signals:  buildSignals(snaps),
		Entities: buildEntities(crs, reviews, issues, now),
		History:  map[string]interface{}{},
	}
	return packet, nil
}

// buildSignals берёт снапшоты последней присутствующей даты и переводит
// их в именованные сигналы. Единица выводится из имени метрики.
func buildSignals(snaps []domain.MetricSnapshot) []domain.Signal {
	signals := make([]domain.Signal, 0, len(snaps))
	if len(snaps) == 0 {
		return signals
	}

	latest := snaps[0].AsOfDate
	for _, s := range snaps {
		if !s.AsOfDate.Equal(latest) {
			continue
		}
		unit := "count"
		if strings.Contains(s.Name, "rate") {
			unit = "ratio"
		} else if strings.Contains(s.Name, "avg") {
			unit = "hours"
		}
		signals = append(signals, domain.Signal{Name: s.Name, Value: s.Value, Unit: unit})
	}
	return signals
}

// buildEntities выводит флаги и собирает санитизированные ссылки на
// change requests и задачи
func buildEntities(crs []domain.ChangeRequest, reviews []domain.Review, issues []domain.Issue, now time.Time) []domain.EntityRef {
	reviewed := make(map[reviewKey]struct{}, len(reviews))
	for _, rv := range reviews {
		reviewed[reviewKey{RepoRefID: rv.RepoRefID, Number: rv.Number}] = struct{}{}
	}

	entities := make([]domain.EntityRef, 0, packetPRLimit+packetIssueLimit)
	for i := range crs {
		if i >= packetPRLimit {
			break
		}
		cr := &crs[i]
		ageDays := now.Sub(cr.CreatedAt).Seconds() / secondsPerDay
		size := float64(cr.Size())

		var flags []string
		if cr.IsOpen() && ageDays > staleAgeDays {
			flags = append(flags, domain.FlagStalePR)
		}
		if size >= megaSizeThreshold {
			flags = append(flags, domain.FlagMegaPR)
		}
		if cr.IsOpen() && ageDays > lowCoverageAgeDays {
			if _, ok := reviewed[reviewKey{RepoRefID: cr.RepoRefID, Number: cr.Number}]; !ok {
				flags = append(flags, domain.FlagNeedsReview)
			}
		}

		rounded := round2(ageDays)
		entities = append(entities, domain.EntityRef{
			Kind:    domain.EntityKindPR,
			ID:      fmt.Sprintf("PR-%d", cr.Number),
			State:   string(cr.State),
			AgeDays: &rounded,
			Size:    &size,
			Flags:   flags,
		})
	}

	issueCount := len(issues)
	if issueCount > packetIssueLimit {
		issueCount = packetIssueLimit
	}
	for _, iss := range issues[:issueCount] {
		var ageDays *float64
		if iss.UpdatedAt != nil {
			v := round2(now.Sub(*iss.UpdatedAt).Seconds() / secondsPerDay)
			ageDays = &v
		}
		var flags []string
		if iss.IsBlocked {
			flags = append(flags, domain.FlagBlocked)
		}
		entities = append(entities, domain.EntityRef{
			Kind:    domain.EntityKindIssue,
			ID:      iss.Key,
			State:   iss.Status,
			AgeDays: ageDays,
			Size:    nil,
			Flags:   flags,
		})
	}

	if len(entities) > packetEntityCap {
		entities = entities[:packetEntityCap]
	}
	return entities
}

// round2 округляет до двух знаков после запятой
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

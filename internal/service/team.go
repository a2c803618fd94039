package service

import (
	"context"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

// ListTeams возвращает все команды
func (s *Service) ListTeams(outerCtx context.Context) ([]domain.Team, error) {
	const op = "service.ListTeams"

	var teams []domain.Team
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		teams, err = tx.TeamRepo().List(ctx)
		return err
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}
	return teams, nil
}

// GetTeamPullRequests возвращает номера PR команды, сгруппированные по репозиторию
func (s *Service) GetTeamPullRequests(outerCtx context.Context, teamID uint) ([]domain.TeamPullRequests, error) {
	const op = "service.GetTeamPullRequests"

	var groups []domain.TeamPullRequests
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.TeamRepo().GetByID(ctx, teamID); err != nil {
			return err
		}
		repos, err := tx.RepoRefRepo().ListByTeam(ctx, teamID)
		if err != nil {
			return err
		}
		crs, err := tx.ChangeRequestRepo().ListByTeam(ctx, teamID)
		if err != nil {
			return err
		}

		numbersByRepo := make(map[uint][]int, len(repos))
		for _, cr := range crs {
			numbersByRepo[cr.RepoRefID] = append(numbersByRepo[cr.RepoRefID], cr.Number)
		}
		groups = make([]domain.TeamPullRequests, 0, len(repos))
		for _, repo := range repos {
			groups = append(groups, domain.TeamPullRequests{
				RepoRefID:  repo.ID,
				Owner:      repo.Owner,
				Repo:       repo.Repo,
				APIBaseURL: repo.APIBaseURL,
				Numbers:    numbersByRepo[repo.ID],
			})
		}
		return nil
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}
	return groups, nil
}

// ListAgentRuns возвращает записи вызовов reasoning-сервиса, новые первыми
func (s *Service) ListAgentRuns(outerCtx context.Context, teamID uint, limit int) ([]domain.AgentRun, error) {
	const op = "service.ListAgentRuns"

	var runs []domain.AgentRun
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		runs, err = tx.AgentRunRepo().ListByTeam(ctx, teamID, limit)
		return err
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}
	return runs, nil
}

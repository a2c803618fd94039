package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

// EnsureDefaults создаёт организацию, команду, git-провайдера и конфигурации
// трекеров по умолчанию из конфига. Идемпотентна: повторный запуск процесса
// переиспользует существующие записи и обновляет конфигурации.
func (s *Service) EnsureDefaults(outerCtx context.Context) (*domain.Team, error) {
	const op = "service.EnsureDefaults"

	var team *domain.Team
	err := s.txmgr.Do(outerCtx, func(ctx context.Context, tx storage.Tx) error {
		org, err := tx.OrgRepo().GetOrCreate(ctx, s.cfg.DefaultOrgName)
		if err != nil {
			return err
		}
		team, err = tx.TeamRepo().GetOrCreate(ctx, org.ID, s.cfg.DefaultTeamName)
		if err != nil {
			return err
		}

		provider, err := tx.RepoRefRepo().EnsureProvider(ctx, "GitHub", "https://api.github.com")
		if err != nil {
			return err
		}
		ref := &domain.RepoRef{
			TeamID:        team.ID,
			GitProviderID: provider.ID,
			APIBaseURL:    s.cfg.GitHub.APIBaseURL,
			TokenPresent:  s.cfg.GitHub.Token != "",
			Owner:         s.cfg.GitHub.Owner,
			Repo:          s.cfg.GitHub.Repo,
		}
		if err := tx.RepoRefRepo().Upsert(ctx, ref); err != nil {
			return err
		}

		if s.cfg.JiraConfigured() {
			jc := &domain.JiraConfig{
				TeamID:       team.ID,
				BaseURL:      s.cfg.Jira.BaseURL,
				Email:        s.cfg.Jira.Email,
				TokenPresent: s.cfg.Jira.APIToken != "",
				ProjectKey:   s.cfg.Jira.ProjectKey,
				BoardID:      s.cfg.Jira.BoardID,
			}
			if err := tx.JiraConfigRepo().Upsert(ctx, jc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.formatError(outerCtx, op, err)
	}

	log.Info().
		Str("layer", "service").
		Uint("team_id", team.ID).
		Str("org", s.cfg.DefaultOrgName).
		Str("team", s.cfg.DefaultTeamName).
		Bool("jira_configured", s.cfg.JiraConfigured()).
		Msg("default org and team ensured")
	return team, nil
}

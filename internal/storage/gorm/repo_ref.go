package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type repoRefRepository struct {
	db *gorm.DB
}

// NewRepoRefRepository создаёт новый репозиторий ссылок на репозитории
func NewRepoRefRepository(db *gorm.DB) storage.RepoRefRepository {
	return &repoRefRepository{db: db}
}

// ListByTeam возвращает все репозитории команды
func (r *repoRefRepository) ListByTeam(ctx context.Context, teamID uint) ([]domain.RepoRef, error) {
	var dbRefs []RepoRef
	if err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Order("id").Find(&dbRefs).Error; err != nil {
		return nil, err
	}

	refs := make([]domain.RepoRef, len(dbRefs))
	for i, ref := range dbRefs {
		var provider GitProvider
		providerName := ""
		if err := r.db.WithContext(ctx).First(&provider, "id = ?", ref.GitProviderID).Error; err == nil {
			providerName = provider.Name
		}
		refs[i] = domain.RepoRef{
			ID:            ref.ID,
			TeamID:        ref.TeamID,
			GitProviderID: ref.GitProviderID,
			ProviderName:  providerName,
			APIBaseURL:    ref.APIBaseURL,
			TokenPresent:  ref.TokenPresent,
			Owner:         ref.Owner,
			Repo:          ref.Repo,
		}
	}
	return refs, nil
}

// Upsert создаёт или обновляет ссылку по ключу (team, api_base_url, owner, repo)
func (r *repoRefRepository) Upsert(ctx context.Context, ref *domain.RepoRef) error {
	var existing RepoRef
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND api_base_url = ? AND owner = ? AND repo = ?",
			ref.TeamID, ref.APIBaseURL, ref.Owner, ref.Repo).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbRef := RepoRef{
			TeamID:        ref.TeamID,
			GitProviderID: ref.GitProviderID,
			APIBaseURL:    ref.APIBaseURL,
			TokenPresent:  ref.TokenPresent,
			Owner:         ref.Owner,
			Repo:          ref.Repo,
		}
		if err := r.db.WithContext(ctx).Create(&dbRef).Error; err != nil {
			return err
		}
		ref.ID = dbRef.ID
		return nil
	}
	if err != nil {
		return err
	}

	existing.GitProviderID = ref.GitProviderID
	existing.TokenPresent = ref.TokenPresent
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	ref.ID = existing.ID
	return nil
}

// EnsureProvider возвращает git-провайдера по имени, создавая при отсутствии
func (r *repoRefRepository) EnsureProvider(ctx context.Context, name, apiBaseURL string) (*domain.GitProvider, error) {
	var dbProvider GitProvider
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&dbProvider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbProvider = GitProvider{Name: name, APIBaseURL: apiBaseURL}
		if err := r.db.WithContext(ctx).Create(&dbProvider).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return &domain.GitProvider{
		ID:         dbProvider.ID,
		Name:       dbProvider.Name,
		APIBaseURL: dbProvider.APIBaseURL,
	}, nil
}

type jiraConfigRepository struct {
	db *gorm.DB
}

// NewJiraConfigRepository создаёт новый репозиторий конфигураций issue tracker
func NewJiraConfigRepository(db *gorm.DB) storage.JiraConfigRepository {
	return &jiraConfigRepository{db: db}
}

// GetByTeam возвращает конфигурацию команды или ErrNotFound
func (r *jiraConfigRepository) GetByTeam(ctx context.Context, teamID uint) (*domain.JiraConfig, error) {
	var dbCfg JiraConfig
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).First(&dbCfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &domain.JiraConfig{
		ID:           dbCfg.ID,
		TeamID:       dbCfg.TeamID,
		BaseURL:      dbCfg.BaseURL,
		Email:        dbCfg.Email,
		TokenPresent: dbCfg.TokenPresent,
		ProjectKey:   dbCfg.ProjectKey,
		BoardID:      dbCfg.BoardID,
	}, nil
}

// Upsert создаёт или обновляет конфигурацию (не более одной на команду)
func (r *jiraConfigRepository) Upsert(ctx context.Context, cfg *domain.JiraConfig) error {
	var existing JiraConfig
	err := r.db.WithContext(ctx).Where("team_id = ?", cfg.TeamID).First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbCfg := JiraConfig{
			TeamID:       cfg.TeamID,
			BaseURL:      cfg.BaseURL,
			Email:        cfg.Email,
			TokenPresent: cfg.TokenPresent,
			ProjectKey:   cfg.ProjectKey,
			BoardID:      cfg.BoardID,
		}
		if err := r.db.WithContext(ctx).Create(&dbCfg).Error; err != nil {
			return err
		}
		cfg.ID = dbCfg.ID
		return nil
	}
	if err != nil {
		return err
	}

	existing.BaseURL = cfg.BaseURL
	existing.Email = cfg.Email
	existing.TokenPresent = cfg.TokenPresent
	existing.ProjectKey = cfg.ProjectKey
	existing.BoardID = cfg.BoardID
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return err
	}
	cfg.ID = existing.ID
	return nil
}

package gorm

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

type orgRepository struct {
	db *gorm.DB
}

// NewOrgRepository создаёт новый репозиторий организаций
func NewOrgRepository(db *gorm.DB) storage.OrgRepository {
	return &orgRepository{db: db}
}

// GetOrCreate возвращает организацию по имени, создавая её при отсутствии
func (r *orgRepository) GetOrCreate(ctx context.Context, name string) (*domain.Org, error) {
	var dbOrg Org
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&dbOrg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbOrg = Org{Name: name}
		if err := r.db.WithContext(ctx).Create(&dbOrg).Error; err != nil {
			return nil, err
		}
		log.Info().
			Str("layer", "storage").
			Str("org", name).
			Msg("created org")
	} else if err != nil {
		return nil, err
	}

	return &domain.Org{
		ID:        dbOrg.ID,
		Name:      dbOrg.Name,
		CreatedAt: dbOrg.CreatedAt,
	}, nil
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository создаёт новый репозиторий команд
func NewTeamRepository(db *gorm.DB) storage.TeamRepository {
	return &teamRepository{db: db}
}

// GetByID возвращает команду по ID вместе с именем организации
func (r *teamRepository) GetByID(ctx context.Context, teamID uint) (*domain.Team, error) {
	var dbTeam Team
	err := r.db.WithContext(ctx).First(&dbTeam, "id = ?", teamID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var dbOrg Org
	if err := r.db.WithContext(ctx).First(&dbOrg, "id = ?", dbTeam.OrgID).Error; err != nil {
		return nil, err
	}

	return &domain.Team{
		ID:        dbTeam.ID,
		OrgID:     dbTeam.OrgID,
		OrgName:   dbOrg.Name,
		Name:      dbTeam.Name,
		CreatedAt: dbTeam.CreatedAt,
	}, nil
}

// GetOrCreate возвращает команду по (org, name), создавая при отсутствии
func (r *teamRepository) GetOrCreate(ctx context.Context, orgID uint, name string) (*domain.Team, error) {
	var dbTeam Team
	err := r.db.WithContext(ctx).Where("org_id = ? AND name = ?", orgID, name).First(&dbTeam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dbTeam = Team{OrgID: orgID, Name: name}
		if err := r.db.WithContext(ctx).Create(&dbTeam).Error; err != nil {
			return nil, err
		}
		log.Info().
			Str("layer", "storage").
			Str("team", name).
			Msg("created team")
	} else if err != nil {
		return nil, err
	}

	return &domain.Team{
		ID:        dbTeam.ID,
		OrgID:     dbTeam.OrgID,
		Name:      dbTeam.Name,
		CreatedAt: dbTeam.CreatedAt,
	}, nil
}

// List возвращает все команды
func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	var dbTeams []Team
	if err := r.db.WithContext(ctx).Order("id").Find(&dbTeams).Error; err != nil {
		return nil, err
	}

	teams := make([]domain.Team, len(dbTeams))
	for i, t := range dbTeams {
		teams[i] = domain.Team{
			ID:        t.ID,
			OrgID:     t.OrgID,
			Name:      t.Name,
			CreatedAt: t.CreatedAt,
		}
	}
	return teams, nil
}

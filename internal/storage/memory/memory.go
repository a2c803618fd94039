// Package memory реализует storage поверх обычных срезов в памяти.
// Контракты те же, что у Postgres-реализации: уникальные ключи,
// конфликт вставки блокировки, откат транзакции при ошибке.
// Используется юнит-тестами пайплайна; спецификации достаточно любого
// хранилища с уникальным ключом и read-modify-delete.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"emaide/internal/domain"
	"emaide/internal/storage"
)

// Store - потокобезопасное хранилище в памяти
type Store struct {
	mu   sync.Mutex
	seq  uint
	data data
}

type data struct {
	orgs           []domain.Org
	teams          []domain.Team
	providers      []domain.GitProvider
	repoRefs       []domain.RepoRef
	jiraConfigs    []domain.JiraConfig
	changeRequests []domain.ChangeRequest
	reviews        []domain.Review
	issues         []domain.Issue
	metrics        []domain.MetricSnapshot
	packets        []domain.ContextPacketRecord
	agentRuns      []domain.AgentRun
	plans          []domain.Plan
	locks          []domain.ActionLock
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{}
}

var _ storage.TxManager = (*Store)(nil)

// Do выполняет fn под общим мьютексом; при ошибке состояние откатывается
// к снимку, сделанному перед вызовом.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	seq := s.seq

	if err := fn(ctx, &tx{store: s}); err != nil {
		s.data = snapshot
		s.seq = seq
		return err
	}
	return nil
}

func (d data) clone() data {
	return data{
		orgs:           append([]domain.Org(nil), d.orgs...),
		teams:          append([]domain.Team(nil), d.teams...),
		providers:      append([]domain.GitProvider(nil), d.providers...),
		repoRefs:       append([]domain.RepoRef(nil), d.repoRefs...),
		jiraConfigs:    append([]domain.JiraConfig(nil), d.jiraConfigs...),
		changeRequests: append([]domain.ChangeRequest(nil), d.changeRequests...),
		reviews:        append([]domain.Review(nil), d.reviews...),
		issues:         append([]domain.Issue(nil), d.issues...),
		metrics:        append([]domain.MetricSnapshot(nil), d.metrics...),
		packets:        append([]domain.ContextPacketRecord(nil), d.packets...),
		agentRuns:      append([]domain.AgentRun(nil), d.agentRuns...),
		plans:          append([]domain.Plan(nil), d.plans...),
		locks:          append([]domain.ActionLock(nil), d.locks...),
	}
}

func (s *Store) nextID() uint {
	s.seq++
	return s.seq
}

// tx даёт репозиториям доступ к хранилищу; мьютекс уже удерживается в Do
type tx struct {
	store *Store
}

func (t *tx) OrgRepo() storage.OrgRepository                     { return (*orgRepo)(t) }
func (t *tx) TeamRepo() storage.TeamRepository                   { return (*teamRepo)(t) }
func (t *tx) RepoRefRepo() storage.RepoRefRepository             { return (*repoRefRepo)(t) }
func (t *tx) JiraConfigRepo() storage.JiraConfigRepository       { return (*jiraConfigRepo)(t) }
func (t *tx) ChangeRequestRepo() storage.ChangeRequestRepository { return (*changeRequestRepo)(t) }
func (t *tx) ReviewRepo() storage.ReviewRepository               { return (*reviewRepo)(t) }
func (t *tx) IssueRepo() storage.IssueRepository                 { return (*issueRepo)(t) }
func (t *tx) MetricRepo() storage.MetricRepository               { return (*metricRepo)(t) }
func (t *tx) PacketRepo() storage.PacketRepository               { return (*packetRepo)(t) }
func (t *tx) AgentRunRepo() storage.AgentRunRepository           { return (*agentRunRepo)(t) }
func (t *tx) PlanRepo() storage.PlanRepository                   { return (*planRepo)(t) }
func (t *tx) LockRepo() storage.LockRepository                   { return (*lockRepo)(t) }

type orgRepo tx

func (r *orgRepo) GetOrCreate(_ context.Context, name string) (*domain.Org, error) {
	for _, org := range r.store.data.orgs {
		if org.Name == name {
			o := org
			return &o, nil
		}
	}
	org := domain.Org{ID: r.store.nextID(), Name: name, CreatedAt: time.Now().UTC()}
	r.store.data.orgs = append(r.store.data.orgs, org)
	return &org, nil
}

type teamRepo tx

func (r *teamRepo) GetByID(_ context.Context, teamID uint) (*domain.Team, error) {
	for _, team := range r.store.data.teams {
		if team.ID == teamID {
			t := team
			for _, org := range r.store.data.orgs {
				if org.ID == team.OrgID {
					t.OrgName = org.Name
				}
			}
			return &t, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *teamRepo) GetOrCreate(_ context.Context, orgID uint, name string) (*domain.Team, error) {
	for _, team := range r.store.data.teams {
		if team.OrgID == orgID && team.Name == name {
			t := team
			return &t, nil
		}
	}
	team := domain.Team{ID: r.store.nextID(), OrgID: orgID, Name: name, CreatedAt: time.Now().UTC()}
	r.store.data.teams = append(r.store.data.teams, team)
	return &team, nil
}

func (r *teamRepo) List(_ context.Context) ([]domain.Team, error) {
	return append([]domain.Team(nil), r.store.data.teams...), nil
}

type repoRefRepo tx

func (r *repoRefRepo) ListByTeam(_ context.Context, teamID uint) ([]domain.RepoRef, error) {
	var refs []domain.RepoRef
	for _, ref := range r.store.data.repoRefs {
		if ref.TeamID != teamID {
			continue
		}
		for _, p := range r.store.data.providers {
			if p.ID == ref.GitProviderID {
				ref.ProviderName = p.Name
				break
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (r *repoRefRepo) Upsert(_ context.Context, ref *domain.RepoRef) error {
	for i, existing := range r.store.data.repoRefs {
		if existing.TeamID == ref.TeamID && existing.APIBaseURL == ref.APIBaseURL &&
			existing.Owner == ref.Owner && existing.Repo == ref.Repo {
			ref.ID = existing.ID
			r.store.data.repoRefs[i] = *ref
			return nil
		}
	}
	ref.ID = r.store.nextID()
	r.store.data.repoRefs = append(r.store.data.repoRefs, *ref)
	return nil
}

func (r *repoRefRepo) EnsureProvider(_ context.Context, name, apiBaseURL string) (*domain.GitProvider, error) {
	for _, p := range r.store.data.providers {
		if p.Name == name {
			provider := p
			return &provider, nil
		}
	}
	provider := domain.GitProvider{ID: r.store.nextID(), Name: name, APIBaseURL: apiBaseURL}
	r.store.data.providers = append(r.store.data.providers, provider)
	return &provider, nil
}

type jiraConfigRepo tx

func (r *jiraConfigRepo) GetByTeam(_ context.Context, teamID uint) (*domain.JiraConfig, error) {
	for _, cfg := range r.store.data.jiraConfigs {
		if cfg.TeamID == teamID {
			c := cfg
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *jiraConfigRepo) Upsert(_ context.Context, cfg *domain.JiraConfig) error {
	for i, existing := range r.store.data.jiraConfigs {
		if existing.TeamID == cfg.TeamID {
			cfg.ID = existing.ID
			r.store.data.jiraConfigs[i] = *cfg
			return nil
		}
	}
	cfg.ID = r.store.nextID()
	r.store.data.jiraConfigs = append(r.store.data.jiraConfigs, *cfg)
	return nil
}

type changeRequestRepo tx

func (r *changeRequestRepo) Upsert(_ context.Context, cr *domain.ChangeRequest) error {
	cr.SyncedAt = time.Now().UTC()
	for i, existing := range r.store.data.changeRequests {
		if existing.TeamID == cr.TeamID && existing.RepoRefID == cr.RepoRefID && existing.Number == cr.Number {
			cr.ID = existing.ID
			// created_at и хэши у существующей записи не перезаписываются
			cr.CreatedAt = existing.CreatedAt
			cr.TitleHash = existing.TitleHash
			cr.AuthorHash = existing.AuthorHash
			// merged_at/closed_at не откатываются при повторном открытии
			if cr.MergedAt == nil {
				cr.MergedAt = existing.MergedAt
			}
			if cr.ClosedAt == nil {
				cr.ClosedAt = existing.ClosedAt
			}
			if cr.MergedAt != nil {
				cr.State = domain.ChangeRequestStateMerged
			} else if cr.ClosedAt != nil {
				cr.State = domain.ChangeRequestStateClosed
			}
			r.store.data.changeRequests[i] = *cr
			return nil
		}
	}
	cr.ID = r.store.nextID()
	r.store.data.changeRequests = append(r.store.data.changeRequests, *cr)
	return nil
}

func (r *changeRequestRepo) ListByTeam(_ context.Context, teamID uint) ([]domain.ChangeRequest, error) {
	var crs []domain.ChangeRequest
	for _, cr := range r.store.data.changeRequests {
		if cr.TeamID == teamID {
			crs = append(crs, cr)
		}
	}
	return crs, nil
}

func (r *changeRequestRepo) ListByTeamOldestFirst(_ context.Context, teamID uint, limit int) ([]domain.ChangeRequest, error) {
	crs, _ := r.ListByTeam(nil, teamID)
	sort.Slice(crs, func(i, j int) bool { return crs[i].CreatedAt.Before(crs[j].CreatedAt) })
	if len(crs) > limit {
		crs = crs[:limit]
	}
	return crs, nil
}

type reviewRepo tx

func (r *reviewRepo) Upsert(_ context.Context, rv *domain.Review) error {
	for i, existing := range r.store.data.reviews {
		if existing.TeamID == rv.TeamID && existing.RepoRefID == rv.RepoRefID &&
			existing.Number == rv.Number && existing.ReviewerHash == rv.ReviewerHash &&
			existing.SubmittedAt.Equal(rv.SubmittedAt) {
			rv.ID = existing.ID
			rv.SubmittedAt = existing.SubmittedAt
			r.store.data.reviews[i] = *rv
			return nil
		}
	}
	rv.ID = r.store.nextID()
	r.store.data.reviews = append(r.store.data.reviews, *rv)
	return nil
}

func (r *reviewRepo) ListByTeam(_ context.Context, teamID uint) ([]domain.Review, error) {
	var reviews []domain.Review
	for _, rv := range r.store.data.reviews {
		if rv.TeamID == teamID {
			reviews = append(reviews, rv)
		}
	}
	return reviews, nil
}

type issueRepo tx

func (r *issueRepo) Upsert(_ context.Context, issue *domain.Issue) error {
	for i, existing := range r.store.data.issues {
		if existing.TeamID == issue.TeamID && existing.Key == issue.Key {
			issue.ID = existing.ID
			issue.CreatedAt = existing.CreatedAt
			if issue.UpdatedAt == nil {
				issue.UpdatedAt = existing.UpdatedAt
			}
			r.store.data.issues[i] = *issue
			return nil
		}
	}
	issue.ID = r.store.nextID()
	r.store.data.issues = append(r.store.data.issues, *issue)
	return nil
}

func (r *issueRepo) ListByTeam(_ context.Context, teamID uint) ([]domain.Issue, error) {
	var issues []domain.Issue
	for _, issue := range r.store.data.issues {
		if issue.TeamID == teamID {
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

type metricRepo tx

func (r *metricRepo) Upsert(_ context.Context, snap *domain.MetricSnapshot) error {
	for i, existing := range r.store.data.metrics {
		if existing.TeamID == snap.TeamID && existing.Name == snap.Name &&
			sameDate(existing.AsOfDate, snap.AsOfDate) {
			snap.ID = existing.ID
			r.store.data.metrics[i] = *snap
			return nil
		}
	}
	snap.ID = r.store.nextID()
	r.store.data.metrics = append(r.store.data.metrics, *snap)
	return nil
}

func (r *metricRepo) LatestByTeam(_ context.Context, teamID uint, limit int) ([]domain.MetricSnapshot, error) {
	var snaps []domain.MetricSnapshot
	for _, snap := range r.store.data.metrics {
		if snap.TeamID == teamID {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].AsOfDate.Equal(snaps[j].AsOfDate) {
			return snaps[i].AsOfDate.After(snaps[j].AsOfDate)
		}
		return snaps[i].ID > snaps[j].ID
	})
	if len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

type packetRepo tx

func (r *packetRepo) Create(_ context.Context, packet *domain.ContextPacketRecord) error {
	packet.ID = r.store.nextID()
	packet.CreatedAt = time.Now().UTC()
	r.store.data.packets = append(r.store.data.packets, *packet)
	return nil
}

func (r *packetRepo) Latest(_ context.Context, teamID uint) (*domain.ContextPacketRecord, error) {
	var latest *domain.ContextPacketRecord
	for i := range r.store.data.packets {
		p := r.store.data.packets[i]
		if p.TeamID == teamID && (latest == nil || p.ID > latest.ID) {
			latest = &p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

type agentRunRepo tx

func (r *agentRunRepo) Create(_ context.Context, run *domain.AgentRun) error {
	run.ID = r.store.nextID()
	run.CreatedAt = time.Now().UTC()
	r.store.data.agentRuns = append(r.store.data.agentRuns, *run)
	return nil
}

func (r *agentRunRepo) ListByTeam(_ context.Context, teamID uint, limit int) ([]domain.AgentRun, error) {
	var runs []domain.AgentRun
	for _, run := range r.store.data.agentRuns {
		if run.TeamID == teamID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

type planRepo tx

func (r *planRepo) Create(_ context.Context, plan *domain.Plan) error {
	plan.ID = r.store.nextID()
	plan.CreatedAt = time.Now().UTC()
	r.store.data.plans = append(r.store.data.plans, *plan)
	return nil
}

func (r *planRepo) Latest(_ context.Context, teamID uint) (*domain.Plan, error) {
	var latest *domain.Plan
	for i := range r.store.data.plans {
		p := r.store.data.plans[i]
		if p.TeamID == teamID && (latest == nil || p.ID > latest.ID) {
			latest = &p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest, nil
}

type lockRepo tx

func (r *lockRepo) Create(_ context.Context, lock *domain.ActionLock) error {
	for _, existing := range r.store.data.locks {
		if existing.TeamID == lock.TeamID && existing.Action == lock.Action {
			return storage.ErrAlreadyExists
		}
	}
	lock.ID = r.store.nextID()
	if lock.LockedAt.IsZero() {
		lock.LockedAt = time.Now().UTC()
	}
	r.store.data.locks = append(r.store.data.locks, *lock)
	return nil
}

func (r *lockRepo) Get(_ context.Context, teamID uint, action string) (*domain.ActionLock, error) {
	for _, lock := range r.store.data.locks {
		if lock.TeamID == teamID && lock.Action == action {
			l := lock
			return &l, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *lockRepo) Delete(_ context.Context, teamID uint, action string) error {
	locks := r.store.data.locks[:0]
	for _, lock := range r.store.data.locks {
		if lock.TeamID != teamID || lock.Action != action {
			locks = append(locks, lock)
		}
	}
	r.store.data.locks = locks
	return nil
}

func (r *lockRepo) DeleteOwned(_ context.Context, teamID uint, action, owner string) (bool, error) {
	deleted := false
	locks := r.store.data.locks[:0]
	for _, lock := range r.store.data.locks {
		if lock.TeamID == teamID && lock.Action == action && lock.Owner == owner {
			deleted = true
			continue
		}
		locks = append(locks, lock)
	}
	r.store.data.locks = locks
	return deleted, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

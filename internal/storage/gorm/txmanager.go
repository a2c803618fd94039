package gorm

import (
	"context"
	"strconv"
	"time"

	"emaide/internal/config"
	"emaide/internal/metrics"
	"emaide/internal/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// txManager реализует storage.TxManager для GORM
type txManager struct {
	db *gorm.DB
}

// NewTxManager создаёт новый менеджер транзакций для GORM
func NewTxManager(envConf *config.Config) (storage.TxManager, error) {
	db, err := ConnectDB(envConf)
	if err != nil {
		return nil, err
	}

	// Получаем *sql.DB для мониторинга connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Запускаем коллектор метрик connection pool
	stopCh := make(chan struct{})
	go metrics.StartDBStatsCollector(sqlDB, 5*time.Second, stopCh)

	// Запускаем горутину для пересчёта gauge-метрик по командам из БД
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		type teamRow struct {
			TeamID uint
			Count  int
		}

		for {
			select {
			case <-ticker.C:
				// Открытые change requests по командам
				var openPRs []teamRow
				err := db.Raw(`SELECT team_id, COUNT(*) as count FROM change_requests
					WHERE merged_at IS NULL AND closed_at IS NULL GROUP BY team_id`).Scan(&openPRs).Error
				if err != nil {
					log.Error().Err(err).Msg("failed to query open change request counts")
					continue
				}
				metrics.OpenChangeRequests.Reset()
				for _, row := range openPRs {
					metrics.OpenChangeRequests.WithLabelValues(teamLabel(row.TeamID)).Set(float64(row.Count))
				}

				// Заблокированные задачи по командам
				var blocked []teamRow
				err = db.Raw(`SELECT team_id, COUNT(*) as count FROM issues
					WHERE is_blocked GROUP BY team_id`).Scan(&blocked).Error
				if err != nil {
					log.Error().Err(err).Msg("failed to query blocked issue counts")
					continue
				}
				metrics.BlockedIssues.Reset()
				for _, row := range blocked {
					metrics.BlockedIssues.WithLabelValues(teamLabel(row.TeamID)).Set(float64(row.Count))
				}

			case <-stopCh:
				log.Info().Msg("stopping metrics reconciliation goroutine")
				return
			}
		}
	}()

	return &txManager{db: db}, nil
}

// Do выполняет функцию внутри транзации с автоматическим commit/rollback
func (tm *txManager) Do(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	start := time.Now()

	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txWrapper := &transaction{
			db: tx,
		}

		err := fn(ctx, txWrapper)
		if err != nil {
			// GORM автоматически сделает ROLLBACK
			metrics.DBTransactionTotal.WithLabelValues("error").Inc()
			return err
		}

		// GORM автоматически сделает COMMIT
		metrics.DBTransactionTotal.WithLabelValues("success").Inc()
		return nil
	})

	// Записываем длительность транзакции
	metrics.DBTransactionDuration.Observe(time.Since(start).Seconds())

	return err
}

// transaction - обёртка над gorm.DB, реализует storage.Tx
type transaction struct {
	db *gorm.DB
}

func (t *transaction) OrgRepo() storage.OrgRepository {
	return NewOrgRepository(t.db)
}

func (t *transaction) TeamRepo() storage.TeamRepository {
	return NewTeamRepository(t.db)
}

func (t *transaction) RepoRefRepo() storage.RepoRefRepository {
	return NewRepoRefRepository(t.db)
}

func (t *transaction) JiraConfigRepo() storage.JiraConfigRepository {
	return NewJiraConfigRepository(t.db)
}

func (t *transaction) ChangeRequestRepo() storage.ChangeRequestRepository {
	return NewChangeRequestRepository(t.db)
}

func (t *transaction) ReviewRepo() storage.ReviewRepository {
	return NewReviewRepository(t.db)
}

func (t *transaction) IssueRepo() storage.IssueRepository {
	return NewIssueRepository(t.db)
}

func (t *transaction) MetricRepo() storage.MetricRepository {
	return NewMetricRepository(t.db)
}

func (t *transaction) PacketRepo() storage.PacketRepository {
	return NewPacketRepository(t.db)
}

func (t *transaction) AgentRunRepo() storage.AgentRunRepository {
	return NewAgentRunRepository(t.db)
}

func (t *transaction) PlanRepo() storage.PlanRepository {
	return NewPlanRepository(t.db)
}

func (t *transaction) LockRepo() storage.LockRepository {
	return NewLockRepository(t.db)
}

func teamLabel(teamID uint) string {
	return strconv.FormatUint(uint64(teamID), 10)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync Metrics
var (
	// SyncRunsTotal - количество запусков синхронизации по статусу
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total number of sync runs by status",
	}, []string{"status"})

	// SyncDuration - время полной синхронизации команды
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_duration_seconds",
		Help:    "Duration of a full team sync in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	// SyncItemsTotal - количество записанных элементов по типу
	SyncItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_total",
		Help: "Total number of items upserted during sync",
	}, []string{"kind"})

	// TrackerRequestDuration - время запросов к внешним трекерам
	TrackerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_request_duration_seconds",
		Help:    "Duration of external tracker requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"tracker"})
)

// Plan Metrics
var (
	// PlanRunsTotal - количество запусков генерации плана по статусу
	PlanRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_runs_total",
		Help: "Total number of plan generation runs by status",
	}, []string{"status"})

	// LLMRequestDuration - время вызова reasoning-сервиса
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_request_duration_seconds",
		Help:    "Duration of reasoning service calls in seconds",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
	}, []string{"mode", "status"})

	// SnapshotRunsTotal - количество построений метрических снапшотов
	SnapshotRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metric_snapshot_runs_total",
		Help: "Total number of metric snapshot computations by status",
	}, []string{"status"})
)

// Lock Metrics
var (
	// LockConflictsTotal - отказы в захвате advisory lock
	LockConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lock_conflicts_total",
		Help: "Total number of advisory lock acquisition conflicts",
	}, []string{"action"})

	// LockReclaimsTotal - перехваты протухших advisory lock
	LockReclaimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lock_reclaims_total",
		Help: "Total number of stale advisory locks reclaimed",
	}, []string{"action"})
)

// Domain State Metrics
var (
	// OpenChangeRequests - текущее количество открытых change request по командам
	OpenChangeRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "open_change_requests",
		Help: "Current number of open change requests by team",
	}, []string{"team_id"})

	// BlockedIssues - текущее количество заблокированных issue по командам
	BlockedIssues = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "blocked_issues",
		Help: "Current number of blocked issues by team",
	}, []string{"team_id"})
)

// HTTP Metrics
var (
	// HTTPRequestsTotal - общее количество HTTP запросов
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration - время обработки запроса
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP request in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Database Metrics
var (
	// DBTransactionDuration - время выполнения транзакций
	DBTransactionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "db_transaction_duration_seconds",
		Help:    "Duration of database transaction in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// DBTransactionTotal - количество транзакций
	DBTransactionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_transaction_total",
		Help: "Total number of database transactions",
	}, []string{"status"})

	// DBConnectionPoolActive - активные соединения
	DBConnectionPoolActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_connection_pool_active",
		Help: "Number of active database connections",
	})

	// DBConnectionPoolIdle - idle соединения
	DBConnectionPoolIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_connection_pool_idle",
		Help: "Number of idle database connections",
	})
)

// Error Metrics
var (
	// DomainErrorsTotal - доменные ошибки
	DomainErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_errors_total",
		Help: "Total number of domain errors",
	}, []string{"error_code"})
)

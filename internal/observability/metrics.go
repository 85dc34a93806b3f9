// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RecordsProcessed  *prometheus.CounterVec
	EntitiesCreated   *prometheus.CounterVec
	AccountsIngested  prometheus.Counter
	BalanceSnapshots  prometheus.Counter
	IngestionErrors   *prometheus.CounterVec
	CheckpointLedger  *prometheus.GaugeVec
	CycleDuration     *prometheus.HistogramVec
	EmptyPages        *prometheus.CounterVec

	// Horizon metrics
	HorizonCallLatency *prometheus.HistogramVec
	HorizonCallErrors  *prometheus.CounterVec

	// Rule engine metrics
	RulesEvaluated    prometheus.Counter
	FindingsFired     *prometheus.CounterVec
	AlertsCreated     prometheus.Counter
	FlagsCreated      prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	RuleErrors        *prometheus.CounterVec

	// Watchlist metrics
	WatchlistRefreshes *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stellar_sentinel"
	}

	return &Metrics{
		// Ingestion metrics
		RecordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_processed_total",
			Help:      "Total number of stream records processed",
		}, []string{"stream"}),
		EntitiesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "entities_created_total",
			Help:      "Total number of entities created by type",
		}, []string{"entity"}),
		AccountsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "accounts_ingested_total",
			Help:      "Total number of account detail ingestions",
		}),
		BalanceSnapshots: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "balance_snapshots_total",
			Help:      "Total number of balance snapshots stored",
		}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of failed ingestion cycles by stream",
		}, []string{"stream"}),
		CheckpointLedger: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "checkpoint_ledger",
			Help:      "Last committed ledger sequence per stream",
		}, []string{"stream"}),
		CycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cycle_duration_seconds",
			Help:      "Ingestion cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stream"}),
		EmptyPages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "empty_pages_total",
			Help:      "Total number of cycles that fetched an empty page",
		}, []string{"stream"}),

		// Horizon metrics
		HorizonCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "horizon",
			Name:      "call_latency_seconds",
			Help:      "Horizon API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		HorizonCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "horizon",
			Name:      "call_errors_total",
			Help:      "Total number of failed Horizon API calls by endpoint",
		}, []string{"endpoint"}),

		// Rule engine metrics
		RulesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "evaluated_total",
			Help:      "Total number of rule evaluations",
		}),
		FindingsFired: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "findings_fired_total",
			Help:      "Total number of findings fired by rule",
		}, []string{"rule"}),
		AlertsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "alerts_created_total",
			Help:      "Total number of alerts created",
		}),
		FlagsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "flags_created_total",
			Help:      "Total number of flags created",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of findings suppressed by deduplication",
		}),
		RuleErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "errors_total",
			Help:      "Total number of rule evaluation errors by rule",
		}, []string{"rule"}),

		// Watchlist metrics
		WatchlistRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "refreshes_total",
			Help:      "Total number of per-account watchlist refreshes by status",
		}, []string{"status"}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful cycle per stream",
		}, []string{"stream"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStreamCycle records one completed ingestion cycle for a stream.
func RecordStreamCycle(stream string, records int, durationSeconds float64, unixNow float64) {
	DefaultMetrics.RecordsProcessed.WithLabelValues(stream).Add(float64(records))
	DefaultMetrics.CycleDuration.WithLabelValues(stream).Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulCycle.WithLabelValues(stream).Set(unixNow)
}

// RecordEntityCreated increments the created counter for one entity type.
func RecordEntityCreated(entity string) {
	DefaultMetrics.EntitiesCreated.WithLabelValues(entity).Inc()
}

// RecordIngestionError records a failed ingestion cycle.
func RecordIngestionError(stream string) {
	DefaultMetrics.IngestionErrors.WithLabelValues(stream).Inc()
}

// RecordCheckpointLedger updates the committed ledger gauge for a stream.
func RecordCheckpointLedger(stream string, ledger int64) {
	DefaultMetrics.CheckpointLedger.WithLabelValues(stream).Set(float64(ledger))
}

// RecordEmptyPage records a cycle that found no new records.
func RecordEmptyPage(stream string) {
	DefaultMetrics.EmptyPages.WithLabelValues(stream).Inc()
}

// RecordRuleEvaluated records one completed rule evaluation.
func RecordRuleEvaluated() {
	DefaultMetrics.RulesEvaluated.Inc()
}

// RecordFinding records a fired finding for a rule.
func RecordFinding(rule string) {
	DefaultMetrics.FindingsFired.WithLabelValues(rule).Inc()
}

// RecordAlertCreated records one persisted alert.
func RecordAlertCreated() {
	DefaultMetrics.AlertsCreated.Inc()
}

// RecordFlagCreated records one persisted flag.
func RecordFlagCreated() {
	DefaultMetrics.FlagsCreated.Inc()
}

// RecordDuplicateSkipped records one finding suppressed by deduplication.
func RecordDuplicateSkipped() {
	DefaultMetrics.DuplicatesSkipped.Inc()
}

// RecordRuleError records a failed rule evaluation.
func RecordRuleError(rule string) {
	DefaultMetrics.RuleErrors.WithLabelValues(rule).Inc()
}

// RecordWatchlistRefresh records one per-account refresh outcome.
func RecordWatchlistRefresh(status string) {
	DefaultMetrics.WatchlistRefreshes.WithLabelValues(status).Inc()
}

// Package metrics exposes the Prometheus counters, gauges, and histograms
// this core's components record against: per-stage pipeline latency and
// confidence, cache hit/miss/circuit-breaker state (C9), duplicate and
// fraud-signal counts (C4), tenant quota denials (C8), and migration/backup
// job outcomes (C11/C12).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageLatencySeconds is per-stage execution duration, labeled by
	// connector kind and stage name (§4.3, §5).
	StageLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxpoynt_stage_latency_seconds",
		Help:    "Stage executor duration in seconds, by connector kind and stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"connector_kind", "stage"})

	// TransactionsProcessedTotal counts orchestrator runs by terminal status.
	TransactionsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_transactions_processed_total",
		Help: "Processed transactions by terminal status (completed, failed, requires_review).",
	}, []string{"connector_kind", "status"})

	// PipelineConfidence is the finalization-stage aggregate confidence
	// score distribution (§4.3.7).
	PipelineConfidence = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxpoynt_pipeline_confidence",
		Help:    "Finalization confidence score distribution, by connector kind.",
		Buckets: []float64{0.25, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1.0},
	}, []string{"connector_kind"})

	// DuplicatesDetectedTotal counts duplicate-detection stage matches (§4.3.2).
	DuplicatesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_duplicates_detected_total",
		Help: "Duplicate transactions detected, by match kind (exact, fuzzy).",
	}, []string{"match_kind"})

	// FraudRiskLevelTotal counts amount-validation outcomes by risk bucket
	// (§4.3.3).
	FraudRiskLevelTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_fraud_risk_level_total",
		Help: "Amount-validation risk level outcomes.",
	}, []string{"risk_level"})

	// CacheHitsTotal and CacheMissesTotal track L1/L2 cache effectiveness (C9).
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_cache_hits_total",
		Help: "Cache hits by tier (l1, l2).",
	}, []string{"tier"})
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_cache_misses_total",
		Help: "Cache misses by tier (l1, l2).",
	}, []string{"tier"})

	// CircuitBreakerState mirrors the L2 cache circuit breaker's current
	// state as a gauge (0=closed, 1=half-open, 2=open) (§4.6).
	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taxpoynt_circuit_breaker_state",
		Help: "Cache L2 circuit breaker state: 0=closed, 1=half-open, 2=open.",
	})

	// TenantQuotaDeniedTotal counts hard-ceiling rejections by tier and
	// metric (§4.5).
	TenantQuotaDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_tenant_quota_denied_total",
		Help: "Requests denied by a per-tenant hard quota ceiling.",
	}, []string{"tier", "metric"})

	// RateLimitedTotal counts token-bucket denials (§5).
	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_rate_limited_total",
		Help: "Requests denied by the per-tenant rate limiter.",
	}, []string{"tenant_id"})

	// SlowQueriesTotal counts database statements exceeding the configured
	// slow-query threshold (§4.7).
	SlowQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_slow_queries_total",
		Help: "Database statements exceeding the slow-query threshold.",
	}, []string{"engine"})

	// MigrationsAppliedTotal counts migration-engine runs by outcome (§4.8).
	MigrationsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_migrations_applied_total",
		Help: "Migrations applied, by direction and status.",
	}, []string{"direction", "status"})

	// BackupJobsTotal counts backup job terminal states (§4.9).
	BackupJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxpoynt_backup_jobs_total",
		Help: "Backup jobs, by type and terminal status.",
	}, []string{"type", "status"})

	// BackupBytesWritten tracks post-compression backup artifact size.
	BackupBytesWritten = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxpoynt_backup_bytes_written",
		Help:    "Post-compression backup artifact size in bytes, by type.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	}, []string{"type"})
)

// RecordStage records one stage invocation's latency.
func RecordStage(connectorKind, stage string, d time.Duration) {
	StageLatencySeconds.WithLabelValues(connectorKind, stage).Observe(d.Seconds())
}

// RecordTransaction records one orchestrator run's terminal status.
func RecordTransaction(connectorKind, status string) {
	TransactionsProcessedTotal.WithLabelValues(connectorKind, status).Inc()
}

// RecordConfidence records the finalization stage's aggregate confidence.
func RecordConfidence(connectorKind string, confidence float64) {
	PipelineConfidence.WithLabelValues(connectorKind).Observe(confidence)
}

// RecordDuplicate records one duplicate-detection match.
func RecordDuplicate(matchKind string) {
	DuplicatesDetectedTotal.WithLabelValues(matchKind).Inc()
}

// RecordFraudRisk records one amount-validation risk-level outcome.
func RecordFraudRisk(riskLevel string) {
	FraudRiskLevelTotal.WithLabelValues(riskLevel).Inc()
}

// RecordCacheHit and RecordCacheMiss record a cache lookup outcome for tier
// ("l1" or "l2").
func RecordCacheHit(tier string)  { CacheHitsTotal.WithLabelValues(tier).Inc() }
func RecordCacheMiss(tier string) { CacheMissesTotal.WithLabelValues(tier).Inc() }

// SetCircuitBreakerState publishes the cache circuit breaker's current
// state (0=closed, 1=half-open, 2=open).
func SetCircuitBreakerState(state int) {
	CircuitBreakerState.Set(float64(state))
}

// RecordTenantQuotaDenied records one hard-ceiling rejection.
func RecordTenantQuotaDenied(tier, metric string) {
	TenantQuotaDeniedTotal.WithLabelValues(tier, metric).Inc()
}

// RecordRateLimited records one token-bucket denial.
func RecordRateLimited(tenantID string) {
	RateLimitedTotal.WithLabelValues(tenantID).Inc()
}

// RecordSlowQuery records one statement exceeding the slow-query threshold.
func RecordSlowQuery(engine string) {
	SlowQueriesTotal.WithLabelValues(engine).Inc()
}

// RecordMigration records one migration's terminal outcome.
func RecordMigration(direction, status string) {
	MigrationsAppliedTotal.WithLabelValues(direction, status).Inc()
}

// RecordBackupJob records one backup job's terminal outcome and, for a
// completed job, its post-compression size.
func RecordBackupJob(jobType, status string, bytesAfter int64) {
	BackupJobsTotal.WithLabelValues(jobType, status).Inc()
	if status == "completed" {
		BackupBytesWritten.WithLabelValues(jobType).Observe(float64(bytesAfter))
	}
}

// Timer measures elapsed wall time from its creation, used where a caller
// wants to hold a clock across a multi-step operation rather than compute
// time.Since at one call site.
type Timer struct {
	start time.Time
}

// NewTimer starts a new Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the Timer was created.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// RecordStage records the elapsed time against StageLatencySeconds.
func (t *Timer) RecordStage(connectorKind, stage string) {
	RecordStage(connectorKind, stage, t.Elapsed())
}

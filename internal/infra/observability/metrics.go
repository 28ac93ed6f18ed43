package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the portal API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
	workflowResults *prometheus.CounterVec
	contactResults  *prometheus.CounterVec
	auditDropped    prometheus.Counter
}

// PortalSnapshot summarizes auth and workflow counters for the admin
// dashboard metrics endpoint.
type PortalSnapshot struct {
	LoginSuccesses     int64   `json:"login_successes"`
	LoginFailures      int64   `json:"login_failures"`
	LoginFailureRate   float64 `json:"login_failure_rate"`
	LegacyMigrations   int64   `json:"legacy_migrations"`
	PartialWorkflows   int64   `json:"partial_workflows"`
	ContactAccepted    int64   `json:"contact_accepted"`
	ContactRejected    int64   `json:"contact_rejected"`
	AuditEntriesLost   int64   `json:"audit_entries_lost"`
	ProfileCacheHits   int64   `json:"profile_cache_hits"`
	ProfileCacheMisses int64   `json:"profile_cache_misses"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_login_attempts_total",
				Help: "Login attempts by result (success, failure, migrated).",
			},
			[]string{"result"},
		),
		workflowResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_workflow_results_total",
				Help: "Multi-step workflow outcomes (complete, partial, failed).",
			},
			[]string{"workflow", "result"},
		),
		contactResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_contact_submissions_total",
				Help: "Contact form submissions by outcome (accepted, rejected).",
			},
			[]string{"outcome"},
		),
		auditDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "portal_audit_entries_dropped_total",
				Help: "Audit entries dropped because the queue was full or the write failed.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrLogin increments the login counter with a result label.
func (m *Metrics) IncrLogin(result string) {
	m.loginAttempts.WithLabelValues(result).Inc()
}

// IncrWorkflow records a multi-step workflow outcome.
func (m *Metrics) IncrWorkflow(workflow, result string) {
	m.workflowResults.WithLabelValues(workflow, result).Inc()
}

// IncrContact records a contact submission outcome.
func (m *Metrics) IncrContact(outcome string) {
	m.contactResults.WithLabelValues(outcome).Inc()
}

// IncrAuditDropped counts a lost audit entry.
func (m *Metrics) IncrAuditDropped() {
	m.auditDropped.Inc()
}

// GetPortalSnapshot returns current counter values for the admin
// dashboard. Prometheus counters are cumulative since process start.
func (m *Metrics) GetPortalSnapshot() *PortalSnapshot {
	successes := getCounterValue(m.loginAttempts, "success")
	failures := getCounterValue(m.loginAttempts, "failure")
	migrated := getCounterValue(m.loginAttempts, "migrated")
	partial := getWorkflowValue(m.workflowResults, "create_client", "partial") +
		getWorkflowValue(m.workflowResults, "upsert_invoice", "partial")

	failureRate := float64(0)
	if successes+failures > 0 {
		failureRate = failures / (successes + failures)
	}

	return &PortalSnapshot{
		LoginSuccesses:     int64(successes),
		LoginFailures:      int64(failures),
		LoginFailureRate:   failureRate,
		LegacyMigrations:   int64(migrated),
		PartialWorkflows:   int64(partial),
		ContactAccepted:    int64(getCounterValue(m.contactResults, "accepted")),
		ContactRejected:    int64(getCounterValue(m.contactResults, "rejected")),
		AuditEntriesLost:   int64(counterValue(m.auditDropped)),
		ProfileCacheHits:   int64(getCounterValue(m.cacheHits, "profile")),
		ProfileCacheMisses: int64(getCounterValue(m.cacheMisses, "profile")),
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func getWorkflowValue(cv *prometheus.CounterVec, workflow, result string) float64 {
	return counterValue(cv.WithLabelValues(workflow, result))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

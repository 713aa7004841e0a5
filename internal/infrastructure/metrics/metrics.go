package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joacominatel/facade/internal/unitofwork"
)

// Metrics holds all prometheus metrics for the service.
// uses a custom registry to avoid polluting the global namespace.
// it also observes unit of work lifecycles.
type Metrics struct {
	Registry *prometheus.Registry

	// http_request_duration_seconds - histogram for api latency
	HTTPRequestDuration *prometheus.HistogramVec

	// facade_sessions_opened_total / facade_sessions_closed_total
	SessionsOpened prometheus.Counter
	SessionsClosed prometheus.Counter

	// facade_sessions_open - sessions currently bound somewhere
	SessionsOpen prometheus.Gauge

	// facade_transactions_total - by outcome
	Transactions *prometheus.CounterVec

	// facade_lifecycle_violations_total - by error code
	LifecycleViolations *prometheus.CounterVec

	// facade_cleanup_failures_total - by stage
	CleanupFailures *prometheus.CounterVec

	// facade_retention_run_duration_seconds - histogram for the retention worker
	RetentionRunDuration prometheus.Histogram

	// facade_notes_purged_total
	NotesPurged prometheus.Counter
}

// New creates and registers all prometheus metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	// add standard go runtime and process collectors
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facade_sessions_opened_total",
			Help: "Total number of unit of work sessions opened",
		}),

		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facade_sessions_closed_total",
			Help: "Total number of unit of work sessions closed",
		}),

		SessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "facade_sessions_open",
			Help: "Number of unit of work sessions currently open",
		}),

		Transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_transactions_total",
				Help: "Total number of transactions by outcome",
			},
			[]string{"outcome"},
		),

		LifecycleViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_lifecycle_violations_total",
				Help: "Total number of unit of work protocol violations",
			},
			[]string{"code"},
		),

		CleanupFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facade_cleanup_failures_total",
				Help: "Total number of failures while cleaning up after another failure",
			},
			[]string{"stage"},
		),

		RetentionRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "facade_retention_run_duration_seconds",
			Help:    "Duration of retention purge runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		}),

		NotesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facade_notes_purged_total",
			Help: "Total number of notes removed by the retention worker",
		}),
	}

	// register all custom metrics
	reg.MustRegister(
		m.HTTPRequestDuration,
		m.SessionsOpened,
		m.SessionsClosed,
		m.SessionsOpen,
		m.Transactions,
		m.LifecycleViolations,
		m.CleanupFailures,
		m.RetentionRunDuration,
		m.NotesPurged,
	)

	return m
}

// RecordHTTPRequest records the duration of an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

// RecordRetentionRun records one retention run.
func (m *Metrics) RecordRetentionRun(purged int64, durationSeconds float64) {
	m.RetentionRunDuration.Observe(durationSeconds)
	m.NotesPurged.Add(float64(purged))
}

func (m *Metrics) SessionOpened() {
	m.SessionsOpened.Inc()
	m.SessionsOpen.Inc()
}

func (m *Metrics) SessionClosed() {
	m.SessionsClosed.Inc()
	m.SessionsOpen.Dec()
}

func (m *Metrics) TransactionFinished(outcome unitofwork.Outcome) {
	m.Transactions.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) LifecycleViolation(code string) {
	m.LifecycleViolations.WithLabelValues(code).Inc()
}

func (m *Metrics) CleanupFailed(stage string) {
	m.CleanupFailures.WithLabelValues(stage).Inc()
}

var _ unitofwork.Observer = (*Metrics)(nil)

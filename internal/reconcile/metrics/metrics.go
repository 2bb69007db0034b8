package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeCutShort  = "cut_short"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics provides observability for reconciliation cycles.
type Metrics struct {
	Cycles             *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	Migrations         *prometheus.CounterVec
	MutationsApplied   *prometheus.CounterVec
	BatchesFailed      prometheus.Counter
	RecordsUnprocessed prometheus.Gauge
	MissingAccounts    prometheus.Gauge
	LastSuccess        prometheus.Gauge
}

// New registers the reconciliation metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idsync_cycles_total",
			Help: "Reconciliation cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idsync_cycle_duration_seconds",
			Help:    "Wall-clock duration of reconciliation cycles",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240, 480},
		}),
		Migrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idsync_migrations_total",
			Help: "Authentication-domain migrations by result",
		}, []string{"result"}),
		MutationsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idsync_mutations_applied_total",
			Help: "Committed account mutations by kind",
		}, []string{"kind"}),
		BatchesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "idsync_batches_failed_total",
			Help: "Mutation chunks rolled back",
		}),
		RecordsUnprocessed: f.NewGauge(prometheus.GaugeOpts{
			Name: "idsync_records_unprocessed",
			Help: "Registry records left unscanned by the last cycle",
		}),
		MissingAccounts: f.NewGauge(prometheus.GaugeOpts{
			Name: "idsync_missing_accounts",
			Help: "Active registry identities without a managed account in the last cycle",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "idsync_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that finished without a fatal error",
		}),
	}
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(outcome string, started, finished time.Time) {
	m.Cycles.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(finished.Sub(started).Seconds())
	if outcome == OutcomeCompleted || outcome == OutcomeCutShort {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

// ObserveMigrations records per-result migration counts.
func (m *Metrics) ObserveMigrations(migrated, skipped, failed int) {
	m.Migrations.WithLabelValues("migrated").Add(float64(migrated))
	m.Migrations.WithLabelValues("skipped").Add(float64(skipped))
	m.Migrations.WithLabelValues("failed").Add(float64(failed))
}

// ObserveApplied records committed mutations of one kind.
func (m *Metrics) ObserveApplied(kind string, n int) {
	m.MutationsApplied.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncrementBatchFailed() {
	m.BatchesFailed.Inc()
}

// ObserveScan records the last cycle's scan gauges.
func (m *Metrics) ObserveScan(unprocessed, missing int) {
	m.RecordsUnprocessed.Set(float64(unprocessed))
	m.MissingAccounts.Set(float64(missing))
}

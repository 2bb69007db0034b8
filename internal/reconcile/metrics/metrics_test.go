package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCycle(t *testing.T) {
	m := New(prometheus.NewRegistry())
	start := time.Unix(1_700_000_000, 0)

	m.ObserveCycle(OutcomeCompleted, start, start.Add(30*time.Second))
	m.ObserveCycle(OutcomeFailed, start, start.Add(time.Second))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, float64(start.Add(30*time.Second).Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestObserveCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveMigrations(3, 2, 1)
	m.ObserveApplied("suspend", 4)
	m.IncrementBatchFailed()
	m.ObserveScan(600, 7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Migrations.WithLabelValues("migrated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Migrations.WithLabelValues("failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.MutationsApplied.WithLabelValues("suspend")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesFailed))
	assert.Equal(t, 600.0, testutil.ToFloat64(m.RecordsUnprocessed))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.MissingAccounts))
}

func TestNewOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

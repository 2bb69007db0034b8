package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"idsync/internal/reconcile/models"
	id "idsync/pkg/domain"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func header(rec *kgo.Record, key string) string {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishReport(t *testing.T) {
	producer := &fakeProducer{}
	p := New(producer, "idsync.reports")
	report := models.NewRunReport(id.NewRunID(), time.Now().UTC())
	report.CutShort = true
	report.Suspended = 3

	require.NoError(t, p.PublishReport(context.Background(), report))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "idsync.reports", rec.Topic)
	assert.Equal(t, report.RunID.String(), string(rec.Key))
	assert.Equal(t, "cut_short", header(rec, "outcome"))

	var decoded models.RunReport
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, 3, decoded.Suspended)
}

func TestPublishReportProduceFailure(t *testing.T) {
	boom := errors.New("not enough replicas")
	p := New(&fakeProducer{err: boom}, "idsync.reports")

	err := p.PublishReport(context.Background(), models.NewRunReport(id.NewRunID(), time.Now()))
	assert.ErrorIs(t, err, boom)
}

func TestOutcome(t *testing.T) {
	r := models.NewRunReport(id.NewRunID(), time.Now())
	assert.Equal(t, "completed", outcome(r))
	r.Cancelled = true
	assert.Equal(t, "cancelled", outcome(r))
	r.FatalError = "registry unavailable"
	assert.Equal(t, "failed", outcome(r))
}

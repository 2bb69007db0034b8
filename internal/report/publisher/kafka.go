// Package publisher announces finished reconciliation cycles on Kafka so
// notification and reporting consumers do not have to poll the report store.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"idsync/internal/reconcile/models"
)

// Producer is the subset of *kgo.Client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher writes one record per cycle, keyed by run id.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(producer Producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{producer: producer, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) PublishReport(ctx context.Context, report *models.RunReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(report.RunID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "outcome", Value: []byte(outcome(report))},
		},
	}
	if err := p.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish run report to %s: %w", p.topic, err)
	}
	p.logger.DebugContext(ctx, "run report published", "topic", p.topic, "run_id", report.RunID.String())
	return nil
}

func outcome(r *models.RunReport) string {
	switch {
	case r.Failed():
		return "failed"
	case r.Cancelled:
		return "cancelled"
	case r.CutShort:
		return "cut_short"
	}
	return "completed"
}

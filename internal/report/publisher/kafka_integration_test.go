//go:build integration

package publisher_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"idsync/internal/platform/config"
	"idsync/internal/platform/kafka"
	"idsync/internal/reconcile/models"
	"idsync/internal/report/publisher"
	id "idsync/pkg/domain"
	"idsync/pkg/testutil/containers"
)

func TestPublishReportToRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "idsync.reports.test"
	client, err := kafka.New(config.Kafka{Brokers: []string{broker.Broker}, ReportTopic: topic})
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, client, topic))
	require.NoError(t, kafka.EnsureTopic(ctx, client, topic), "second call tolerates an existing topic")

	report := models.NewRunReport(id.NewRunID(), time.Now().UTC())
	require.NoError(t, publisher.New(client, topic).PublishReport(ctx, report))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	var keys []string
	fetches.EachRecord(func(r *kgo.Record) {
		keys = append(keys, string(r.Key))
	})
	require.Contains(t, keys, report.RunID.String())
}

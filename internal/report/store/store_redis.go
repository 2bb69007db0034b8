package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idsync/internal/reconcile/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

const (
	latestReportKey  = "idsync:report:latest"
	payloadKeyPrefix = "idsync:payload:"
)

// RedisStore keeps the latest report snapshot and the raw registry payload
// of each cycle. Payloads expire after the configured TTL.
type RedisStore struct {
	client     redis.UniversalClient
	payloadTTL time.Duration
}

func NewRedis(client redis.UniversalClient, payloadTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, payloadTTL: payloadTTL}
}

func (s *RedisStore) Save(ctx context.Context, report *models.RunReport) error {
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	if err := s.client.Set(ctx, latestReportKey, encoded, 0).Err(); err != nil {
		return fmt.Errorf("save run report: %w", err)
	}
	return nil
}

func (s *RedisStore) Latest(ctx context.Context) (*models.RunReport, error) {
	raw, err := s.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run report: %w", err)
	}
	var report models.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}

func (s *RedisStore) SavePayload(ctx context.Context, runID id.RunID, payload []byte) error {
	if err := s.client.Set(ctx, payloadKeyPrefix+runID.String(), payload, s.payloadTTL).Err(); err != nil {
		return fmt.Errorf("save registry payload: %w", err)
	}
	return nil
}

// Payload returns the raw registry response retained for runID.
func (s *RedisStore) Payload(ctx context.Context, runID id.RunID) ([]byte, error) {
	raw, err := s.client.Get(ctx, payloadKeyPrefix+runID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load registry payload: %w", err)
	}
	return raw, nil
}

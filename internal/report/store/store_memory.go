package store

import (
	"context"
	"sync"

	"idsync/internal/reconcile/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// InMemoryStore keeps the latest report and retained payloads in process.
// Used by tests and single-binary deployments without Redis or Postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	latest   *models.RunReport
	payloads map[id.RunID][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{payloads: make(map[id.RunID][]byte)}
}

func (s *InMemoryStore) Save(_ context.Context, report *models.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = report.Clone()
	return nil
}

func (s *InMemoryStore) Latest(_ context.Context) (*models.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return s.latest.Clone(), nil
}

func (s *InMemoryStore) SavePayload(_ context.Context, runID id.RunID, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[runID] = append([]byte(nil), payload...)
	return nil
}

// Payload returns the raw registry response retained for runID.
func (s *InMemoryStore) Payload(_ context.Context, runID id.RunID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[runID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), p...), nil
}

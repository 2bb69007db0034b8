package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"idsync/internal/directory/models"
	id "idsync/pkg/domain"
)

// InMemoryStore is a DirectoryStore backed by a map. ApplyBatch validates the
// whole chunk before touching any account, so a rejected chunk leaves no trace.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*models.Account
	nextID   id.AccountID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[id.AccountID]*models.Account),
		nextID:   1,
	}
}

// Create inserts account with its external id trimmed. A zero ID is assigned
// from the sequence.
func (s *InMemoryStore) Create(_ context.Context, account *models.Account) (id.AccountID, error) {
	if account == nil {
		return 0, fmt.Errorf("account is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := *account
	acc.ExternalID = id.NewExternalID(acc.ExternalID.String())
	if acc.ID == 0 {
		acc.ID = s.nextID
	}
	if _, exists := s.accounts[acc.ID]; exists {
		return 0, fmt.Errorf("account %s already exists", acc.ID)
	}
	if acc.ID >= s.nextID {
		s.nextID = acc.ID + 1
	}
	s.accounts[acc.ID] = &acc
	return acc.ID, nil
}

// Get returns a copy of the account regardless of its state.
func (s *InMemoryStore) Get(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (s *InMemoryStore) FindMigrationCandidates(_ context.Context, filter models.MigrationFilter) ([]*models.Account, error) {
	excluded := make(map[id.AccountID]struct{}, len(filter.ExcludeIDs))
	for _, x := range filter.ExcludeIDs {
		excluded[x] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Account
	for _, acc := range s.accounts {
		if _, skip := excluded[acc.ID]; skip {
			continue
		}
		if !acc.IsMigrationCandidate() {
			continue
		}
		cp := *acc
		out = append(out, &cp)
	}
	sortByID(out)
	return out, nil
}

func (s *InMemoryStore) MigrateToManaged(_ context.Context, accountID id.AccountID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	if acc.Deleted || acc.AuthDomain == models.AuthDomainManaged || acc.AuthDomain == models.AuthDomainDisabled {
		return fmt.Errorf("migrate account %s: %w", accountID, ErrInvalidState)
	}
	acc.AuthDomain = models.AuthDomainManaged
	acc.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) FindManagedAccounts(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Account
	for _, acc := range s.accounts {
		if acc.Deleted || !acc.IsManaged() {
			continue
		}
		cp := *acc
		out = append(out, &cp)
	}
	sortByID(out)
	return out, nil
}

// FindByExternalID returns the lowest-ID managed, non-deleted account linked
// to externalID.
func (s *InMemoryStore) FindByExternalID(ctx context.Context, externalID id.ExternalID) (*models.Account, error) {
	managed, err := s.FindManagedAccounts(ctx)
	if err != nil {
		return nil, err
	}
	externalID = id.NewExternalID(externalID.String())
	for _, acc := range managed {
		if acc.ExternalID == externalID {
			return acc, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) ApplyBatch(_ context.Context, mutations []models.Mutation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range mutations {
		acc, ok := s.accounts[m.AccountID]
		if !ok {
			return fmt.Errorf("apply %s to account %s: %w", m.Kind, m.AccountID, ErrNotFound)
		}
		if acc.Deleted || !acc.IsManaged() {
			return fmt.Errorf("apply %s to account %s: %w", m.Kind, m.AccountID, ErrInvalidState)
		}
		if m.Kind != models.MutationSuspend && m.Kind != models.MutationPendingActivation {
			return fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	for _, m := range mutations {
		acc := s.accounts[m.AccountID]
		switch m.Kind {
		case models.MutationSuspend:
			acc.Suspended = true
		case models.MutationPendingActivation:
			acc.PendingActivation = true
		}
		acc.UpdatedAt = now
	}
	return nil
}

func (s *InMemoryStore) SetPendingActivationFlag(ctx context.Context, accountID id.AccountID) error {
	return s.ApplyBatch(ctx, []models.Mutation{{AccountID: accountID, Kind: models.MutationPendingActivation}}, time.Now())
}

func sortByID(accounts []*models.Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}

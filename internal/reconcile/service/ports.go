package service

import (
	"context"
	"time"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/platform/lock"
	"idsync/internal/reconcile/models"
	registrymodels "idsync/internal/registry/models"
	id "idsync/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks RegistryClient,AccountLookup,DirectoryStore,ReportStore,PayloadStore,ReportPublisher,Locker

// RegistryClient fetches the full registry listing for one cycle.
type RegistryClient interface {
	FetchActiveRecords(ctx context.Context) (*registrymodels.FetchResult, error)
}

// AccountLookup resolves a managed, non-deleted account by external id.
type AccountLookup interface {
	FindByExternalID(ctx context.Context, externalID id.ExternalID) (*dirmodels.Account, error)
}

// DirectoryStore is the engine's view of the local account directory.
type DirectoryStore interface {
	AccountLookup
	FindMigrationCandidates(ctx context.Context, filter dirmodels.MigrationFilter) ([]*dirmodels.Account, error)
	MigrateToManaged(ctx context.Context, accountID id.AccountID, now time.Time) error
	FindManagedAccounts(ctx context.Context) ([]*dirmodels.Account, error)
	ApplyBatch(ctx context.Context, mutations []dirmodels.Mutation, now time.Time) error
	SetPendingActivationFlag(ctx context.Context, accountID id.AccountID) error
}

// ReportStore persists the latest cycle report for operator views.
type ReportStore interface {
	Save(ctx context.Context, report *models.RunReport) error
	Latest(ctx context.Context) (*models.RunReport, error)
}

// PayloadStore retains the raw registry response for later inspection.
type PayloadStore interface {
	SavePayload(ctx context.Context, runID id.RunID, payload []byte) error
}

// ReportPublisher notifies downstream consumers that a cycle finished.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *models.RunReport) error
}

// Locker serializes cycles.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, error)
}

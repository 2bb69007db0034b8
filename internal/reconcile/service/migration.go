package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/reconcile/models"
	registrymodels "idsync/internal/registry/models"
	id "idsync/pkg/domain"
)

// MigrationResult summarizes one migration pass.
type MigrationResult struct {
	Migrated    int
	Skipped     int
	Failed      int
	Unprocessed int
	CutShort    bool
	Errors      []error
}

// MigrationResolver moves eligible local accounts into the managed domain,
// but only when the registry independently confirms their external id.
// It never suspends, deletes, or touches accounts outside the candidate set.
type MigrationResolver struct {
	directory DirectoryStore
	reserved  []id.AccountID
	logger    *slog.Logger
}

func NewMigrationResolver(directory DirectoryStore, reserved []id.AccountID, logger *slog.Logger) *MigrationResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &MigrationResolver{directory: directory, reserved: reserved, logger: logger}
}

// Migrate runs one pass. Per-account failures are counted and logged; only a
// failed candidate query is returned as an error.
func (m *MigrationResolver) Migrate(ctx context.Context, records []registrymodels.Record, now time.Time, budget Budget) (*MigrationResult, error) {
	present := make(map[id.ExternalID]registrymodels.StatusCode, len(records))
	for _, rec := range records {
		present[rec.ExternalID] = rec.StatusCode
	}

	candidates, err := m.directory.FindMigrationCandidates(ctx, dirmodels.MigrationFilter{ExcludeIDs: m.reserved})
	if err != nil {
		return nil, fmt.Errorf("find migration candidates: %w", err)
	}

	result := &MigrationResult{}
	for i, acc := range candidates {
		if budget.Exhausted() {
			result.CutShort = true
			result.Unprocessed = len(candidates) - i
			break
		}

		ext := id.NewExternalID(acc.ExternalID.String())
		if ext.IsZero() || !acc.IsMigrationCandidate() {
			result.Skipped++
			continue
		}
		if _, ok := present[ext]; !ok {
			result.Skipped++
			m.logger.DebugContext(ctx, "migration skipped: not in registry",
				"account_id", acc.ID,
				"external_id", ext,
			)
			continue
		}

		if err := m.directory.MigrateToManaged(ctx, acc.ID, now); err != nil {
			migErr := &models.AccountMigrationError{AccountID: acc.ID, Err: err}
			result.Failed++
			result.Errors = append(result.Errors, migErr)
			m.logger.WarnContext(ctx, "account migration failed",
				"account_id", acc.ID,
				"error", err,
			)
			continue
		}
		result.Migrated++
		m.logger.InfoContext(ctx, "account migrated to managed domain",
			"account_id", acc.ID,
			"external_id", ext,
		)
	}
	return result, nil
}

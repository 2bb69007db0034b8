package models

import (
	"errors"
	"fmt"

	registrymodels "idsync/internal/registry/models"
	id "idsync/pkg/domain"
)

// ErrRegistryUnavailable is the only error class that aborts a cycle.
var ErrRegistryUnavailable = registrymodels.ErrRegistryUnavailable

// ErrCycleInProgress is returned when another cycle holds the cycle lock.
var ErrCycleInProgress = errors.New("reconciliation cycle already in progress")

// AccountMigrationError records a failed per-account migration. Non-fatal.
type AccountMigrationError struct {
	AccountID id.AccountID
	Err       error
}

func (e *AccountMigrationError) Error() string {
	return fmt.Sprintf("migrate account %s: %v", e.AccountID, e.Err)
}

func (e *AccountMigrationError) Unwrap() error { return e.Err }

// BatchApplyError records a rolled-back chunk. Non-fatal.
type BatchApplyError struct {
	ChunkIndex int
	Size       int
	Err        error
}

func (e *BatchApplyError) Error() string {
	return fmt.Sprintf("apply chunk %d (%d mutations): %v", e.ChunkIndex, e.Size, e.Err)
}

func (e *BatchApplyError) Unwrap() error { return e.Err }

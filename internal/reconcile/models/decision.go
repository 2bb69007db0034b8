package models

import (
	dirmodels "idsync/internal/directory/models"
	id "idsync/pkg/domain"
)

// Reason explains why a decision was produced. Reported, never persisted.
type Reason string

const (
	ReasonDuplicateLoser       Reason = "duplicate_loser"
	ReasonInactiveDuplicate    Reason = "inactive_duplicate_group"
	ReasonNotActive            Reason = "not_active"
	ReasonNoExternalID         Reason = "no_external_id"
	ReasonSuspendedSurvivor    Reason = "suspended_survivor"
	ReasonSuspendedActiveMatch Reason = "suspended_active_account"
)

// Decision is one planned mutation. The decision set is frozen before any of
// it is applied.
type Decision struct {
	AccountID  id.AccountID
	ExternalID id.ExternalID
	Kind       dirmodels.MutationKind
	Reason     Reason
}

// Mutation converts the decision to its store form.
func (d Decision) Mutation() dirmodels.Mutation {
	return dirmodels.Mutation{AccountID: d.AccountID, Kind: d.Kind}
}

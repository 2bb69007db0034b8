package models

import (
	"time"

	id "idsync/pkg/domain"
)

// AuthDomain names the authentication method that governs an account.
type AuthDomain string

const (
	// AuthDomainManaged accounts are governed by the registry sync policy.
	AuthDomainManaged AuthDomain = "managed"
	// AuthDomainOther is the pre-migration default for local logins.
	AuthDomainOther AuthDomain = "other"
	// AuthDomainDisabled accounts cannot log in at all and are never migrated.
	AuthDomainDisabled AuthDomain = "disabled"
)

func (d AuthDomain) String() string { return string(d) }

// Account is a local directory entry. Zero timestamps mean "never".
type Account struct {
	ID                id.AccountID
	Username          string
	ExternalID        id.ExternalID
	AuthDomain        AuthDomain
	Suspended         bool
	Deleted           bool
	PendingActivation bool
	LastAccessAt      time.Time
	LastLoginAt       time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsManaged reports whether the registry sync policy governs this account.
func (a *Account) IsManaged() bool {
	return a.AuthDomain == AuthDomainManaged
}

// IsMigrationCandidate reports whether the account may move into the managed
// domain. Reserved system accounts are excluded separately by ID.
func (a *Account) IsMigrationCandidate() bool {
	return !a.Deleted &&
		!a.Suspended &&
		a.AuthDomain != AuthDomainManaged &&
		a.AuthDomain != AuthDomainDisabled &&
		!a.ExternalID.IsZero()
}

// MutationKind enumerates the only writes the engine performs in batches.
type MutationKind string

const (
	MutationSuspend           MutationKind = "suspend"
	MutationPendingActivation MutationKind = "pending_activation"
)

// Mutation is one field-level change applied inside a batch transaction.
type Mutation struct {
	AccountID id.AccountID
	Kind      MutationKind
}

// MigrationFilter narrows the candidate query for authentication-domain
// migration.
type MigrationFilter struct {
	// ExcludeIDs are reserved system accounts that must never migrate.
	ExcludeIDs []id.AccountID
}

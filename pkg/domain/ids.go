// Package domain defines typed identifiers shared across the sync engine.
//
// Account identifiers are directory-assigned integers; external identifiers are
// registry-assigned opaque strings. Keeping them as distinct types stops a
// registry key from being used where a directory key is expected.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "idsync/pkg/domain-errors"
)

// AccountID identifies a local directory account.
type AccountID int64

func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseAccountID parses a positive decimal account identifier.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "account id is required")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid account id")
	}
	return AccountID(n), nil
}

// ExternalID is the registry join key. The zero value means "not linked".
type ExternalID string

// NewExternalID normalizes surrounding whitespace.
func NewExternalID(s string) ExternalID {
	return ExternalID(strings.TrimSpace(s))
}

func (e ExternalID) String() string { return string(e) }

// IsZero reports whether the identifier is absent.
func (e ExternalID) IsZero() bool { return strings.TrimSpace(string(e)) == "" }

// RunID identifies one reconciliation cycle.
type RunID uuid.UUID

// NewRunID returns a fresh random cycle identifier.
func NewRunID() RunID { return RunID(uuid.New()) }

func (id RunID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the identifier is unset.
func (id RunID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText encodes the identifier as its canonical UUID form.
func (id RunID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical UUID form.
func (id *RunID) UnmarshalText(b []byte) error {
	parsed, err := ParseRunID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseRunID parses a non-nil UUID.
func ParseRunID(s string) (RunID, error) {
	if s == "" {
		return RunID{}, dErrors.New(dErrors.CodeInvalidInput, "run id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return RunID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid run id")
	}
	if u == uuid.Nil {
		return RunID{}, dErrors.New(dErrors.CodeInvalidInput, "run id must not be nil")
	}
	return RunID(u), nil
}

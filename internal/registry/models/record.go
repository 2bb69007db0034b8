package models

import (
	"errors"
	"fmt"

	id "idsync/pkg/domain"
)

// StatusCode is the registry's employment status enum.
type StatusCode int

// Record is one registry row for a sync cycle.
type Record struct {
	ExternalID     id.ExternalID
	StatusCode     StatusCode
	StatusLabel    string
	RemoteUsername string // advisory only
}

// FetchResult is everything one listing call produced. RawPayload is the
// undecoded response body, retained for the notification collaborator.
type FetchResult struct {
	Records     []Record
	RawPayload  []byte
	Quarantined int
}

// Stage identifies where a registry exchange failed.
type Stage string

const (
	StageToken  Stage = "token"
	StageList   Stage = "list"
	StageDecode Stage = "decode"
)

// ErrRegistryUnavailable matches every registry failure. Any such failure is
// fatal for the cycle.
var ErrRegistryUnavailable = errors.New("registry unavailable")

// UnavailableError describes a failed registry exchange.
type UnavailableError struct {
	Stage      Stage
	HTTPStatus int
	Message    string
	Underlying error
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("registry unavailable [%s]: %s", e.Stage, e.Message)
	if e.HTTPStatus != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.HTTPStatus)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *UnavailableError) Unwrap() error { return e.Underlying }

// Is lets errors.Is(err, ErrRegistryUnavailable) match any UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrRegistryUnavailable
}

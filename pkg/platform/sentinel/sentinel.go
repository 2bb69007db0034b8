package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, clients and locks return
// these (optionally wrapped) so the engine can classify failures without
// depending on driver-specific error types.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: a competing writer or lock holder already owns the resource
//   - ErrInvalidState: entity in wrong state for the requested mutation
//   - ErrUnavailable: remote service or backing store temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

package store

import "idsync/pkg/platform/sentinel"

// Store-level aliases so callers can match without importing sentinel.
var (
	ErrNotFound     = sentinel.ErrNotFound
	ErrInvalidState = sentinel.ErrInvalidState
)

// Package requestcontext provides transport-independent accessors for values
// scoped to one unit of work: an admin request or a reconciliation cycle.
//
// Usage in services (read values):
//
//	runID := requestcontext.RunID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "idsync/pkg/domain"
)

type (
	runIDKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyRunID       = runIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// RunID retrieves the reconciliation cycle ID from the context.
// Returns the zero value if not set.
func RunID(ctx context.Context) id.RunID {
	if runID, ok := ctx.Value(ContextKeyRunID).(id.RunID); ok {
		return runID
	}
	return id.RunID{}
}

// WithRunID injects a cycle ID into the context.
func WithRunID(ctx context.Context, runID id.RunID) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the scoped time from context.
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}

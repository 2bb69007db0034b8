package service

import (
	"context"
	"time"
)

// Budget is the cycle's time allowance. Scanning phases ask it before touching
// each item; once Exhausted returns true it keeps returning true.
type Budget interface {
	Exhausted() bool
}

// deadlineBudget is spent when the wall clock reaches the deadline or the
// cycle context is done.
type deadlineBudget struct {
	ctx      context.Context
	deadline time.Time
	now      func() time.Time
	spent    bool
}

// NewDeadlineBudget returns a budget that expires at deadline or when ctx ends.
func NewDeadlineBudget(ctx context.Context, deadline time.Time, now func() time.Time) Budget {
	return &deadlineBudget{ctx: ctx, deadline: deadline, now: now}
}

func (b *deadlineBudget) Exhausted() bool {
	if b.spent {
		return true
	}
	if b.ctx.Err() != nil || !b.now().Before(b.deadline) {
		b.spent = true
	}
	return b.spent
}

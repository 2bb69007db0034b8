package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idsync/internal/reconcile/models"
)

// Runner executes one reconciliation cycle.
type Runner interface {
	Run(ctx context.Context) (*models.RunReport, error)
}

// Scheduler triggers a cycle at start and then on every interval. Cycles
// run on the scheduler goroutine, so one scheduler never overlaps itself.
type Scheduler struct {
	runner    Runner
	interval  time.Duration
	logger    *slog.Logger
	newTicker func(time.Duration) (<-chan time.Time, func())
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithTicker replaces the wall-clock ticker.
func WithTicker(f func(time.Duration) (<-chan time.Time, func())) Option {
	return func(s *Scheduler) {
		s.newTicker = f
	}
}

func New(runner Runner, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   slog.Default(),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs cycles until ctx is cancelled. Cycle failures are logged and
// never stop the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runOnce(ctx)

	tick, stop := s.newTicker(s.interval)
	defer stop()
	for {
		select {
		case <-tick:
			s.runOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, models.ErrCycleInProgress):
		s.logger.InfoContext(ctx, "scheduled cycle skipped, another cycle holds the lock")
	case err != nil && report != nil:
		s.logger.ErrorContext(ctx, "scheduled cycle failed",
			"run_id", report.RunID.String(),
			"error", err,
		)
	case err != nil:
		s.logger.ErrorContext(ctx, "scheduled cycle did not start", "error", err)
	}
}

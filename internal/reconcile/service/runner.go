package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/platform/config"
	"idsync/internal/reconcile/metrics"
	"idsync/internal/reconcile/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
	"idsync/pkg/requestcontext"
)

// CycleLockKey names the lock that serializes cycles across replicas.
const CycleLockKey = "cycle"

// BudgetFactory creates the budget for a cycle that started at started.
type BudgetFactory func(ctx context.Context, started time.Time) Budget

// Runner drives one reconciliation cycle end to end:
// fetch, migrate, reconcile status, resolve duplicates, apply batches.
// Each phase consumes the full output of the previous one, so phases run
// strictly in order on the calling goroutine.
type Runner struct {
	registry  RegistryClient
	directory DirectoryStore
	cfg       config.Sync

	migration  *MigrationResolver
	status     *StatusReconciler
	duplicates *DuplicateResolver

	logger    *slog.Logger
	metrics   *metrics.Metrics
	reports   ReportStore
	payloads  PayloadStore
	publisher ReportPublisher
	locker    Locker
	tracer    trace.Tracer
	now       func() time.Time
	newBudget BudgetFactory

	mu     sync.RWMutex
	latest *models.RunReport
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithReportStore(store ReportStore) Option {
	return func(r *Runner) {
		r.reports = store
	}
}

func WithPayloadStore(store PayloadStore) Option {
	return func(r *Runner) {
		r.payloads = store
	}
}

func WithPublisher(p ReportPublisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithLocker sets the cycle lock. Without one the runner relies on its
// caller not to overlap cycles.
func WithLocker(l Locker) Option {
	return func(r *Runner) {
		r.locker = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		r.tracer = t
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithBudgetFactory replaces the wall-clock deadline budget.
func WithBudgetFactory(f BudgetFactory) Option {
	return func(r *Runner) {
		r.newBudget = f
	}
}

// New constructs a Runner. cfg is copied; nothing is read from the
// environment afterwards.
func New(registry RegistryClient, directory DirectoryStore, cfg config.Sync, opts ...Option) *Runner {
	r := &Runner{
		registry:  registry,
		directory: directory,
		cfg:       cfg,
		logger:    slog.Default(),
		tracer:    otel.Tracer("idsync/reconcile"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newBudget == nil {
		r.newBudget = func(ctx context.Context, started time.Time) Budget {
			return NewDeadlineBudget(ctx, started.Add(r.cfg.Deadline), r.now)
		}
	}

	reserved := make([]id.AccountID, 0, len(cfg.ReservedAccountIDs))
	for _, v := range cfg.ReservedAccountIDs {
		reserved = append(reserved, id.AccountID(v))
	}
	r.migration = NewMigrationResolver(directory, reserved, r.logger)
	r.status = NewStatusReconciler(NewStatusPolicy(cfg.ActiveStatusCodes, cfg.StatusLabels), r.logger)
	r.duplicates = NewDuplicateResolver(r.logger)
	return r
}

// Run executes one cycle. It returns ErrCycleInProgress without doing
// anything when another cycle holds the lock. Otherwise it always returns a
// report; the error is non-nil only when a fatal failure stopped the cycle.
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	var lockErr error
	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, CycleLockKey, r.cfg.LockTTL)
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			if r.metrics != nil {
				r.metrics.Cycles.WithLabelValues(metrics.OutcomeSkipped).Inc()
			}
			return nil, models.ErrCycleInProgress
		case err != nil:
			lockErr = fmt.Errorf("acquire cycle lock: %w", err)
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					r.logger.WarnContext(ctx, "failed to release cycle lock", "error", err)
				}
			}()
		}
	}

	started := r.now()
	runID := id.NewRunID()
	report := models.NewRunReport(runID, started)
	ctx = requestcontext.WithRunID(ctx, runID)
	log := r.logger.With("run_id", runID.String())

	ctx, span := r.tracer.Start(ctx, "reconcile.cycle", trace.WithAttributes(
		attribute.String("run_id", runID.String()),
	))
	defer span.End()

	err := lockErr
	if err != nil {
		log.ErrorContext(ctx, "cycle lock unavailable, nothing was touched", "error", err)
	} else {
		log.InfoContext(ctx, "reconciliation cycle started", "deadline", r.cfg.Deadline)
		err = r.run(ctx, log, report, r.newBudget(ctx, started))
	}
	if err != nil {
		report.FatalError = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "cycle failed")
	}
	report.Cancelled = ctx.Err() != nil
	r.finish(ctx, log, report)
	return report.Clone(), err
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, report *models.RunReport, budget Budget) error {
	r.enter(ctx, log, report, models.PhaseFetchingRegistry)
	fetched, err := r.registry.FetchActiveRecords(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrRegistryUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrRegistryUnavailable, err)
		}
		log.ErrorContext(ctx, "registry fetch failed, aborting cycle", "error", err)
		return err
	}
	report.TotalRecords = len(fetched.Records)
	report.QuarantinedRecords = fetched.Quarantined

	// Past this point a cancelled ctx only stops scanning; the directory work
	// that remains is drained under a bounded detached context.
	work, cancel := drainContext(ctx, r.cfg.DrainTimeout)
	defer cancel()

	r.savePayload(work, log, report.RunID, fetched.RawPayload)

	r.enter(ctx, log, report, models.PhaseMigratingAccounts)
	mig, err := r.migration.Migrate(work, fetched.Records, r.now(), budget)
	if err != nil {
		return err
	}
	report.Migrated = mig.Migrated
	report.MigrationSkipped = mig.Skipped
	report.MigrationFailed = mig.Failed
	report.MigrationUnprocessed = mig.Unprocessed
	r.markCutShort(report, mig.CutShort, models.PhaseMigratingAccounts)
	if r.metrics != nil {
		r.metrics.ObserveMigrations(mig.Migrated, mig.Skipped, mig.Failed)
	}

	managed, err := r.directory.FindManagedAccounts(work)
	if err != nil {
		return fmt.Errorf("load managed accounts: %w", err)
	}

	r.enter(ctx, log, report, models.PhaseReconcilingStatus)
	status, err := r.status.Reconcile(work, fetched.Records, newAccountIndex(managed), budget)
	if err != nil {
		return err
	}
	report.ProcessedRecords = status.Processed
	report.UnprocessedRecords = status.Unprocessed
	report.ActiveExternalIDs = len(status.Active)
	report.MissingInDirectory = len(status.Missing)
	report.StatusStats = status.Stats
	r.markCutShort(report, status.CutShort, models.PhaseReconcilingStatus)
	if len(status.Missing) > 0 {
		log.InfoContext(ctx, "active registry identities without a managed account",
			"count", len(status.Missing),
		)
	}

	r.enter(ctx, log, report, models.PhaseResolvingDuplicates)
	dups := r.duplicates.Resolve(work, managed, status, budget)
	report.DuplicateGroups = dups.Groups
	report.UnprocessedAccounts = dups.Unprocessed
	r.markCutShort(report, dups.CutShort, models.PhaseResolvingDuplicates)

	decisions := slices.Clone(dups.Decisions)
	for _, d := range decisions {
		switch d.Kind {
		case dirmodels.MutationSuspend:
			report.PlannedSuspensions++
		case dirmodels.MutationPendingActivation:
			report.PlannedPending++
		}
	}

	r.enter(ctx, log, report, models.PhaseApplyingBatches)
	r.applyBatches(work, log, report, decisions)

	r.fillTotals(work, log, report)
	return nil
}

// applyBatches writes the frozen decision set chunk by chunk. A failed chunk
// is rolled back by the store and the next chunk still runs.
func (r *Runner) applyBatches(ctx context.Context, log *slog.Logger, report *models.RunReport, decisions []models.Decision) {
	size := r.cfg.ChunkSize
	if size <= 0 {
		size = len(decisions)
	}
	for idx, chunk := range chunkDecisions(decisions, size) {
		report.Batches++
		muts := make([]dirmodels.Mutation, len(chunk))
		for i, d := range chunk {
			muts[i] = d.Mutation()
		}

		if err := r.directory.ApplyBatch(ctx, muts, r.now()); err != nil {
			batchErr := &models.BatchApplyError{ChunkIndex: idx, Size: len(chunk), Err: err}
			report.BatchesFailed++
			if r.metrics != nil {
				r.metrics.IncrementBatchFailed()
			}
			log.ErrorContext(ctx, "batch rolled back", "chunk", idx, "size", len(chunk), "error", batchErr)
			continue
		}

		var suspended, pending int
		for _, m := range muts {
			if m.Kind == dirmodels.MutationSuspend {
				suspended++
			} else {
				pending++
			}
		}
		report.Suspended += suspended
		report.PendingActivation += pending
		if r.metrics != nil {
			r.metrics.ObserveApplied(string(dirmodels.MutationSuspend), suspended)
			r.metrics.ObserveApplied(string(dirmodels.MutationPendingActivation), pending)
		}
	}
}

func chunkDecisions(decisions []models.Decision, size int) [][]models.Decision {
	if len(decisions) == 0 {
		return nil
	}
	chunks := make([][]models.Decision, 0, (len(decisions)+size-1)/size)
	for start := 0; start < len(decisions); start += size {
		end := min(start+size, len(decisions))
		chunks = append(chunks, decisions[start:end])
	}
	return chunks
}

func (r *Runner) fillTotals(ctx context.Context, log *slog.Logger, report *models.RunReport) {
	accounts, err := r.directory.FindManagedAccounts(ctx)
	if err != nil {
		log.WarnContext(ctx, "failed to read final totals", "error", err)
		return
	}
	for _, acc := range accounts {
		if acc.Deleted {
			continue
		}
		if acc.Suspended {
			report.FinalSuspended++
		} else {
			report.FinalActive++
		}
	}
}

func (r *Runner) enter(ctx context.Context, log *slog.Logger, report *models.RunReport, next models.Phase) {
	if !models.CanTransition(report.Phase, next) {
		log.ErrorContext(ctx, "invalid phase transition", "from", report.Phase, "to", next)
		return
	}
	report.Phase = next
	trace.SpanFromContext(ctx).AddEvent("phase", trace.WithAttributes(attribute.String("phase", string(next))))
	log.DebugContext(ctx, "phase entered", "phase", next)
}

func (r *Runner) markCutShort(report *models.RunReport, cut bool, phase models.Phase) {
	if !cut {
		return
	}
	if !report.CutShort {
		report.StoppedIn = phase
	}
	report.CutShort = true
}

// finish stamps the report, records metrics and persists it. Persistence
// failures are logged and never change the cycle's outcome.
func (r *Runner) finish(ctx context.Context, log *slog.Logger, report *models.RunReport) {
	report.Phase = models.PhaseDone
	report.FinishedAt = r.now()

	outcome := metrics.OutcomeCompleted
	switch {
	case report.Failed():
		outcome = metrics.OutcomeFailed
	case report.CutShort:
		outcome = metrics.OutcomeCutShort
	}
	if r.metrics != nil {
		r.metrics.ObserveCycle(outcome, report.StartedAt, report.FinishedAt)
		r.metrics.ObserveScan(report.UnprocessedRecords, report.MissingInDirectory)
	}

	snapshot := report.Clone()
	r.mu.Lock()
	r.latest = snapshot
	r.mu.Unlock()

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.persistTimeout())
	defer cancel()
	if r.reports != nil {
		if err := r.reports.Save(persistCtx, snapshot); err != nil {
			log.WarnContext(ctx, "failed to persist run report", "error", err)
		}
	}
	if r.publisher != nil {
		if err := r.publisher.PublishReport(persistCtx, snapshot); err != nil {
			log.WarnContext(ctx, "failed to publish run report", "error", err)
		}
	}

	log.InfoContext(ctx, "reconciliation cycle finished",
		"outcome", outcome,
		"duration", report.Duration(),
		"processed", report.ProcessedRecords,
		"unprocessed", report.UnprocessedRecords,
		"migrated", report.Migrated,
		"suspended", report.Suspended,
		"pending_activation", report.PendingActivation,
		"batches_failed", report.BatchesFailed,
		"cancelled", report.Cancelled,
	)
}

func (r *Runner) savePayload(ctx context.Context, log *slog.Logger, runID id.RunID, payload []byte) {
	if r.payloads == nil || len(payload) == 0 {
		return
	}
	if err := r.payloads.SavePayload(ctx, runID, payload); err != nil {
		log.WarnContext(ctx, "failed to retain registry payload", "error", err)
	}
}

func (r *Runner) persistTimeout() time.Duration {
	if r.cfg.DrainTimeout > 0 {
		return r.cfg.DrainTimeout
	}
	return 30 * time.Second
}

// Latest returns the most recent report, preferring the durable store.
func (r *Runner) Latest(ctx context.Context) (*models.RunReport, error) {
	if r.reports != nil {
		rep, err := r.reports.Latest(ctx)
		if err == nil {
			return rep, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return r.latest.Clone(), nil
}

// drainContext detaches from parent's cancellation but still ends grace after
// parent is done.
func drainContext(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(parent, func() {
		if grace <= 0 {
			cancel()
			return
		}
		time.AfterFunc(grace, cancel)
	})
	return ctx, func() {
		stop()
		cancel()
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/directory/store"
	"idsync/internal/platform/config"
	"idsync/internal/platform/lock"
	"idsync/internal/reconcile/metrics"
	"idsync/internal/reconcile/models"
	"idsync/internal/reconcile/service/mocks"
	registrymodels "idsync/internal/registry/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// hookedDirectory lets tests intercept batch writes on top of the in-memory
// store. rawExternalIDs replaces the external id the store returns for an
// account, standing in for a backend that hands back untrimmed values.
type hookedDirectory struct {
	*store.InMemoryStore
	calls          int
	onApply        func(ctx context.Context, call int) error
	rawExternalIDs map[id.AccountID]id.ExternalID
}

func (d *hookedDirectory) FindMigrationCandidates(ctx context.Context, filter dirmodels.MigrationFilter) ([]*dirmodels.Account, error) {
	accounts, err := d.InMemoryStore.FindMigrationCandidates(ctx, filter)
	return d.withRaw(accounts), err
}

func (d *hookedDirectory) FindManagedAccounts(ctx context.Context) ([]*dirmodels.Account, error) {
	accounts, err := d.InMemoryStore.FindManagedAccounts(ctx)
	return d.withRaw(accounts), err
}

func (d *hookedDirectory) withRaw(accounts []*dirmodels.Account) []*dirmodels.Account {
	for _, acc := range accounts {
		if raw, ok := d.rawExternalIDs[acc.ID]; ok {
			acc.ExternalID = raw
		}
	}
	return accounts
}

func (d *hookedDirectory) ApplyBatch(ctx context.Context, mutations []dirmodels.Mutation, now time.Time) error {
	call := d.calls
	d.calls++
	if d.onApply != nil {
		if err := d.onApply(ctx, call); err != nil {
			return err
		}
	}
	return d.InMemoryStore.ApplyBatch(ctx, mutations, now)
}

// =============================================================================
// Runner Test Suite
// =============================================================================
// Justification: the runner owns phase ordering, fatal vs non-fatal error
// handling, chunked writes and the cycle lock. The registry is mocked; the
// directory is the in-memory store so state after a cycle can be asserted.

type RunnerSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	registry  *mocks.MockRegistryClient
	directory *hookedDirectory
	metrics   *metrics.Metrics
	cfg       config.Sync
	now       time.Time
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.registry = mocks.NewMockRegistryClient(s.ctrl)
	s.directory = &hookedDirectory{InMemoryStore: store.NewInMemory()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.cfg = config.Default().Sync
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RunnerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RunnerSuite) newRunner(opts ...Option) *Runner {
	base := []Option{
		WithLogger(discardLogger()),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	}
	return New(s.registry, s.directory, s.cfg, append(base, opts...)...)
}

func (s *RunnerSuite) create(acc dirmodels.Account) id.AccountID {
	accountID, err := s.directory.Create(s.ctx, &acc)
	s.Require().NoError(err)
	return accountID
}

func (s *RunnerSuite) get(accountID id.AccountID) *dirmodels.Account {
	acc, err := s.directory.Get(s.ctx, accountID)
	s.Require().NoError(err)
	return acc
}

func (s *RunnerSuite) expectFetch(records ...registrymodels.Record) {
	s.registry.EXPECT().FetchActiveRecords(gomock.Any()).Return(&registrymodels.FetchResult{
		Records:    records,
		RawPayload: []byte(`{"success":true}`),
	}, nil)
}

func (s *RunnerSuite) TestFullCycle() {
	s.cfg.ChunkSize = 2
	guest := s.create(dirmodels.Account{ExternalID: "G1", AuthDomain: dirmodels.AuthDomainOther})
	s.create(dirmodels.Account{AuthDomain: dirmodels.AuthDomainOther})
	migrated := s.create(dirmodels.Account{ExternalID: "D1", AuthDomain: dirmodels.AuthDomainOther})
	loser := s.create(dirmodels.Account{ExternalID: "D2", AuthDomain: dirmodels.AuthDomainManaged, LastAccessAt: time.Unix(1000, 0)})
	survivor := s.create(dirmodels.Account{ExternalID: "D2", AuthDomain: dirmodels.AuthDomainManaged, LastAccessAt: time.Unix(2000, 0)})
	inactive := s.create(dirmodels.Account{ExternalID: "I1", AuthDomain: dirmodels.AuthDomainManaged})
	flagged := s.create(dirmodels.Account{ExternalID: "A2", AuthDomain: dirmodels.AuthDomainManaged, Suspended: true})

	s.expectFetch(
		record("D1", 1), record("D2", 2), record("I1", 5),
		record("A2", 3), record("M1", 1), record("G1", 1),
	)

	reports := mocks.NewMockReportStore(s.ctrl)
	payloads := mocks.NewMockPayloadStore(s.ctrl)
	publisher := mocks.NewMockReportPublisher(s.ctrl)
	payloads.EXPECT().SavePayload(gomock.Any(), gomock.Any(), []byte(`{"success":true}`)).Return(nil)
	reports.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	publisher.EXPECT().PublishReport(gomock.Any(), gomock.Any()).Return(nil)

	report, err := s.newRunner(
		WithReportStore(reports),
		WithPayloadStore(payloads),
		WithPublisher(publisher),
		WithLocker(lock.NewLocal()),
	).Run(s.ctx)
	s.Require().NoError(err)

	s.Equal(models.PhaseDone, report.Phase)
	s.False(report.CutShort)
	s.False(report.Failed())
	s.Equal(6, report.TotalRecords)
	s.Equal(6, report.ProcessedRecords)
	s.Zero(report.UnprocessedRecords)
	s.Equal(5, report.ActiveExternalIDs)
	s.Equal(2, report.MissingInDirectory)
	s.Equal(1, report.Migrated)
	s.Equal(1, report.DuplicateGroups)
	s.Equal(2, report.PlannedSuspensions)
	s.Equal(1, report.PlannedPending)
	s.Equal(2, report.Suspended)
	s.Equal(1, report.PendingActivation)
	s.Equal(2, report.Batches)
	s.Zero(report.BatchesFailed)
	s.Equal(2, report.FinalActive)
	s.Equal(3, report.FinalSuspended)
	s.Equal(models.StatusStat{Seen: 3, Missing: 2}, report.StatusStats["active"])
	s.Equal(models.StatusStat{Seen: 1}, report.StatusStats[models.OtherStatusLabel])

	s.Equal(dirmodels.AuthDomainOther, s.get(guest).AuthDomain)
	s.Equal(dirmodels.AuthDomainManaged, s.get(migrated).AuthDomain)
	s.False(s.get(migrated).Suspended)
	s.True(s.get(loser).Suspended)
	s.False(s.get(survivor).Suspended)
	s.True(s.get(inactive).Suspended)
	s.True(s.get(flagged).Suspended, "suspended accounts are never reactivated")
	s.True(s.get(flagged).PendingActivation)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Cycles.WithLabelValues(metrics.OutcomeCompleted)))
}

func (s *RunnerSuite) TestRegistryFailureAbortsCycle() {
	s.Run("http 500 from the registry", func() {
		directory := mocks.NewMockDirectoryStore(s.ctrl)
		s.registry.EXPECT().FetchActiveRecords(gomock.Any()).Return(nil, &registrymodels.UnavailableError{
			Stage:      registrymodels.StageList,
			HTTPStatus: 500,
			Message:    "unexpected status",
		})

		report, err := New(s.registry, directory, s.cfg, WithLogger(discardLogger())).Run(s.ctx)

		s.Require().ErrorIs(err, models.ErrRegistryUnavailable)
		s.Require().NotNil(report)
		s.True(report.Failed())
		s.Contains(report.FatalError, "http 500")
		s.Equal(models.PhaseDone, report.Phase)
		s.Zero(report.Migrated)
		s.Zero(report.Suspended)
		s.Zero(report.PendingActivation)
	})

	s.Run("unclassified client error is still registry unavailable", func() {
		directory := mocks.NewMockDirectoryStore(s.ctrl)
		s.registry.EXPECT().FetchActiveRecords(gomock.Any()).Return(nil, errors.New("dial tcp: refused"))

		_, err := New(s.registry, directory, s.cfg, WithLogger(discardLogger())).Run(s.ctx)
		s.ErrorIs(err, models.ErrRegistryUnavailable)
	})
}

func (s *RunnerSuite) TestDirectoryReadFailureIsFatal() {
	directory := mocks.NewMockDirectoryStore(s.ctrl)
	s.expectFetch(record("D1", 1))
	directory.EXPECT().FindMigrationCandidates(gomock.Any(), gomock.Any()).Return(nil, nil)
	directory.EXPECT().FindManagedAccounts(gomock.Any()).Return(nil, errors.New("db down"))

	report, err := New(s.registry, directory, s.cfg, WithLogger(discardLogger())).Run(s.ctx)

	s.Require().Error(err)
	s.Contains(report.FatalError, "db down")
	s.Zero(report.Batches)
}

func (s *RunnerSuite) TestLockHeldSkipsCycle() {
	locker := lock.NewLocal()
	release, err := locker.Acquire(s.ctx, CycleLockKey, time.Minute)
	s.Require().NoError(err)
	defer func() { _ = release(s.ctx) }()

	report, err := s.newRunner(WithLocker(locker)).Run(s.ctx)

	s.ErrorIs(err, models.ErrCycleInProgress)
	s.Nil(report)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Cycles.WithLabelValues(metrics.OutcomeSkipped)))
}

func (s *RunnerSuite) TestLockBackendFailure() {
	locker := mocks.NewMockLocker(s.ctrl)
	locker.EXPECT().Acquire(gomock.Any(), CycleLockKey, s.cfg.LockTTL).Return(nil, errors.New("redis down"))

	reports := mocks.NewMockReportStore(s.ctrl)
	var saved *models.RunReport
	reports.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *models.RunReport) error {
		saved = r
		return nil
	})
	accountID := s.create(dirmodels.Account{ExternalID: "I1", AuthDomain: dirmodels.AuthDomainManaged})

	report, err := s.newRunner(WithLocker(locker), WithReportStore(reports)).Run(s.ctx)
	s.Require().Error(err)
	s.NotErrorIs(err, models.ErrCycleInProgress)

	s.Require().NotNil(report, "a failed cycle still produces a report")
	s.True(report.Failed())
	s.Contains(report.FatalError, "redis down")
	s.Equal(models.PhaseDone, report.Phase)
	s.Require().NotNil(saved)
	s.Equal(report.RunID, saved.RunID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Cycles.WithLabelValues(metrics.OutcomeFailed)))
	s.False(s.get(accountID).Suspended)
}

func (s *RunnerSuite) TestFailedChunkIsIsolated() {
	s.cfg.ChunkSize = 2
	var ids []id.AccountID
	for i := 1; i <= 5; i++ {
		ids = append(ids, s.create(dirmodels.Account{ExternalID: id.ExternalID(fmt.Sprintf("I%d", i)), AuthDomain: dirmodels.AuthDomainManaged}))
	}
	s.expectFetch()
	s.directory.onApply = func(_ context.Context, call int) error {
		if call == 1 {
			return errors.New("serialization failure")
		}
		return nil
	}

	report, err := s.newRunner().Run(s.ctx)
	s.Require().NoError(err)

	s.Equal(3, report.Batches)
	s.Equal(1, report.BatchesFailed)
	s.Equal(5, report.PlannedSuspensions)
	s.Equal(3, report.Suspended)
	s.True(s.get(ids[0]).Suspended)
	s.True(s.get(ids[1]).Suspended)
	s.False(s.get(ids[2]).Suspended)
	s.False(s.get(ids[3]).Suspended)
	s.True(s.get(ids[4]).Suspended)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BatchesFailed))
}

func (s *RunnerSuite) TestDeadlineMidScan() {
	const total, scanned = 1000, 400
	records := make([]registrymodels.Record, total)
	for i := range records {
		records[i] = record(fmt.Sprintf("EXT-%04d", i), 1)
	}
	tail := s.create(dirmodels.Account{ExternalID: "EXT-0900", AuthDomain: dirmodels.AuthDomainManaged})
	s.expectFetch(records...)

	report, err := s.newRunner(WithBudgetFactory(func(context.Context, time.Time) Budget {
		return &countingBudget{remaining: scanned}
	})).Run(s.ctx)
	s.Require().NoError(err)

	s.True(report.CutShort)
	s.Equal(models.PhaseReconcilingStatus, report.StoppedIn)
	s.Equal(scanned, report.ProcessedRecords)
	s.Equal(total-scanned, report.UnprocessedRecords)
	s.Equal(scanned, report.ActiveExternalIDs)
	s.Equal(1, report.UnprocessedAccounts)
	s.Zero(report.PlannedSuspensions)
	s.False(s.get(tail).Suspended)
	s.Equal(models.PhaseDone, report.Phase)
}

func (s *RunnerSuite) TestDeadlineBudgetFromConfig() {
	s.cfg.Deadline = time.Minute
	clock := s.now
	s.expectFetch(record("E1", 1), record("E2", 1), record("E3", 1))

	ticks := 0
	runner := New(s.registry, s.directory, s.cfg,
		WithLogger(discardLogger()),
		WithClock(func() time.Time {
			// Every reading moves the clock 45s; the one-minute deadline passes
			// before the status scan finishes.
			ticks++
			return clock.Add(time.Duration(ticks-1) * 45 * time.Second)
		}),
	)
	report, err := runner.Run(s.ctx)
	s.Require().NoError(err)
	s.True(report.CutShort)
	s.Less(report.ProcessedRecords, 3)
	s.Equal(3, report.ProcessedRecords+report.UnprocessedRecords)
}

func (s *RunnerSuite) TestCancellationDrainsComputedDecisions() {
	s.cfg.ChunkSize = 1
	first := s.create(dirmodels.Account{ExternalID: "I1", AuthDomain: dirmodels.AuthDomainManaged})
	second := s.create(dirmodels.Account{ExternalID: "I2", AuthDomain: dirmodels.AuthDomainManaged})
	s.expectFetch()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	var secondCallErr error
	s.directory.onApply = func(ctx context.Context, call int) error {
		switch call {
		case 0:
			cancel()
		case 1:
			secondCallErr = ctx.Err()
		}
		return nil
	}

	report, err := s.newRunner().Run(ctx)
	s.Require().NoError(err)

	s.True(report.Cancelled)
	s.NoError(secondCallErr)
	s.Equal(2, report.Suspended)
	s.True(s.get(first).Suspended)
	s.True(s.get(second).Suspended)
}

func (s *RunnerSuite) TestCancellationBeforeScanApplyNothing() {
	acc := s.create(dirmodels.Account{ExternalID: "I1", AuthDomain: dirmodels.AuthDomainManaged})
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.registry.EXPECT().FetchActiveRecords(gomock.Any()).DoAndReturn(func(context.Context) (*registrymodels.FetchResult, error) {
		cancel()
		return &registrymodels.FetchResult{Records: []registrymodels.Record{record("A1", 1)}}, nil
	})

	report, err := s.newRunner().Run(ctx)
	s.Require().NoError(err)

	s.True(report.Cancelled)
	s.True(report.CutShort)
	s.Equal(1, report.UnprocessedRecords)
	s.Zero(report.Batches)
	s.False(s.get(acc).Suspended)
}

func (s *RunnerSuite) TestPersistenceFailureIsNotFatal() {
	s.expectFetch()
	reports := mocks.NewMockReportStore(s.ctrl)
	publisher := mocks.NewMockReportPublisher(s.ctrl)
	reports.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	publisher.EXPECT().PublishReport(gomock.Any(), gomock.Any()).Return(errors.New("broker gone"))

	report, err := s.newRunner(WithReportStore(reports), WithPublisher(publisher)).Run(s.ctx)
	s.Require().NoError(err)
	s.False(report.Failed())
}

func (s *RunnerSuite) TestLatest() {
	runner := s.newRunner()

	_, err := runner.Latest(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.expectFetch()
	report, err := runner.Run(s.ctx)
	s.Require().NoError(err)

	latest, err := runner.Latest(s.ctx)
	s.Require().NoError(err)
	s.Equal(report.RunID, latest.RunID)

	latest.Migrated = 99
	again, err := runner.Latest(s.ctx)
	s.Require().NoError(err)
	s.Zero(again.Migrated)
}

func (s *RunnerSuite) TestLatestPrefersReportStore() {
	reports := mocks.NewMockReportStore(s.ctrl)
	stored := models.NewRunReport(id.NewRunID(), s.now)
	reports.EXPECT().Latest(gomock.Any()).Return(stored, nil)

	got, err := s.newRunner(WithReportStore(reports)).Latest(s.ctx)
	s.Require().NoError(err)
	s.Equal(stored.RunID, got.RunID)
}

func (s *RunnerSuite) TestPaddedExternalIDIsMigratedAndKept() {
	accountID := s.create(dirmodels.Account{ExternalID: "D1", AuthDomain: dirmodels.AuthDomainOther})
	s.directory.rawExternalIDs = map[id.AccountID]id.ExternalID{accountID: "D1 "}
	s.expectFetch(record("D1", config.StatusActive))

	report, err := s.newRunner().Run(s.ctx)
	s.Require().NoError(err)

	s.Equal(1, report.Migrated)
	s.Zero(report.MissingInDirectory)
	s.Zero(report.PlannedSuspensions)
	s.Zero(report.Suspended)

	got := s.get(accountID)
	s.Equal(dirmodels.AuthDomainManaged, got.AuthDomain)
	s.False(got.Suspended)
}

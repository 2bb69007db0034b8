package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/directory/store"
	"idsync/internal/reconcile/models"
	id "idsync/pkg/domain"
)

// =============================================================================
// Survivor comparator
// =============================================================================

func TestCompareSurvivor(t *testing.T) {
	t1 := time.Unix(1000, 0)
	t2 := time.Unix(2000, 0)

	tests := []struct {
		name string
		a, b dirmodels.Account
		want int
	}{
		{
			name: "later last access wins",
			a:    dirmodels.Account{ID: 1, LastAccessAt: t2},
			b:    dirmodels.Account{ID: 2, LastAccessAt: t1},
			want: 1,
		},
		{
			name: "non-zero last access beats zero",
			a:    dirmodels.Account{ID: 1, LastAccessAt: t1},
			b:    dirmodels.Account{ID: 2, LastLoginAt: t2, CreatedAt: t2},
			want: 1,
		},
		{
			name: "last login breaks equal access",
			a:    dirmodels.Account{ID: 1, LastAccessAt: t1, LastLoginAt: t1},
			b:    dirmodels.Account{ID: 2, LastAccessAt: t1, LastLoginAt: t2},
			want: -1,
		},
		{
			name: "created at breaks equal access and login",
			a:    dirmodels.Account{ID: 1, CreatedAt: t2},
			b:    dirmodels.Account{ID: 2, CreatedAt: t1},
			want: 1,
		},
		{
			name: "identical timestamps fall back to higher id",
			a:    dirmodels.Account{ID: 7, LastAccessAt: t1},
			b:    dirmodels.Account{ID: 3, LastAccessAt: t1},
			want: 1,
		},
		{
			name: "all zero falls back to id",
			a:    dirmodels.Account{ID: 1},
			b:    dirmodels.Account{ID: 2},
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareSurvivor(&tt.a, &tt.b))
			assert.Equal(t, -tt.want, compareSurvivor(&tt.b, &tt.a))
		})
	}
}

func TestPickSurvivorIgnoresInputOrder(t *testing.T) {
	x := &dirmodels.Account{ID: 1, LastAccessAt: time.Unix(1000, 0)}
	y := &dirmodels.Account{ID: 2, LastAccessAt: time.Unix(2000, 0)}
	z := &dirmodels.Account{ID: 3}

	orders := [][]*dirmodels.Account{
		{x, y, z}, {x, z, y}, {y, x, z}, {y, z, x}, {z, x, y}, {z, y, x},
	}
	for _, order := range orders {
		assert.Equal(t, y.ID, pickSurvivor(order).ID)
	}
}

// =============================================================================
// Duplicate Resolver Test Suite
// =============================================================================
// Justification: the resolver owns the only suspend/pending-activation
// decisions the engine makes. Tests cover the documented scenarios plus the
// no-reactivation and idempotence guarantees.

type DuplicateResolverSuite struct {
	suite.Suite
	resolver *DuplicateResolver
	ctx      context.Context
}

func TestDuplicateResolverSuite(t *testing.T) {
	suite.Run(t, new(DuplicateResolverSuite))
}

func (s *DuplicateResolverSuite) SetupTest() {
	s.resolver = NewDuplicateResolver(discardLogger())
	s.ctx = context.Background()
}

func managed(accountID int64, ext string) *dirmodels.Account {
	return &dirmodels.Account{ID: id.AccountID(accountID), ExternalID: id.ExternalID(ext), AuthDomain: dirmodels.AuthDomainManaged}
}

func decisionsByAccount(ds []models.Decision) map[id.AccountID]models.Decision {
	out := make(map[id.AccountID]models.Decision, len(ds))
	for _, d := range ds {
		out[d.AccountID] = d
	}
	return out
}

func (s *DuplicateResolverSuite) TestActiveDuplicateGroup() {
	s.Run("most recent access survives, other is suspended", func() {
		x := managed(1, "D2")
		x.LastAccessAt = time.Unix(1000, 0)
		y := managed(2, "D2")
		y.LastAccessAt = time.Unix(2000, 0)

		res := s.resolver.Resolve(s.ctx, []*dirmodels.Account{x, y}, activeView([]string{"D2"}), unlimited{})

		s.Equal(1, res.Groups)
		s.Require().Len(res.Decisions, 1)
		s.Equal(x.ID, res.Decisions[0].AccountID)
		s.Equal(dirmodels.MutationSuspend, res.Decisions[0].Kind)
		s.Equal(models.ReasonDuplicateLoser, res.Decisions[0].Reason)
	})

	s.Run("suspended survivor is flagged, not reactivated", func() {
		x := managed(1, "D2")
		x.LastAccessAt = time.Unix(1000, 0)
		y := managed(2, "D2")
		y.LastAccessAt = time.Unix(2000, 0)
		y.Suspended = true

		res := s.resolver.Resolve(s.ctx, []*dirmodels.Account{x, y}, activeView([]string{"D2"}), unlimited{})

		got := decisionsByAccount(res.Decisions)
		s.Require().Len(got, 2)
		s.Equal(dirmodels.MutationSuspend, got[x.ID].Kind)
		s.Equal(dirmodels.MutationPendingActivation, got[y.ID].Kind)
		s.Equal(models.ReasonSuspendedSurvivor, got[y.ID].Reason)
	})

	s.Run("already suspended losers need nothing", func() {
		x := managed(1, "D2")
		x.Suspended = true
		y := managed(2, "D2")
		y.LastAccessAt = time.Unix(2000, 0)

		res := s.resolver.Resolve(s.ctx, []*dirmodels.Account{x, y}, activeView([]string{"D2"}), unlimited{})
		s.Empty(res.Decisions)
	})
}

func (s *DuplicateResolverSuite) TestInactiveDuplicateGroup() {
	a := managed(1, "D3")
	b := managed(2, "D3")
	c := managed(3, "D3")
	c.Suspended = true

	res := s.resolver.Resolve(s.ctx, []*dirmodels.Account{a, b, c}, activeView(nil), unlimited{})

	got := decisionsByAccount(res.Decisions)
	s.Len(got, 2)
	s.Equal(models.ReasonInactiveDuplicate, got[a.ID].Reason)
	s.Equal(models.ReasonInactiveDuplicate, got[b.ID].Reason)
	s.NotContains(got, c.ID)
}

func (s *DuplicateResolverSuite) TestSingleAccounts() {
	active := managed(1, "A1")
	activeSuspended := managed(2, "A2")
	activeSuspended.Suspended = true
	alreadyFlagged := managed(3, "A3")
	alreadyFlagged.Suspended = true
	alreadyFlagged.PendingActivation = true
	inactive := managed(4, "I1")
	noExternal := managed(5, "")
	unknown := managed(6, "U1")

	accounts := []*dirmodels.Account{active, activeSuspended, alreadyFlagged, inactive, noExternal, unknown}
	res := s.resolver.Resolve(s.ctx, accounts, activeView([]string{"A1", "A2", "A3"}, "U1"), unlimited{})

	got := decisionsByAccount(res.Decisions)
	s.Len(got, 3)
	s.Equal(dirmodels.MutationPendingActivation, got[activeSuspended.ID].Kind)
	s.Equal(models.ReasonSuspendedActiveMatch, got[activeSuspended.ID].Reason)
	s.Equal(models.ReasonNotActive, got[inactive.ID].Reason)
	s.Equal(models.ReasonNoExternalID, got[noExternal.ID].Reason)
	s.NotContains(got, active.ID)
	s.NotContains(got, alreadyFlagged.ID)
	s.NotContains(got, unknown.ID, "unscanned identities are not treated as inactive")
}

func (s *DuplicateResolverSuite) TestNeverPlansReactivation() {
	accounts := []*dirmodels.Account{managed(1, "A1"), managed(2, "A1"), managed(3, "B1")}
	for _, acc := range accounts {
		acc.Suspended = true
	}

	res := s.resolver.Resolve(s.ctx, accounts, activeView([]string{"A1", "B1"}), unlimited{})
	for _, d := range res.Decisions {
		s.Equal(dirmodels.MutationPendingActivation, d.Kind)
	}
}

func (s *DuplicateResolverSuite) TestPaddedExternalIDsGroupTogether() {
	x := managed(1, "D1 ")
	x.LastAccessAt = time.Unix(1000, 0)
	y := managed(2, " D1")
	y.LastAccessAt = time.Unix(2000, 0)

	res := s.resolver.Resolve(s.ctx, []*dirmodels.Account{x, y}, activeView([]string{"D1"}), unlimited{})

	s.Equal(1, res.Groups)
	got := decisionsByAccount(res.Decisions)
	s.Require().Len(got, 1)
	s.Equal(models.ReasonDuplicateLoser, got[x.ID].Reason)
	s.NotContains(got, y.ID)
}

func (s *DuplicateResolverSuite) TestSkipsDeletedAndUnmanaged() {
	deleted := managed(1, "D1")
	deleted.Deleted = true
	other := managed(2, "D1")
	other.AuthDomain = dirmodels.AuthDomainOther

	res := s.resolver.Resolve(s.ctx, []*dirmodels.Account{deleted, other}, activeView(nil), unlimited{})
	s.Empty(res.Decisions)
}

func (s *DuplicateResolverSuite) TestBudgetCutsScan() {
	accounts := []*dirmodels.Account{
		managed(1, "A"), managed(2, "B"), managed(3, "B"), managed(4, "C"),
	}

	// Groups are visited in external id order: A, B, C.
	res := s.resolver.Resolve(s.ctx, accounts, activeView(nil), &countingBudget{remaining: 1})

	s.True(res.CutShort)
	s.Equal(3, res.Unprocessed)
	s.Require().Len(res.Decisions, 1)
	s.Equal(id.AccountID(1), res.Decisions[0].AccountID)
}

func (s *DuplicateResolverSuite) TestSecondRunChangesNothing() {
	directory := store.NewInMemory()
	seed := []dirmodels.Account{
		{ExternalID: "D2", AuthDomain: dirmodels.AuthDomainManaged, LastAccessAt: time.Unix(1000, 0)},
		{ExternalID: "D2", AuthDomain: dirmodels.AuthDomainManaged, LastAccessAt: time.Unix(2000, 0), Suspended: true},
		{ExternalID: "D3", AuthDomain: dirmodels.AuthDomainManaged},
		{ExternalID: "D3", AuthDomain: dirmodels.AuthDomainManaged},
		{ExternalID: "A1", AuthDomain: dirmodels.AuthDomainManaged, Suspended: true},
		{ExternalID: "", AuthDomain: dirmodels.AuthDomainManaged},
	}
	for i := range seed {
		_, err := directory.Create(s.ctx, &seed[i])
		s.Require().NoError(err)
	}
	view := activeView([]string{"D2", "A1"})

	apply := func() []models.Decision {
		accounts, err := directory.FindManagedAccounts(s.ctx)
		s.Require().NoError(err)
		res := s.resolver.Resolve(s.ctx, accounts, view, unlimited{})
		muts := make([]dirmodels.Mutation, 0, len(res.Decisions))
		for _, d := range res.Decisions {
			muts = append(muts, d.Mutation())
		}
		if len(muts) > 0 {
			s.Require().NoError(directory.ApplyBatch(s.ctx, muts, time.Now()))
		}
		return res.Decisions
	}

	first := apply()
	s.NotEmpty(first)
	before, err := directory.FindManagedAccounts(s.ctx)
	s.Require().NoError(err)

	second := apply()
	s.Empty(second)
	after, err := directory.FindManagedAccounts(s.ctx)
	s.Require().NoError(err)
	require.Equal(s.T(), len(before), len(after))
	for i := range before {
		s.Equal(before[i].Suspended, after[i].Suspended)
		s.Equal(before[i].PendingActivation, after[i].PendingActivation)
	}
}

package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/reconcile/models"
	id "idsync/pkg/domain"
)

// ActiveView is what the duplicate pass needs from the status scan.
type ActiveView interface {
	IsActive(ext id.ExternalID) bool
	IsUnknown(ext id.ExternalID) bool
}

// DuplicateResult is the decision set plus scan bookkeeping.
type DuplicateResult struct {
	Decisions   []models.Decision
	Groups      int
	Unprocessed int
	CutShort    bool
}

// DuplicateResolver keeps at most one active managed account per external id
// and derives the suspend/pending-activation decisions for the managed set.
// It never plans a reactivation.
type DuplicateResolver struct {
	logger *slog.Logger
}

func NewDuplicateResolver(logger *slog.Logger) *DuplicateResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateResolver{logger: logger}
}

type accountGroup struct {
	ext      id.ExternalID
	accounts []*dirmodels.Account
}

// Resolve plans decisions for managed, non-deleted accounts. Accounts whose
// external id the status scan never reached are left alone this cycle.
func (d *DuplicateResolver) Resolve(ctx context.Context, accounts []*dirmodels.Account, active ActiveView, budget Budget) *DuplicateResult {
	groups := groupByExternalID(accounts)
	result := &DuplicateResult{}

	for i, g := range groups {
		if budget.Exhausted() {
			result.CutShort = true
			for _, rest := range groups[i:] {
				result.Unprocessed += len(rest.accounts)
			}
			d.logger.WarnContext(ctx, "duplicate resolution stopped by budget",
				"unprocessed_accounts", result.Unprocessed,
			)
			break
		}

		if g.ext.IsZero() {
			for _, acc := range g.accounts {
				result.Decisions = appendSuspend(result.Decisions, acc, models.ReasonNoExternalID)
			}
			continue
		}
		if active.IsUnknown(g.ext) {
			continue
		}

		isActive := active.IsActive(g.ext)
		if len(g.accounts) == 1 {
			acc := g.accounts[0]
			if isActive {
				result.Decisions = appendPending(result.Decisions, acc, models.ReasonSuspendedActiveMatch)
			} else {
				result.Decisions = appendSuspend(result.Decisions, acc, models.ReasonNotActive)
			}
			continue
		}

		result.Groups++
		if !isActive {
			for _, acc := range g.accounts {
				result.Decisions = appendSuspend(result.Decisions, acc, models.ReasonInactiveDuplicate)
			}
			continue
		}

		survivor := pickSurvivor(g.accounts)
		for _, acc := range g.accounts {
			if acc.ID == survivor.ID {
				result.Decisions = appendPending(result.Decisions, acc, models.ReasonSuspendedSurvivor)
				continue
			}
			result.Decisions = appendSuspend(result.Decisions, acc, models.ReasonDuplicateLoser)
		}
		d.logger.DebugContext(ctx, "duplicate group resolved",
			"external_id", g.ext,
			"size", len(g.accounts),
			"survivor", survivor.ID,
		)
	}
	return result
}

// groupByExternalID returns groups ordered by external id; accounts inside a
// group are ordered by id. Keys are trimmed so grouping agrees with the
// registry join in migration. Deleted and non-managed accounts are dropped.
func groupByExternalID(accounts []*dirmodels.Account) []accountGroup {
	byExt := make(map[id.ExternalID][]*dirmodels.Account)
	for _, acc := range accounts {
		if acc == nil || acc.Deleted || !acc.IsManaged() {
			continue
		}
		ext := id.NewExternalID(acc.ExternalID.String())
		byExt[ext] = append(byExt[ext], acc)
	}

	groups := make([]accountGroup, 0, len(byExt))
	for ext, accs := range byExt {
		slices.SortFunc(accs, func(a, b *dirmodels.Account) int {
			return cmp.Compare(a.ID, b.ID)
		})
		groups = append(groups, accountGroup{ext: ext, accounts: accs})
	}
	slices.SortFunc(groups, func(a, b accountGroup) int {
		return cmp.Compare(a.ext, b.ext)
	})
	return groups
}

func appendSuspend(ds []models.Decision, acc *dirmodels.Account, reason models.Reason) []models.Decision {
	if acc.Suspended {
		return ds
	}
	return append(ds, models.Decision{
		AccountID:  acc.ID,
		ExternalID: acc.ExternalID,
		Kind:       dirmodels.MutationSuspend,
		Reason:     reason,
	})
}

// appendPending flags a suspended account that should be active. Active
// accounts and accounts already flagged need nothing.
func appendPending(ds []models.Decision, acc *dirmodels.Account, reason models.Reason) []models.Decision {
	if !acc.Suspended || acc.PendingActivation {
		return ds
	}
	return append(ds, models.Decision{
		AccountID:  acc.ID,
		ExternalID: acc.ExternalID,
		Kind:       dirmodels.MutationPendingActivation,
		Reason:     reason,
	})
}

// pickSurvivor returns the greatest account under compareSurvivor.
func pickSurvivor(accounts []*dirmodels.Account) *dirmodels.Account {
	survivor := accounts[0]
	for _, acc := range accounts[1:] {
		if compareSurvivor(acc, survivor) > 0 {
			survivor = acc
		}
	}
	return survivor
}

// compareSurvivor is a total order over accounts sharing an external id.
// It compares lastAccessAt, then lastLoginAt, then createdAt; for each a
// non-zero time beats a zero one and the later time wins. Equal timestamps
// fall back to the higher account id. Positive means a ranks above b.
func compareSurvivor(a, b *dirmodels.Account) int {
	if c := compareRecency(a.LastAccessAt, b.LastAccessAt); c != 0 {
		return c
	}
	if c := compareRecency(a.LastLoginAt, b.LastLoginAt); c != 0 {
		return c
	}
	if c := compareRecency(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareRecency(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case b.IsZero():
		return 1
	case a.IsZero():
		return -1
	}
	return a.Compare(b)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dirmodels "idsync/internal/directory/models"
	"idsync/internal/reconcile/models"
	registrymodels "idsync/internal/registry/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// StatusPolicy decides which registry statuses count as active and how they
// are bucketed for reporting.
type StatusPolicy struct {
	Active map[registrymodels.StatusCode]struct{}
	Labels map[registrymodels.StatusCode]string
}

// NewStatusPolicy builds a policy from configured integer codes.
func NewStatusPolicy(active []int, labels map[int]string) StatusPolicy {
	p := StatusPolicy{
		Active: make(map[registrymodels.StatusCode]struct{}, len(active)),
		Labels: make(map[registrymodels.StatusCode]string, len(labels)),
	}
	for _, c := range active {
		p.Active[registrymodels.StatusCode(c)] = struct{}{}
	}
	for c, l := range labels {
		p.Labels[registrymodels.StatusCode(c)] = l
	}
	return p
}

// IsActive reports whether code is on the active allow-list.
func (p StatusPolicy) IsActive(code registrymodels.StatusCode) bool {
	_, ok := p.Active[code]
	return ok
}

// Label returns the reporting bucket for code.
func (p StatusPolicy) Label(code registrymodels.StatusCode) string {
	if l, ok := p.Labels[code]; ok && l != "" {
		return l
	}
	return models.OtherStatusLabel
}

// StatusResult is the outcome of one status scan.
type StatusResult struct {
	// Active maps external ids the registry reports as active to their status.
	Active map[id.ExternalID]registrymodels.StatusCode
	// Unknown holds external ids of records the scan never reached. They are
	// neither active nor inactive for this cycle.
	Unknown     map[id.ExternalID]struct{}
	Missing     []id.ExternalID
	Stats       map[string]models.StatusStat
	Processed   int
	Unprocessed int
	CutShort    bool
}

// IsActive reports whether ext is in the active set.
func (r *StatusResult) IsActive(ext id.ExternalID) bool {
	_, ok := r.Active[ext]
	return ok
}

// IsUnknown reports whether ext belongs to a record the scan did not reach.
func (r *StatusResult) IsUnknown(ext id.ExternalID) bool {
	_, ok := r.Unknown[ext]
	return ok
}

// StatusReconciler classifies registry records against the active policy and
// finds active people with no managed account.
type StatusReconciler struct {
	policy StatusPolicy
	logger *slog.Logger
}

func NewStatusReconciler(policy StatusPolicy, logger *slog.Logger) *StatusReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusReconciler{policy: policy, logger: logger}
}

// Reconcile scans records in order. The budget is checked before each record:
// a record is either fully processed (stats, active set, missing check) or
// fully excluded and counted as unprocessed.
func (s *StatusReconciler) Reconcile(ctx context.Context, records []registrymodels.Record, lookup AccountLookup, budget Budget) (*StatusResult, error) {
	result := &StatusResult{
		Active:  make(map[id.ExternalID]registrymodels.StatusCode),
		Unknown: make(map[id.ExternalID]struct{}),
		Stats:   make(map[string]models.StatusStat),
	}

	for i, rec := range records {
		if budget.Exhausted() {
			result.CutShort = true
			result.Unprocessed = len(records) - i
			for _, rest := range records[i:] {
				result.Unknown[rest.ExternalID] = struct{}{}
			}
			s.logger.WarnContext(ctx, "status scan stopped by budget",
				"processed", i,
				"unprocessed", result.Unprocessed,
			)
			break
		}

		label := s.policy.Label(rec.StatusCode)
		stat := result.Stats[label]
		stat.Seen++

		if s.policy.IsActive(rec.StatusCode) {
			result.Active[rec.ExternalID] = rec.StatusCode
			_, err := lookup.FindByExternalID(ctx, rec.ExternalID)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				stat.Missing++
				result.Missing = append(result.Missing, rec.ExternalID)
			case err != nil:
				return nil, fmt.Errorf("look up external id %s: %w", rec.ExternalID, err)
			}
		}

		result.Stats[label] = stat
		result.Processed++
	}
	return result, nil
}

// accountIndex answers FindByExternalID from an already-loaded managed set so
// the status scan does not issue one query per registry record.
type accountIndex map[id.ExternalID]*dirmodels.Account

func newAccountIndex(accounts []*dirmodels.Account) accountIndex {
	idx := make(accountIndex, len(accounts))
	for _, acc := range accounts {
		ext := id.NewExternalID(acc.ExternalID.String())
		if acc.Deleted || !acc.IsManaged() || ext.IsZero() {
			continue
		}
		if cur, ok := idx[ext]; !ok || acc.ID < cur.ID {
			idx[ext] = acc
		}
	}
	return idx
}

func (idx accountIndex) FindByExternalID(_ context.Context, externalID id.ExternalID) (*dirmodels.Account, error) {
	if acc, ok := idx[id.NewExternalID(externalID.String())]; ok {
		return acc, nil
	}
	return nil, sentinel.ErrNotFound
}

package models

import (
	"maps"
	"time"

	id "idsync/pkg/domain"
)

// OtherStatusLabel buckets status codes outside the configured named set.
const OtherStatusLabel = "other"

// StatusStat counts registry records and missing accounts for one status.
type StatusStat struct {
	Seen    int `json:"seen"`
	Missing int `json:"missing"`
}

// RunReport is the per-cycle snapshot. The runner fills it while the cycle
// progresses and hands out copies once the cycle is done.
type RunReport struct {
	RunID      id.RunID  `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Phase      Phase     `json:"phase"`

	// CutShort is true when the deadline or cancellation stopped a scan.
	CutShort   bool   `json:"cut_short"`
	Cancelled  bool   `json:"cancelled"`
	StoppedIn  Phase  `json:"stopped_in,omitempty"`
	FatalError string `json:"fatal_error,omitempty"`

	TotalRecords       int `json:"total_records"`
	QuarantinedRecords int `json:"quarantined_records"`
	ProcessedRecords   int `json:"processed_records"`
	UnprocessedRecords int `json:"unprocessed_records"`
	ActiveExternalIDs  int `json:"active_external_ids"`
	MissingInDirectory int `json:"missing_in_directory"`

	StatusStats map[string]StatusStat `json:"status_stats"`

	Migrated             int `json:"migrated"`
	MigrationSkipped     int `json:"migration_skipped"`
	MigrationFailed      int `json:"migration_failed"`
	MigrationUnprocessed int `json:"migration_unprocessed"`

	DuplicateGroups     int `json:"duplicate_groups"`
	UnprocessedAccounts int `json:"unprocessed_accounts"`

	PlannedSuspensions int `json:"planned_suspensions"`
	PlannedPending     int `json:"planned_pending_activations"`
	Suspended          int `json:"suspended"`
	PendingActivation  int `json:"pending_activation"`
	Batches            int `json:"batches"`
	BatchesFailed      int `json:"batches_failed"`

	FinalActive    int `json:"final_active"`
	FinalSuspended int `json:"final_suspended"`
}

// NewRunReport creates an empty report for a cycle starting at startedAt.
func NewRunReport(runID id.RunID, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:       runID,
		StartedAt:   startedAt,
		Phase:       PhaseIdle,
		StatusStats: make(map[string]StatusStat),
	}
}

// Clone returns a deep copy safe to hand to readers.
func (r *RunReport) Clone() *RunReport {
	if r == nil {
		return nil
	}
	cp := *r
	cp.StatusStats = maps.Clone(r.StatusStats)
	if cp.StatusStats == nil {
		cp.StatusStats = make(map[string]StatusStat)
	}
	return &cp
}

// Duration is the wall-clock length of the cycle.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether a fatal error stopped the cycle.
func (r *RunReport) Failed() bool {
	return r.FatalError != ""
}

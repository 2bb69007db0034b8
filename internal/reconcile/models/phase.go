package models

// Phase is a state of the cycle state machine:
// Idle -> FetchingRegistry -> MigratingAccounts -> ReconcilingStatus ->
// ResolvingDuplicates -> ApplyingBatches -> Done.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseFetchingRegistry    Phase = "fetching_registry"
	PhaseMigratingAccounts   Phase = "migrating_accounts"
	PhaseReconcilingStatus   Phase = "reconciling_status"
	PhaseResolvingDuplicates Phase = "resolving_duplicates"
	PhaseApplyingBatches     Phase = "applying_batches"
	PhaseDone                Phase = "done"
)

var phaseOrder = map[Phase]int{
	PhaseIdle:                0,
	PhaseFetchingRegistry:    1,
	PhaseMigratingAccounts:   2,
	PhaseReconcilingStatus:   3,
	PhaseResolvingDuplicates: 4,
	PhaseApplyingBatches:     5,
	PhaseDone:                6,
}

// CanTransition reports whether the state machine allows from -> to. Phases
// only move forward; scanning phases are skipped once the budget is spent.
func CanTransition(from, to Phase) bool {
	f, okFrom := phaseOrder[from]
	t, okTo := phaseOrder[to]
	return okFrom && okTo && t > f
}

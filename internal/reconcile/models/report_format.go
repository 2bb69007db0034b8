package models

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"
)

// WriteText renders the report as an aligned operator summary.
func (r *RunReport) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	outcome := "completed"
	switch {
	case r.Failed():
		outcome = "failed"
	case r.Cancelled:
		outcome = "cancelled"
	case r.CutShort:
		outcome = "cut short"
	}

	fmt.Fprintf(tw, "run\t%s\n", r.RunID)
	fmt.Fprintf(tw, "started\t%s\n", r.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(tw, "duration\t%s\n", r.Duration())
	fmt.Fprintf(tw, "outcome\t%s\n", outcome)
	if r.StoppedIn != "" {
		fmt.Fprintf(tw, "stopped in\t%s\n", r.StoppedIn)
	}
	if r.FatalError != "" {
		fmt.Fprintf(tw, "fatal error\t%s\n", r.FatalError)
	}

	fmt.Fprintln(tw, "\nregistry\t")
	fmt.Fprintf(tw, "  records\t%d\n", r.TotalRecords)
	fmt.Fprintf(tw, "  quarantined\t%d\n", r.QuarantinedRecords)
	fmt.Fprintf(tw, "  processed\t%d\n", r.ProcessedRecords)
	fmt.Fprintf(tw, "  unprocessed\t%d\n", r.UnprocessedRecords)
	fmt.Fprintf(tw, "  active ids\t%d\n", r.ActiveExternalIDs)
	fmt.Fprintf(tw, "  missing in directory\t%d\n", r.MissingInDirectory)

	if len(r.StatusStats) > 0 {
		fmt.Fprintln(tw, "\nstatus\tseen\tmissing")
		labels := make([]string, 0, len(r.StatusStats))
		for label := range r.StatusStats {
			labels = append(labels, label)
		}
		slices.Sort(labels)
		for _, label := range labels {
			st := r.StatusStats[label]
			fmt.Fprintf(tw, "  %s\t%d\t%d\n", strings.ToLower(label), st.Seen, st.Missing)
		}
	}

	fmt.Fprintln(tw, "\nmigration\t")
	fmt.Fprintf(tw, "  migrated\t%d\n", r.Migrated)
	fmt.Fprintf(tw, "  skipped\t%d\n", r.MigrationSkipped)
	fmt.Fprintf(tw, "  failed\t%d\n", r.MigrationFailed)
	fmt.Fprintf(tw, "  unprocessed\t%d\n", r.MigrationUnprocessed)

	fmt.Fprintln(tw, "\ndecisions\t")
	fmt.Fprintf(tw, "  duplicate groups\t%d\n", r.DuplicateGroups)
	fmt.Fprintf(tw, "  unprocessed accounts\t%d\n", r.UnprocessedAccounts)
	fmt.Fprintf(tw, "  suspended\t%d/%d\n", r.Suspended, r.PlannedSuspensions)
	fmt.Fprintf(tw, "  pending activation\t%d/%d\n", r.PendingActivation, r.PlannedPending)
	fmt.Fprintf(tw, "  batches failed\t%d/%d\n", r.BatchesFailed, r.Batches)

	fmt.Fprintln(tw, "\nmanaged domain\t")
	fmt.Fprintf(tw, "  active\t%d\n", r.FinalActive)
	fmt.Fprintf(tw, "  suspended\t%d\n", r.FinalSuspended)

	return tw.Flush()
}

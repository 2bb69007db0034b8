package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"idsync/internal/reconcile/models"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Format string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation cycle and print its report",
		Long: `Run exactly one reconciliation cycle against the configured registry and
directory, then print the run report.

Exits non-zero when the cycle fails fatally (for example when the registry is
unreachable) or when another cycle holds the lock.

Example:
  idsync run --config ./idsync.yaml
  idsync run --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCycle(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "text", "report format (text|json)")
	return cmd
}

func runCycle(cmd *cobra.Command, opts *RunOptions) error {
	if opts.Format != "text" && opts.Format != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
	}
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, runErr := a.runner.Run(ctx)
	if report != nil {
		if err := writeReport(cmd.OutOrStdout(), report, opts.Format); err != nil {
			return err
		}
	}
	return runErr
}

func writeReport(w io.Writer, report *models.RunReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.WriteText(w)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

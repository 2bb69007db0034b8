package cli

import (
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			db, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := applyMigrations(ctx, db); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

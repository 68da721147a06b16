package cli

import (
	"github.com/spf13/cobra"
)

// NewOnceCommand creates the once command.
func NewOnceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single ingestion pass per source and exit",
		Long: `Scan every source once, store unseen records and notify about them.
Exits non-zero when any source failed to scan, store or notify.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApplication(rootOpts, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			results, runErr := application.RunOnce(cmd.Context())
			if err := writeOnce(cmd.OutOrStdout(), rootOpts.Format, results); err != nil {
				return WrapExitError(ExitFailure, "failed to write output", err)
			}
			if runErr != nil {
				return WrapExitError(ExitFailure, "ingestion pass failed", runErr)
			}
			return nil
		},
	}
}

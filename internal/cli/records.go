package cli

import (
	"github.com/spf13/cobra"
)

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "List every record in the dedup store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApplication(rootOpts, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			records, err := application.Records(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load records", err)
			}
			return writeRecords(cmd.OutOrStdout(), rootOpts.Format, records)
		},
	}
}

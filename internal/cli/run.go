package cli

import (
	"github.com/spf13/cobra"

	"TourScanner/internal/config"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Duration string
	Pause    string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll every source until the configured duration elapses",
		Long: `Start one polling loop per configured source. Each loop scans its page,
stores unseen records, notifies about them and pauses before the next pass.
The loops stop once the duration has elapsed or on SIGINT/SIGTERM.

Example:
  tourscanner run --config config.yaml
  tourscanner run --duration forever --pause 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Duration, "duration", "", "override scheduler.duration (Go duration or \"forever\")")
	cmd.Flags().StringVar(&opts.Pause, "pause", "", "override scheduler.pause")

	return cmd
}

func runScheduler(cmd *cobra.Command, opts *RunOptions) error {
	application, err := loadApplication(opts.RootOptions, func(cfg *config.Config) {
		if opts.Duration != "" {
			cfg.Scheduler.Duration = opts.Duration
		}
		if opts.Pause != "" {
			cfg.Scheduler.Pause = opts.Pause
		}
	})
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Run(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "scheduler stopped", err)
	}
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/swift-update-provider/internal/service/checker"
)

var (
	// schedule is the cron spec for periodic checks.
	schedule string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Check the channel periodically.",
		Long: `Runs a check right away and then on every tick of --schedule until interrupted.
Accepts five-field cron specs and descriptors such as "@every 15m" or "@daily".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checker.Watch(cmd.Context(), &checker.WatchOptions{
				Options:  *checkOptions(cmd),
				Schedule: schedule,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	watchCmd.Flags().StringVar(&schedule, "schedule", checker.DefaultSchedule, "cron schedule of the checks")
}

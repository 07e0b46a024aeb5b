package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/swift-update-provider/internal/service/checker"
)

var (
	// currentVersion is the installed version compared with the published one.
	currentVersion string
	// strict turns a missing channel file into a failure.
	strict bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check the channel for a newer release.",
		Long: `Fetches the channel manifest once and prints a YAML report with the published
version, its artifacts and whether it is newer than --current-version.

A missing channel file means "nothing published" unless --strict is set.
Refused connections are retried up to three times, waiting 0s, 1s and 2s.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := checker.Run(cmd.Context(), checkOptions(cmd))
			return err
		},
	}
)

// checkOptions collects the flags shared by check and watch.
func checkOptions(cmd *cobra.Command) *checker.Options {
	return &checker.Options{
		ConfigPath:     configPath,
		Channel:        channel,
		CurrentVersion: currentVersion,
		Strict:         strict,
		MetricsFile:    metricsFile,
		Output:         cmd.OutOrStdout(),
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{checkCmd, watchCmd} {
		c.Flags().StringVar(&currentVersion, "current-version", "", "installed version (semver)")
		c.Flags().BoolVar(&strict, "strict", false, "fail when the channel file does not exist")
	}
}

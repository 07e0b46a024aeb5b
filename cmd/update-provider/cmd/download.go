package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/swift-update-provider/internal/service/updater"
)

var (
	// outputDir receives the downloaded release.
	outputDir string
	// concurrency bounds parallel downloads.
	concurrency int
	// verify enables checksum verification.
	verify bool
	// failIfRunning refuses to overwrite running executables.
	failIfRunning bool

	downloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download every artifact of the latest release.",
		Long: `Fetches the channel manifest, downloads the artifacts it lists into --output
(keeping their relative paths) and finally saves the manifest next to them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := updater.Run(cmd.Context(), &updater.Options{
				ConfigPath:    configPath,
				Channel:       channel,
				OutputDir:     outputDir,
				Concurrency:   concurrency,
				Verify:        verify,
				FailIfRunning: failIfRunning,
				MetricsFile:   metricsFile,
			})
			if err != nil {
				return err
			}

			for _, file := range result.Files {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), file)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Manifest)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := downloadCmd.Flags()
	flags.StringVarP(&outputDir, "output", "o", "release", "directory for the downloaded release")
	flags.IntVar(&concurrency, "concurrency", updater.DefaultConcurrency, "parallel downloads")
	flags.BoolVar(&verify, "verify", true, "check SHA-512 of every artifact")
	flags.BoolVar(&failIfRunning, "fail-if-running", false, "refuse to replace executables that are running")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/swift-update-provider/internal/service/packager"
)

var (
	// releaseVersion is written into the manifest.
	releaseVersion string
	// releaseName and releaseNotes are optional manifest fields.
	releaseName  string
	releaseNotes string
	// stagingPercentage limits the rollout.
	stagingPercentage int
	// packageWithConfig makes package read the configuration for the upload hint.
	packageWithConfig bool

	packageCmd = &cobra.Command{
		Use:   "package <directory> [files...]",
		Short: "Generate the channel manifest for a release directory.",
		Long: `Hashes the artifacts in <directory> (or only the listed files, relative to it)
and writes <channel>.yml next to them, ready to be uploaded to the container.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := &packager.Options{
				Directory:         args[0],
				Files:             args[1:],
				Channel:           channel,
				Version:           releaseVersion,
				ReleaseName:       releaseName,
				ReleaseNotes:      releaseNotes,
				StagingPercentage: stagingPercentage,
			}

			if packageWithConfig {
				options.ConfigPath = configPath
			}

			manifestPath, err := packager.Run(cmd.Context(), options)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), manifestPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := packageCmd.Flags()
	flags.StringVar(&releaseVersion, "version", "", "release version (semver)")
	flags.StringVar(&releaseName, "release-name", "", "release name")
	flags.StringVar(&releaseNotes, "release-notes", "", "release notes")
	flags.IntVar(&stagingPercentage, "staging-percentage", 0, "rollout percentage, 0 for everyone")
	flags.BoolVar(&packageWithConfig, "with-config", false, "read --config to print the upload target")

	if err := packageCmd.MarkFlagRequired("version"); err != nil {
		panic(err)
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/swift-update-provider/internal/config"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel is the minimal level written to stderr.
	logLevel string
	// metricsFile is an optional Prometheus textfile written after each run.
	metricsFile string
	// channel overrides the configured update channel.
	channel string

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd represents the base command; the work happens in subcommands.
	rootCmd = &cobra.Command{
		Use:   "update-provider",
		Short: "Fetch application update info from an OpenStack Swift container.",
		Long: `Reads the channel manifest (<channel>.yml) of an application from object storage,
resolves the artifacts it lists and downloads them.

Storage settings come from the configuration file; the user name and password
are read from the OS_USERNAME and OS_PASSWORD environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the update-provider CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	flags.StringVar(&channel, "channel", "", "update channel, overrides the configuration")

	rootCmd.AddCommand(checkCmd, watchCmd, downloadCmd, packageCmd)
}

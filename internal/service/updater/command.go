package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/swift-update-provider/internal/config"
	"github.com/oshokin/swift-update-provider/internal/domain/update"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/metrics"
	"github.com/oshokin/swift-update-provider/internal/provider"
	"github.com/oshokin/swift-update-provider/internal/service/common"
)

// DefaultConcurrency bounds parallel artifact downloads.
const DefaultConcurrency = 4

// directoryMode is used for the output directory and nested key prefixes.
const directoryMode os.FileMode = 0o755

// errOutputDirRequired is returned when no output directory is given.
var errOutputDirRequired = errors.New("output directory must be provided")

// Options are inputs accepted by the download entry point.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// Channel overrides the configured channel when set.
	Channel string
	// OutputDir receives the artifacts and a copy of the manifest.
	OutputDir string
	// Concurrency bounds parallel downloads; zero means DefaultConcurrency.
	Concurrency int
	// Verify checks every artifact against the checksum from the manifest.
	Verify bool
	// FailIfRunning refuses to replace executables that are running.
	FailIfRunning bool
	// MetricsFile is an optional Prometheus textfile written at the end.
	MetricsFile string
}

// Result summarizes a finished download.
type Result struct {
	// Version is the downloaded release.
	Version string
	// Files are the written artifact paths in manifest order.
	Files []string
	// Manifest is the path of the saved channel file.
	Manifest string
}

// runner holds the state of a single download execution.
type runner struct {
	opts     *Options
	provider *provider.Provider
	metrics  *metrics.Metrics
	marker   string
}

// Run downloads the latest release described by the configured channel.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "download")
	ctx = logger.WithKV(ctx, "check_id", uuid.NewString())

	if opts.OutputDir == "" {
		return nil, errOutputDirRequired
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	m := metrics.New()
	defer common.FlushMetrics(ctx, m, opts.MetricsFile)

	p, err := common.NewProvider(cfg, m)
	if err != nil {
		return nil, err
	}

	if opts.Channel != "" {
		p.SetChannel(opts.Channel)
	}

	u, err := newRunner(ctx, opts, p, m)
	if err != nil {
		return nil, err
	}

	defer u.cleanup(ctx)

	result, err := u.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Download failed", "error", err)
		return nil, err
	}

	logger.InfoKV(ctx, "Download completed", "version", result.Version, "files", len(result.Files))

	return result, nil
}

// newRunner prepares the output directory and claims it with a marker.
func newRunner(ctx context.Context, opts *Options, p *provider.Provider, m *metrics.Metrics) (*runner, error) {
	if err := os.MkdirAll(opts.OutputDir, directoryMode); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	marker, err := acquireMarker(ctx, opts.OutputDir)
	if err != nil {
		return nil, err
	}

	return &runner{
		opts:     opts,
		provider: p,
		metrics:  m,
		marker:   marker,
	}, nil
}

// Run fetches the manifest, downloads every artifact and saves the manifest last,
// so a complete manifest in the output directory means a complete release.
func (u *runner) Run(ctx context.Context) (*Result, error) {
	release, err := u.provider.FetchRelease(ctx, u.provider.ManifestReference())
	if err != nil {
		return nil, err
	}

	info := release.Info

	files, err := u.provider.ResolveFiles(info)
	if err != nil {
		return nil, fmt.Errorf("resolve files: %w", err)
	}

	destinations, err := u.destinations(files)
	if err != nil {
		return nil, err
	}

	if err = u.downloadAll(ctx, files, destinations); err != nil {
		return nil, err
	}

	manifestPath, err := u.saveManifest(release)
	if err != nil {
		return nil, err
	}

	return &Result{
		Version:  info.Version,
		Files:    destinations,
		Manifest: manifestPath,
	}, nil
}

// destinations maps every artifact to a path under the output directory.
func (u *runner) destinations(files []update.ResolvedFileInfo) ([]string, error) {
	result := make([]string, 0, len(files))

	for _, file := range files {
		key, err := provider.ObjectKey(u.provider.BaseURL(), file.URL)
		if err != nil {
			return nil, err
		}

		result = append(result, filepath.Join(u.opts.OutputDir, filepath.FromSlash(key)))
	}

	return result, nil
}

// downloadAll runs bounded parallel downloads and stops at the first failure.
func (u *runner) downloadAll(ctx context.Context, files []update.ResolvedFileInfo, destinations []string) error {
	concurrency := u.opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, file := range files {
		destination := destinations[i]

		group.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(destination), directoryMode); err != nil {
				return fmt.Errorf("%w: %w", provider.ErrFilesystemWrite, err)
			}

			opts := provider.DownloadOptions{FailIfRunning: u.opts.FailIfRunning}
			if u.opts.Verify {
				opts.SHA512 = file.Info.SHA512
			}

			_, err := u.provider.Download(groupCtx, file.URL, destination, opts)

			return err
		})
	}

	return group.Wait()
}

// saveManifest stores the fetched manifest bytes unchanged under the fetched channel filename.
func (u *runner) saveManifest(release *update.Release) (string, error) {
	manifestPath := filepath.Join(u.opts.OutputDir, release.Reference.ChannelFilename)

	//nolint:gosec // Manifest is public release metadata.
	if err := os.WriteFile(manifestPath, release.Data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", provider.ErrFilesystemWrite, err)
	}

	return manifestPath, nil
}

// cleanup removes the marker.
func (u *runner) cleanup(ctx context.Context) {
	if err := os.Remove(u.marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove download marker", "path", u.marker, "error", err)
	}
}

package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/swift-update-provider/internal/config"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/manifest"
	"github.com/oshokin/swift-update-provider/internal/metrics"
	"github.com/oshokin/swift-update-provider/internal/provider"
	"github.com/oshokin/swift-update-provider/internal/service/common"
)

// Options controls a single update check.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Channel overrides the configured channel when set.
	Channel string
	// CurrentVersion is the installed version; empty skips the comparison.
	CurrentVersion string
	// Strict turns a missing channel file into an error instead of "no update".
	Strict bool
	// MetricsFile is an optional Prometheus textfile written after the check.
	MetricsFile string
	// Output receives the YAML report; nil means stdout.
	Output io.Writer
}

// FileReport describes one resolved artifact.
type FileReport struct {
	URL    string `yaml:"url"`
	SHA512 string `yaml:"sha512,omitempty"`
	Size   int64  `yaml:"size,omitempty"`
}

// Report is the outcome of a check.
type Report struct {
	Channel         string       `yaml:"channel"`
	ManifestURL     string       `yaml:"manifest_url"`
	Published       bool         `yaml:"published"`
	Version         string       `yaml:"version,omitempty"`
	ReleaseDate     string       `yaml:"release_date,omitempty"`
	CurrentVersion  string       `yaml:"current_version,omitempty"`
	UpdateAvailable bool         `yaml:"update_available"`
	Files           []FileReport `yaml:"files,omitempty"`
}

// errInvalidVersion is returned when a version cannot be parsed as semver.
var errInvalidVersion = errors.New("invalid semantic version")

// checker runs checks against one provider.
type checker struct {
	opts     *Options
	provider *provider.Provider
	metrics  *metrics.Metrics
	current  *semver.Version
}

// Run performs one check and writes the report.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "check")

	c, err := newChecker(opts)
	if err != nil {
		return nil, err
	}

	defer common.FlushMetrics(ctx, c.metrics, opts.MetricsFile)

	report, err := c.check(ctx)
	if err != nil {
		return nil, err
	}

	if err = c.print(report); err != nil {
		return nil, err
	}

	return report, nil
}

// newChecker loads settings and builds the provider.
func newChecker(opts *Options) (*checker, error) {
	var current *semver.Version

	if opts.CurrentVersion != "" {
		parsed, err := semver.NewVersion(opts.CurrentVersion)
		if err != nil {
			return nil, fmt.Errorf("%w: current version %q: %w", errInvalidVersion, opts.CurrentVersion, err)
		}

		current = parsed
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	m := metrics.New()

	p, err := common.NewProvider(cfg, m)
	if err != nil {
		return nil, err
	}

	if opts.Channel != "" {
		p.SetChannel(opts.Channel)
	}

	return &checker{
		opts:     opts,
		provider: p,
		metrics:  m,
		current:  current,
	}, nil
}

// check fetches the manifest and compares it with the installed version.
func (c *checker) check(ctx context.Context) (*Report, error) {
	ctx = logger.WithKV(ctx, "check_id", uuid.NewString())

	ref := c.provider.ManifestReference()
	report := &Report{
		Channel:     strings.TrimSuffix(ref.ChannelFilename, manifest.Extension),
		ManifestURL: ref.URL.Redacted(),
	}

	if c.current != nil {
		report.CurrentVersion = c.current.String()
	}

	release, err := c.provider.FetchRelease(ctx, ref)

	switch {
	case errors.Is(err, provider.ErrChannelFileNotFound) && !c.opts.Strict:
		logger.WarnKV(ctx, "No update published for channel", "channel", report.Channel, "error", err)
		return report, nil
	case err != nil:
		return nil, err
	}

	info := release.Info

	files, err := c.provider.ResolveFiles(info)
	if err != nil {
		return nil, fmt.Errorf("resolve files: %w", err)
	}

	report.Published = true
	report.Version = info.Version
	report.ReleaseDate = info.ReleaseDate

	for _, file := range files {
		report.Files = append(report.Files, FileReport{
			URL:    file.URL.Redacted(),
			SHA512: file.Info.SHA512,
			Size:   file.Info.Size,
		})
	}

	report.UpdateAvailable, err = isNewer(info.Version, c.current)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Update check finished",
		"version", report.Version,
		"current_version", report.CurrentVersion,
		"update_available", report.UpdateAvailable)

	return report, nil
}

// isNewer reports whether published is newer than current; without a current
// version every published release counts as an update.
func isNewer(published string, current *semver.Version) (bool, error) {
	remote, err := semver.NewVersion(published)
	if err != nil {
		return false, fmt.Errorf("%w: published version %q: %w", errInvalidVersion, published, err)
	}

	if current == nil {
		return true, nil
	}

	return remote.GreaterThan(current), nil
}

// print renders the report as YAML.
func (c *checker) print(report *Report) error {
	out := c.opts.Output
	if out == nil {
		out = os.Stdout
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

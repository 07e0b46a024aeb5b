package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/swift-update-provider/internal/config"
	"github.com/oshokin/swift-update-provider/internal/domain/update"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/manifest"
	"github.com/oshokin/swift-update-provider/internal/provider"
)

// releaseDateLayout matches the timestamps electron-builder writes.
const releaseDateLayout = "2006-01-02T15:04:05.000Z"

// manifestFileMode is applied to the written manifest.
const manifestFileMode os.FileMode = 0o644

var (
	errDirectoryRequired = errors.New("artifact directory must be provided")
	errVersionRequired   = errors.New("release version must be provided")
	errInvalidVersion    = errors.New("invalid semantic version")
	errNoArtifacts       = errors.New("no artifacts found")
	errArtifactOutside   = errors.New("artifact must be inside the artifact directory")
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath optionally points at settings used to print the upload target.
	ConfigPath string
	// Directory holds the release artifacts; the manifest is written there too.
	Directory string
	// Files lists artifacts relative to Directory; empty means every visible file.
	Files []string
	// Channel names the manifest; empty means the platform default channel.
	Channel string
	// Version is the release version (semver).
	Version string
	// ReleaseName and ReleaseNotes are copied into the manifest.
	ReleaseName  string
	ReleaseNotes string
	// StagingPercentage limits the rollout when positive.
	StagingPercentage int
}

// packager prepares update metadata (manifest) for distribution.
type packager struct {
	opts    *Options
	cfg     *config.Config
	channel string
	info    *update.Info
	now     func() time.Time
}

// Run executes the packaging workflow and returns the manifest path.
func Run(ctx context.Context, opts *Options) (string, error) {
	ctx = logger.WithName(ctx, "package")

	pkg, err := newPackager(opts)
	if err != nil {
		return "", fmt.Errorf("initialize packager: %w", err)
	}

	manifestPath, err := pkg.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return manifestPath, nil
}

// newPackager validates options and loads optional settings.
func newPackager(opts *Options) (*packager, error) {
	if opts.Directory == "" {
		return nil, errDirectoryRequired
	}

	if opts.Version == "" {
		return nil, errVersionRequired
	}

	if _, err := semver.StrictNewVersion(strings.TrimPrefix(opts.Version, "v")); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errInvalidVersion, opts.Version, err)
	}

	pkg := &packager{
		opts: opts,
		channel: provider.ResolveChannel(provider.ChannelOptions{
			Configured: opts.Channel,
			GOOS:       runtime.GOOS,
			GOARCH:     runtime.GOARCH,
		}),
		now: time.Now,
	}

	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}

		pkg.cfg = cfg

		if opts.Channel == "" && cfg.Channel != "" {
			pkg.channel = cfg.Channel
		}
	}

	return pkg, nil
}

// Run populates and writes the manifest.
func (p *packager) Run(ctx context.Context) (string, error) {
	logger.InfoKV(ctx, "Preparing update info", "channel", p.channel, "version", p.opts.Version)

	if err := p.fillInfo(); err != nil {
		return "", err
	}

	manifestPath := filepath.Join(p.opts.Directory, manifest.Filename(p.channel))

	logger.InfoKV(ctx, "Saving update info", "path", manifestPath)

	data, err := manifest.Marshal(p.info)
	if err != nil {
		return "", err
	}

	if err = os.WriteFile(manifestPath, data, manifestFileMode); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}

	p.printNextSteps(ctx, manifestPath)

	return manifestPath, nil
}

// fillInfo hashes every artifact; the first one also fills the legacy fields.
func (p *packager) fillInfo() error {
	files, err := p.artifacts()
	if err != nil {
		return err
	}

	p.info = &update.Info{
		Version:           p.opts.Version,
		ReleaseName:       p.opts.ReleaseName,
		ReleaseNotes:      update.ReleaseNotes{Text: p.opts.ReleaseNotes},
		ReleaseDate:       p.now().UTC().Format(releaseDateLayout),
		StagingPercentage: p.opts.StagingPercentage,
		Files:             make([]update.FileInfo, 0, len(files)),
	}

	for _, name := range files {
		checksum, size, err := FileChecksum(filepath.Join(p.opts.Directory, name))
		if err != nil {
			return err
		}

		p.info.Files = append(p.info.Files, update.FileInfo{
			URL:    filepath.ToSlash(name),
			SHA512: checksum,
			Size:   size,
		})
	}

	p.info.Path = p.info.Files[0].URL
	p.info.SHA512 = p.info.Files[0].SHA512

	return nil
}

// artifacts returns the explicit file list or every visible regular file
// under the directory, skipping manifests.
func (p *packager) artifacts() ([]string, error) {
	if len(p.opts.Files) > 0 {
		for _, name := range p.opts.Files {
			if !filepath.IsLocal(name) {
				return nil, fmt.Errorf("%w: %s", errArtifactOutside, name)
			}
		}

		return p.opts.Files, nil
	}

	var files []string

	err := filepath.WalkDir(p.opts.Directory, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != p.opts.Directory && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() || filepath.Ext(path) == manifest.Extension {
			return nil
		}

		name, err := filepath.Rel(p.opts.Directory, path)
		if err != nil {
			return err
		}

		files = append(files, name)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.opts.Directory, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", errNoArtifacts, p.opts.Directory)
	}

	return files, nil
}

// printNextSteps logs human-readable guidance for uploading the release.
func (p *packager) printNextSteps(ctx context.Context, manifestPath string) {
	var builder strings.Builder

	builder.WriteString("You should upload the following files")

	if p.cfg != nil {
		builder.WriteString(" to the container ")
		builder.WriteString(p.cfg.Container)
		builder.WriteString(" (")
		builder.WriteString(p.cfg.BaseURL)
		builder.WriteString(")")
	}

	builder.WriteString(":\n")

	for _, file := range p.info.Files {
		builder.WriteString(file.URL)
		builder.WriteString(",\n")
	}

	builder.WriteString(filepath.Base(manifestPath))
	builder.WriteString("\nUpload the manifest last so clients never see it before its artifacts.")

	logger.Info(ctx, builder.String())
}

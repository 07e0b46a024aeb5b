package provider

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"

	"k8s.io/utils/clock"

	"github.com/oshokin/swift-update-provider/internal/domain/update"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/manifest"
	"github.com/oshokin/swift-update-provider/internal/metrics"
	"github.com/oshokin/swift-update-provider/internal/storage"
)

// ParseFunc turns manifest bytes into update info.
type ParseFunc func(data []byte, filename, url string) (*update.Info, error)

// Settings are the static inputs of a Provider.
type Settings struct {
	// BaseURL is the public URL of the container; artifact URLs are built from it.
	BaseURL string
	// Container is the object-store container holding manifests and artifacts.
	Container string
	// Channel is the statically configured channel; may be empty.
	Channel string
	// NoCache adds a cache-busting query to manifest URLs.
	NoCache bool
	// Credentials open the storage session.
	Credentials storage.Credentials
}

// Provider answers update checks for a host updater.
type Provider struct {
	base              *url.URL
	configuredChannel string
	noCache           bool
	goos              string
	goarch            string
	clock             clock.Clock
	metrics           *metrics.Metrics
	parse             ParseFunc

	fetcher    *ManifestFetcher
	downloader *ArtifactDownloader

	// mu guards runtimeChannel, which the host may change at any time.
	mu             sync.RWMutex
	runtimeChannel string
}

// Option configures a Provider.
type Option func(*Provider)

// WithClock replaces the real clock used for backoff and cache tokens.
func WithClock(clk clock.Clock) Option {
	return func(p *Provider) {
		if clk != nil {
			p.clock = clk
		}
	}
}

// WithMetrics records counters into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithPlatform overrides the platform used for the default channel name.
func WithPlatform(goos, goarch string) Option {
	return func(p *Provider) {
		p.goos = goos
		p.goarch = goarch
	}
}

// WithParser replaces the manifest parser.
func WithParser(parse ParseFunc) Option {
	return func(p *Provider) {
		if parse != nil {
			p.parse = parse
		}
	}
}

// New validates settings and wires the fetcher and downloader to one lazily
// authenticated session.
func New(settings Settings, auth storage.Authenticator, opts ...Option) (*Provider, error) {
	base, err := NewBaseURL(settings.BaseURL)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(settings.Container) == "" {
		return nil, errContainerRequired
	}

	p := &Provider{
		base:              base,
		configuredChannel: settings.Channel,
		noCache:           settings.NoCache,
		goos:              runtime.GOOS,
		goarch:            runtime.GOARCH,
		clock:             clock.RealClock{},
		parse:             manifest.Parse,
	}

	for _, opt := range opts {
		opt(p)
	}

	sessions := newSessionCache(auth, settings.Credentials)
	p.fetcher = NewManifestFetcher(sessions, settings.Container, p.clock, p.metrics)
	p.downloader = NewArtifactDownloader(sessions, settings.Container, base, p.metrics)

	return p, nil
}

// SetChannel sets the runtime channel; an empty value clears the override.
func (p *Provider) SetChannel(channel string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runtimeChannel = channel
}

// Channel resolves the channel for the next check.
func (p *Provider) Channel() string {
	p.mu.RLock()
	runtimeChannel := p.runtimeChannel
	p.mu.RUnlock()

	return ResolveChannel(ChannelOptions{
		Runtime:    runtimeChannel,
		Configured: p.configuredChannel,
		GOOS:       p.goos,
		GOARCH:     p.goarch,
	})
}

// BaseURL returns a copy of the normalized base URL.
func (p *Provider) BaseURL() *url.URL {
	base := *p.base

	return &base
}

// ManifestReference computes the manifest location for the next check.
func (p *Provider) ManifestReference() update.ManifestReference {
	return BuildManifestReference(p.base, p.Channel(), URLOptions{
		NoCache:    p.noCache,
		CacheToken: CacheToken(p.clock.Now()),
	})
}

// GetLatestVersion fetches and parses the manifest of the current channel.
func (p *Provider) GetLatestVersion(ctx context.Context) (*update.Info, error) {
	release, err := p.FetchRelease(ctx, p.ManifestReference())
	if err != nil {
		return nil, err
	}

	return release.Info, nil
}

// FetchRelease fetches and parses the manifest named by ref, keeping the raw bytes.
// Callers that report or store the manifest compute ref once and pass it here.
func (p *Provider) FetchRelease(ctx context.Context, ref update.ManifestReference) (*update.Release, error) {
	ctx = logger.WithKV(ctx, "channel_file", ref.ChannelFilename)

	data, err := p.fetcher.FetchManifest(ctx, ref)
	if err != nil {
		return nil, err
	}

	info, err := p.parse(data, ref.ChannelFilename, ref.URL.String())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ref.ChannelFilename, err)
	}

	logger.InfoKV(ctx, "Update info received", "version", info.Version, "files", len(info.Files))

	return &update.Release{
		Reference: ref,
		Data:      data,
		Info:      info,
	}, nil
}

// ResolveFiles lists the artifacts of info as absolute URLs under the base URL.
func (p *Provider) ResolveFiles(info *update.Info) ([]update.ResolvedFileInfo, error) {
	return ResolveFiles(info, p.base)
}

// Download fetches one artifact into destination and returns its bytes.
func (p *Provider) Download(
	ctx context.Context,
	artifactURL *url.URL,
	destination string,
	opts DownloadOptions,
) ([]byte, error) {
	return p.downloader.DownloadArtifact(ctx, artifactURL, destination, opts)
}

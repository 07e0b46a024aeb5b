package provider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/swift-update-provider/internal/domain/update"
	"github.com/oshokin/swift-update-provider/internal/manifest"
)

// DefaultChannel is used when neither a runtime nor a configured channel is set.
const DefaultChannel = "latest"

// ChannelOptions are the inputs of channel resolution.
type ChannelOptions struct {
	// Runtime is set by the host application and wins over everything else.
	Runtime string
	// Configured comes from static configuration.
	Configured string
	// GOOS and GOARCH select the platform suffix of the default channel.
	GOOS   string
	GOARCH string
}

// URLOptions control query handling when building URLs from the base URL.
type URLOptions struct {
	// NoCache appends noCache=<CacheToken> unless the base URL has its own query.
	NoCache bool
	// CacheToken is the cache-busting value; see CacheToken.
	CacheToken string
}

// ResolveChannel picks the channel for one check: runtime > configured > platform default.
func ResolveChannel(opts ChannelOptions) string {
	if channel := strings.TrimSpace(opts.Runtime); channel != "" {
		return channel
	}

	if channel := strings.TrimSpace(opts.Configured); channel != "" {
		return channel
	}

	return DefaultChannel + platformSuffix(opts.GOOS, opts.GOARCH)
}

// platformSuffix follows the electron-builder channel file naming:
// latest.yml on Windows, latest-mac.yml on macOS, latest-linux[-arch].yml on Linux.
func platformSuffix(goos, goarch string) string {
	switch goos {
	case "linux":
		switch goarch {
		case "", "amd64":
			return "-linux"
		case "386":
			return "-linux-ia32"
		case "arm":
			return "-linux-armv7l"
		default:
			return "-linux-" + goarch
		}
	case "darwin":
		return "-mac"
	default:
		return ""
	}
}

// NewBaseURL parses raw and makes sure its path ends with a slash,
// so relative references resolve inside it.
func NewBaseURL(raw string) (*url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", errBaseURLNotAbsolute, raw)
	}

	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		base.RawPath = ""
	}

	base.Fragment = ""

	return base, nil
}

// BuildManifestReference maps a channel to its manifest file under base.
// The result depends only on its arguments.
func BuildManifestReference(base *url.URL, channel string, opts URLOptions) update.ManifestReference {
	filename := manifest.Filename(channel)

	manifestURL := *base
	manifestURL.Path = base.Path + filename
	manifestURL.RawPath = ""
	applyQuery(&manifestURL, base, opts)

	return update.ManifestReference{
		ChannelFilename: filename,
		URL:             &manifestURL,
	}
}

// CacheToken renders a timestamp as a short cache-busting value.
func CacheToken(now time.Time) string {
	//nolint:mnd // Base 32 keeps the token short.
	return strconv.FormatInt(now.UnixMilli(), 32)
}

// applyQuery keeps the base query when there is one, otherwise adds noCache on request.
func applyQuery(target, base *url.URL, opts URLOptions) {
	switch {
	case base.RawQuery != "":
		target.RawQuery = base.RawQuery
	case opts.NoCache && opts.CacheToken != "":
		target.RawQuery = url.Values{"noCache": []string{opts.CacheToken}}.Encode()
	}
}

package update

import "net/url"

// FileInfo is one artifact entry of a channel manifest.
type FileInfo struct {
	// URL is the artifact reference relative to the base URL.
	URL string `yaml:"url"`
	// SHA512 is the base64-encoded SHA-512 of the artifact.
	SHA512 string `yaml:"sha512,omitempty"`
	// Size is the artifact size in bytes.
	Size int64 `yaml:"size,omitempty"`
	// IsAdminRightsRequired tells Windows installers to elevate.
	IsAdminRightsRequired bool `yaml:"isAdminRightsRequired,omitempty"`
	// Extra keeps every other key of the entry (blockMapSize and the like) as-is.
	Extra map[string]any `yaml:",inline"`
}

// Info is the parsed channel manifest.
type Info struct {
	// Version is the version of the published release.
	Version string `yaml:"version"`
	// Files lists artifacts in manifest order.
	Files []FileInfo `yaml:"files,omitempty"`
	// Path is the legacy single-artifact reference, used when Files is empty.
	Path string `yaml:"path,omitempty"`
	// SHA512 is the checksum of Path.
	SHA512 string `yaml:"sha512,omitempty"`
	// ReleaseName is an optional human readable title.
	ReleaseName string `yaml:"releaseName,omitempty"`
	// ReleaseNotes is free text or a list of per-version notes.
	ReleaseNotes ReleaseNotes `yaml:"releaseNotes,omitempty"`
	// ReleaseDate is the publication timestamp as written by the packager.
	ReleaseDate string `yaml:"releaseDate,omitempty"`
	// StagingPercentage limits rollout; zero means unset.
	StagingPercentage int `yaml:"stagingPercentage,omitempty"`
	// Extra keeps unknown top-level keys.
	Extra map[string]any `yaml:",inline"`
}

// FileList returns Files, or a single entry built from the legacy Path.
// The second result is false when the manifest references no files.
func (i *Info) FileList() ([]FileInfo, bool) {
	if i == nil {
		return nil, false
	}

	if len(i.Files) > 0 {
		return i.Files, true
	}

	if i.Path != "" {
		return []FileInfo{{URL: i.Path, SHA512: i.SHA512}}, true
	}

	return nil, false
}

// ManifestReference names the channel file requested for one check.
type ManifestReference struct {
	// ChannelFilename is "<channel>.yml".
	ChannelFilename string
	// URL is the absolute manifest URL.
	URL *url.URL
}

// ResolvedFileInfo pairs an artifact entry with its absolute URL.
type ResolvedFileInfo struct {
	URL  *url.URL
	Info FileInfo
}

// Release is one fetched manifest: where it came from, its raw bytes and the parsed form.
type Release struct {
	Reference ManifestReference
	Data      []byte
	Info      *Info
}

package provider

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/mitchellh/go-ps"

	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/metrics"
	"github.com/oshokin/swift-update-provider/internal/storage"
)

// DefaultFileMode is applied to written artifacts; installers must stay executable.
const DefaultFileMode os.FileMode = 0o755

// DownloadOptions tune a single artifact download.
type DownloadOptions struct {
	// SHA512 is the expected base64 checksum; empty skips the check.
	SHA512 string
	// FailIfRunning refuses to replace an executable some other process runs.
	FailIfRunning bool
}

// ArtifactDownloader fetches artifacts through the shared session. It never retries.
type ArtifactDownloader struct {
	session   storage.Session
	container string
	base      *url.URL
	metrics   *metrics.Metrics
}

// NewArtifactDownloader creates a downloader for artifacts under base.
func NewArtifactDownloader(
	session storage.Session,
	container string,
	base *url.URL,
	m *metrics.Metrics,
) *ArtifactDownloader {
	return &ArtifactDownloader{
		session:   session,
		container: container,
		base:      base,
		metrics:   m,
	}
}

// DownloadArtifact fetches artifactURL in full and atomically replaces
// destination with it. Transport errors are returned as-is; local failures
// wrap ErrFilesystemWrite.
func (d *ArtifactDownloader) DownloadArtifact(
	ctx context.Context,
	artifactURL *url.URL,
	destination string,
	opts DownloadOptions,
) ([]byte, error) {
	data, err := d.download(ctx, artifactURL, destination, opts)
	d.metrics.Download(len(data), err)

	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Artifact downloaded", "url", artifactURL.Redacted(), "path", destination, "size", len(data))

	return data, nil
}

func (d *ArtifactDownloader) download(
	ctx context.Context,
	artifactURL *url.URL,
	destination string,
	opts DownloadOptions,
) ([]byte, error) {
	key, err := ObjectKey(d.base, artifactURL)
	if err != nil {
		return nil, err
	}

	if opts.FailIfRunning {
		if err = ensureNotRunning(filepath.Base(destination)); err != nil {
			return nil, err
		}
	}

	data, err := d.session.Download(ctx, d.container, key)
	if err != nil {
		return nil, err
	}

	if err = verifyChecksum(data, opts.SHA512); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	if err = writeAtomically(destination, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFilesystemWrite, destination, err)
	}

	return data, nil
}

// verifyChecksum compares data with a base64 SHA-512.
func verifyChecksum(data []byte, expected string) error {
	if expected == "" {
		return nil
	}

	want, err := base64.StdEncoding.DecodeString(expected)
	if err != nil {
		return fmt.Errorf("%w: decode expected checksum: %w", ErrChecksumMismatch, err)
	}

	got := sha512.Sum512(data)
	if !bytes.Equal(want, got[:]) {
		return ErrChecksumMismatch
	}

	return nil
}

// writeAtomically replaces destination via go-update: the bytes land in a
// sibling temporary file which is then renamed over the target.
// Only regular files are replaced.
func writeAtomically(destination string, data []byte) error {
	destination = filepath.Clean(destination)

	// go-update moves the current target aside first, so it has to exist.
	created := false

	info, err := os.Stat(destination)

	switch {
	case errors.Is(err, os.ErrNotExist):
		placeholder, createErr := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if createErr != nil {
			return createErr
		}

		if err = placeholder.Close(); err != nil {
			return err
		}

		created = true
	case err != nil:
		return err
	case !info.Mode().IsRegular():
		return fmt.Errorf("%w (%s)", errDestinationNotRegular, info.Mode().Type())
	}

	options := goupdate.Options{
		TargetPath: destination,
		TargetMode: DefaultFileMode,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		_ = os.Remove(stagingPath(destination))

		if created {
			_ = os.Remove(destination)
		}

		return err
	}

	return nil
}

// stagingPath is where go-update writes the new contents before the rename.
func stagingPath(destination string) string {
	return filepath.Join(filepath.Dir(destination), "."+filepath.Base(destination)+".new")
}

// ensureNotRunning fails when another process runs an executable named name.
func ensureNotRunning(name string) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == name {
			return fmt.Errorf("%w: %s (pid %d)", ErrDestinationBusy, name, process.Pid())
		}
	}

	return nil
}

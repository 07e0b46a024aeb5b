package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/swift-update-provider/internal/logger"
)

const (
	// MarkerFilename marks an output directory that is being written right now.
	MarkerFilename = ".update-provider-download.marker"

	// markerLifetime is the period after which a stale marker is ignored.
	markerLifetime = 30 * time.Minute
)

// errDownloadAlreadyRunning indicates that another run owns the output directory.
var errDownloadAlreadyRunning = errors.New("another download is running in this directory")

// acquireMarker creates the marker in dir, replacing a stale one.
func acquireMarker(ctx context.Context, dir string) (string, error) {
	markerPath := filepath.Join(dir, MarkerFilename)

	if isDownloadRunningNow(ctx, markerPath) {
		return "", fmt.Errorf("%s: %w", dir, errDownloadAlreadyRunning)
	}

	//nolint:gosec // Marker path is built from the configured output directory.
	marker, err := os.OpenFile(markerPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", dir, errDownloadAlreadyRunning)
		}

		return "", fmt.Errorf("create marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return "", fmt.Errorf("close marker: %w", err)
	}

	return markerPath, nil
}

// isDownloadRunningNow checks presence of a marker file and removes it if it looks stale.
func isDownloadRunningNow(ctx context.Context, markerPath string) bool {
	fileInfo, err := os.Stat(markerPath)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.InfoKV(ctx, "The download marker is too old, removing it", "path", markerPath)

		return os.Remove(markerPath) != nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to read download marker", "path", markerPath, "error", err)
	}

	return false
}

package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/swift-update-provider/internal/service/checker"
	"github.com/oshokin/swift-update-provider/internal/service/packager"
	"github.com/oshokin/swift-update-provider/internal/service/updater"
)

// TestRelease_PackageCheckDownload publishes a packaged release through a
// public container and reads it back with check and download.
func TestRelease_PackageCheckDownload(t *testing.T) {
	t.Parallel()

	releaseDir := writeRelease(t, map[string]string{
		"app-1.4.0-setup.exe":  "installer bytes",
		"linux/app-1.4.0.deb": "debian bytes",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	manifestPath, err := packager.Run(ctx, &packager.Options{
		Directory: releaseDir,
		Channel:   "beta",
		Version:   "1.4.0",
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(releaseDir, "beta.yml"), manifestPath)

	_, cfg := publicContainer(t, releaseDir)
	configPath := writeConfig(t, cfg)

	var out bytes.Buffer

	report, err := checker.Run(ctx, &checker.Options{
		ConfigPath:     configPath,
		CurrentVersion: "1.3.9",
		Output:         &out,
	})
	require.NoError(t, err)
	require.True(t, report.UpdateAvailable)
	require.Equal(t, "1.4.0", report.Version)
	require.Len(t, report.Files, 2)
	require.Equal(t, cfg.BaseURL+"app-1.4.0-setup.exe", report.Files[0].URL)
	require.Contains(t, out.String(), "update_available: true")

	outputDir := filepath.Join(t.TempDir(), "mirror")

	result, err := updater.Run(ctx, &updater.Options{
		ConfigPath: configPath,
		OutputDir:  outputDir,
		Verify:     true,
	})
	require.NoError(t, err)
	require.Equal(t, "1.4.0", result.Version)

	for _, name := range []string{"app-1.4.0-setup.exe", "linux/app-1.4.0.deb"} {
		want, readErr := os.ReadFile(filepath.Join(releaseDir, filepath.FromSlash(name)))
		require.NoError(t, readErr)

		got, readErr := os.ReadFile(filepath.Join(outputDir, filepath.FromSlash(name)))
		require.NoError(t, readErr)
		require.Equal(t, want, got)
	}

	_, err = os.Stat(filepath.Join(outputDir, "beta.yml"))
	require.NoError(t, err)
}

// TestRelease_NothingPublished treats a missing channel as "no update".
func TestRelease_NothingPublished(t *testing.T) {
	t.Parallel()

	_, cfg := publicContainer(t, t.TempDir())

	report, err := checker.Run(context.Background(), &checker.Options{
		ConfigPath: writeConfig(t, cfg),
		Output:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	require.False(t, report.Published)
	require.Equal(t, cfg.BaseURL+"beta.yml", report.ManifestURL)
}

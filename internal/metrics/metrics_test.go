package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var errDownload = errors.New("download failed")

// TestMetrics_Counters checks every counter moves as expected.
func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()

	m.ManifestAttempt()
	m.ManifestAttempt()
	m.ManifestRetry()
	m.ManifestFailure(ReasonNotFound)
	m.Download(10, nil)
	m.Download(0, errDownload)

	require.InDelta(t, 2, testutil.ToFloat64(m.manifestAttempts), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.manifestRetries), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.manifestFailures.WithLabelValues(ReasonNotFound)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.downloads.WithLabelValues("ok")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.downloads.WithLabelValues("error")), 0)
	require.InDelta(t, 10, testutil.ToFloat64(m.downloadedBytes), 0)
}

// TestMetrics_Nil ensures a nil receiver is a no-op.
func TestMetrics_Nil(t *testing.T) {
	t.Parallel()

	var m *Metrics

	m.ManifestAttempt()
	m.ManifestRetry()
	m.ManifestFailure(ReasonOther)
	m.Download(1, nil)
	require.NoError(t, m.WriteTextfile("ignored.prom"))
}

// TestMetrics_WriteTextfile writes the exposition format to disk.
func TestMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.ManifestAttempt()

	path := filepath.Join(t.TempDir(), "update-provider.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "update_provider_manifest_fetch_attempts_total 1")
}

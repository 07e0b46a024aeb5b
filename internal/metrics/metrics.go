package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "update_provider"

// Failure reasons used as label values.
const (
	ReasonNotFound  = "not_found"
	ReasonTransient = "transient"
	ReasonCanceled  = "canceled"
	ReasonOther     = "other"
)

// Metrics groups the provider counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	manifestAttempts prometheus.Counter
	manifestRetries  prometheus.Counter
	manifestFailures *prometheus.CounterVec
	downloads        *prometheus.CounterVec
	downloadedBytes  prometheus.Counter
}

// New creates counters registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		manifestAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_fetch_attempts_total",
			Help:      "Channel manifest download attempts, retries included.",
		}),
		manifestRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_fetch_retries_total",
			Help:      "Channel manifest retries after a refused connection.",
		}),
		manifestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_fetch_failures_total",
			Help:      "Channel manifest fetches that failed for good.",
		}, []string{"reason"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_downloads_total",
			Help:      "Artifact downloads by result.",
		}, []string{"result"}),
		downloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_downloaded_bytes_total",
			Help:      "Bytes written to artifact destinations.",
		}),
	}

	m.registry.MustRegister(
		m.manifestAttempts,
		m.manifestRetries,
		m.manifestFailures,
		m.downloads,
		m.downloadedBytes,
	)

	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ManifestAttempt counts one manifest fetch attempt.
func (m *Metrics) ManifestAttempt() {
	if m == nil {
		return
	}

	m.manifestAttempts.Inc()
}

// ManifestRetry counts one scheduled retry.
func (m *Metrics) ManifestRetry() {
	if m == nil {
		return
	}

	m.manifestRetries.Inc()
}

// ManifestFailure counts a final manifest failure.
func (m *Metrics) ManifestFailure(reason string) {
	if m == nil {
		return
	}

	m.manifestFailures.WithLabelValues(reason).Inc()
}

// Download counts an artifact download and, on success, its size.
func (m *Metrics) Download(size int, err error) {
	if m == nil {
		return
	}

	if err != nil {
		m.downloads.WithLabelValues("error").Inc()

		return
	}

	m.downloads.WithLabelValues("ok").Inc()
	m.downloadedBytes.Add(float64(size))
}

// WriteTextfile dumps all counters to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}

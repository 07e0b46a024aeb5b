package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/oshokin/swift-update-provider/internal/domain/update"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/metrics"
	"github.com/oshokin/swift-update-provider/internal/storage"
)

// ManifestFetcher downloads channel manifests, retrying refused connections.
type ManifestFetcher struct {
	// session is the transport; authentication happens inside each attempt.
	session storage.Session
	// container holds the manifests and artifacts.
	container string
	// clock drives backoff waits.
	clock clock.Clock
	// metrics may be nil.
	metrics *metrics.Metrics
}

// NewManifestFetcher creates a fetcher. A nil clock means the real clock.
func NewManifestFetcher(
	session storage.Session,
	container string,
	clk clock.Clock,
	m *metrics.Metrics,
) *ManifestFetcher {
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &ManifestFetcher{
		session:   session,
		container: container,
		clock:     clk,
		metrics:   m,
	}
}

// FetchManifest returns the manifest bytes. Refused connections are retried
// up to MaxRetries times; not-found fails at once with ErrChannelFileNotFound;
// anything else fails at once as-is.
func (f *ManifestFetcher) FetchManifest(ctx context.Context, ref update.ManifestReference) ([]byte, error) {
	var (
		state = retryState{phase: phaseAttempting}
		data  []byte
	)

	for {
		switch state.phase {
		case phaseAttempting:
			f.metrics.ManifestAttempt()
			logger.DebugKV(ctx, "Fetching channel manifest",
				"channel_file", ref.ChannelFilename, "attempt", state.attempt+1)

			var err error

			data, err = f.session.Download(ctx, f.container, ref.ChannelFilename)
			state = nextState(state, err)
		case phaseWaiting:
			f.metrics.ManifestRetry()
			logger.WarnKV(ctx, "Storage refused connection, retrying",
				"channel_file", ref.ChannelFilename,
				"attempt", state.attempt+1,
				"delay", state.delay.String(),
				"error", state.err)

			if err := f.wait(ctx, state.delay); err != nil {
				f.metrics.ManifestFailure(metrics.ReasonCanceled)

				return nil, fmt.Errorf("wait before retrying %s: %w (last error: %w)", ref.ChannelFilename, err, state.err)
			}

			state = nextState(state, nil)
		case phaseDone:
			return data, nil
		default:
			return nil, f.failure(ref, state)
		}
	}
}

// failure records and wraps a terminal error.
func (f *ManifestFetcher) failure(ref update.ManifestReference, state retryState) error {
	switch {
	case storage.IsNotFound(state.err):
		f.metrics.ManifestFailure(metrics.ReasonNotFound)

		return fmt.Errorf("%w: cannot find channel %q update info at %s: %w",
			ErrChannelFileNotFound, ref.ChannelFilename, ref.URL, state.err)
	case storage.IsConnectionRefused(state.err):
		f.metrics.ManifestFailure(metrics.ReasonTransient)
	case errors.Is(state.err, context.Canceled), errors.Is(state.err, context.DeadlineExceeded):
		f.metrics.ManifestFailure(metrics.ReasonCanceled)
	default:
		f.metrics.ManifestFailure(metrics.ReasonOther)
	}

	return fmt.Errorf("fetch %s after %d attempt(s): %w", ref.ChannelFilename, state.attempt+1, state.err)
}

// wait suspends until delay elapses or ctx is done. Zero delays do not wait.
func (f *ManifestFetcher) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := f.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

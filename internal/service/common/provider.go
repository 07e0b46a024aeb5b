//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/swift-update-provider/internal/config"
	"github.com/oshokin/swift-update-provider/internal/logger"
	"github.com/oshokin/swift-update-provider/internal/metrics"
	"github.com/oshokin/swift-update-provider/internal/provider"
	"github.com/oshokin/swift-update-provider/internal/storage"
	"github.com/oshokin/swift-update-provider/internal/storage/httpstore"
	"github.com/oshokin/swift-update-provider/internal/storage/swift"
)

// errUnknownBackend is returned when settings name a backend we cannot build.
var errUnknownBackend = errors.New("unknown storage backend")

// Authenticator returns the storage authenticator for the configured backend.
//
//nolint:ireturn // Callers only need the interface.
func Authenticator(cfg *config.Config) (storage.Authenticator, error) {
	switch cfg.Backend {
	case config.BackendSwift, "":
		return swift.Authenticator{Timeout: cfg.Timeout}, nil
	case config.BackendHTTP:
		return httpstore.Authenticator{Timeout: cfg.Timeout}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend)
	}
}

// NewProvider builds a provider from settings; credentials come from the environment.
func NewProvider(cfg *config.Config, m *metrics.Metrics, opts ...provider.Option) (*provider.Provider, error) {
	auth, err := Authenticator(cfg)
	if err != nil {
		return nil, err
	}

	settings := provider.Settings{
		BaseURL:     cfg.BaseURL,
		Container:   cfg.Container,
		Channel:     cfg.Channel,
		NoCache:     cfg.NoCache,
		Credentials: cfg.CredentialsFromEnv(),
	}

	opts = append([]provider.Option{provider.WithMetrics(m)}, opts...)

	p, err := provider.New(settings, auth, opts...)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	return p, nil
}

// FlushMetrics writes the metrics textfile if one was requested; failures are only logged.
func FlushMetrics(ctx context.Context, m *metrics.Metrics, path string) {
	if path == "" {
		return
	}

	if err := m.WriteTextfile(path); err != nil {
		logger.WarnKV(ctx, "Could not write metrics", "path", path, "error", err)
	}
}

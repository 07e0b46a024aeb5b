package httpstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/oshokin/swift-update-provider/internal/storage"
	"github.com/oshokin/swift-update-provider/internal/version"
)

var (
	// errBadHTTPStatus is returned for any non-200, non-404 response.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errEndpointRequired is returned when no storage URL is configured.
	errEndpointRequired = errors.New("storage endpoint must be provided")
)

// Authenticator opens anonymous (or basic-auth) HTTP sessions.
type Authenticator struct {
	// Timeout bounds every request; zero means no client-side timeout.
	Timeout time.Duration
}

// Session downloads objects relative to a storage URL.
type Session struct {
	endpoint *url.URL
	client   *http.Client
	username string
	password string
}

// Authenticate validates the endpoint; no request is made.
//
//nolint:ireturn // Session is the transport abstraction.
func (a Authenticator) Authenticate(_ context.Context, credentials storage.Credentials) (storage.Session, error) {
	if credentials.Endpoint == "" {
		return nil, errEndpointRequired
	}

	endpoint, err := url.Parse(credentials.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse storage endpoint: %w", err)
	}

	return &Session{
		endpoint: endpoint,
		client:   &http.Client{Timeout: a.Timeout},
		username: credentials.Username,
		password: credentials.Password,
	}, nil
}

// Download fetches <endpoint>/<container>/<key>.
func (s *Session) Download(ctx context.Context, container, key string) ([]byte, error) {
	objectURL := *s.endpoint
	// Use path.Join to normalize duplicate slashes when composing the URL path.
	objectURL.Path = path.Join(objectURL.Path, container, key)
	objectURL.RawPath = ""
	finalURL := objectURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())

	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	response, err := s.client.Do(req)
	if err != nil {
		if storage.IsConnectionRefused(err) {
			return nil, fmt.Errorf("%s: %w: %w", finalURL, storage.ErrConnectionRefused, err)
		}

		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	switch response.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", finalURL, storage.ErrObjectNotFound)
	default:
		return nil, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", finalURL, err)
	}

	return data, nil
}

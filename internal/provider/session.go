package provider

import (
	"context"
	"sync"

	"github.com/oshokin/swift-update-provider/internal/storage"
)

// sessionCache authenticates lazily and shares one session between manifest
// fetches and artifact downloads. It is itself a storage.Session.
type sessionCache struct {
	auth        storage.Authenticator
	credentials storage.Credentials

	mu      sync.Mutex
	current storage.Session
}

// newSessionCache wraps an authenticator.
func newSessionCache(auth storage.Authenticator, credentials storage.Credentials) *sessionCache {
	return &sessionCache{
		auth:        auth,
		credentials: credentials,
	}
}

// Download authenticates on first use, then delegates. A refused connection
// drops the session so the next call authenticates again.
func (c *sessionCache) Download(ctx context.Context, container, key string) ([]byte, error) {
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	data, err := session.Download(ctx, container, key)
	if err != nil && storage.IsConnectionRefused(err) {
		c.drop(session)
	}

	return data, err
}

//nolint:ireturn // Session is the transport abstraction.
func (c *sessionCache) session(ctx context.Context) (storage.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		return c.current, nil
	}

	session, err := c.auth.Authenticate(ctx, c.credentials)
	if err != nil {
		return nil, err
	}

	c.current = session

	return session, nil
}

// drop forgets session unless another caller already replaced it.
func (c *sessionCache) drop(session storage.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == session {
		c.current = nil
	}
}

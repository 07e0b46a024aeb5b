package storage

import (
	"context"
	"errors"
	"net"
	"syscall"
)

var (
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrConnectionRefused is returned when the backend refuses the connection.
	ErrConnectionRefused = errors.New("connection refused")
)

// Credentials holds everything needed to open an authenticated session.
type Credentials struct {
	// Endpoint is the identity (Keystone) URL or, for anonymous backends, the storage URL.
	Endpoint string
	// Domain is the identity domain name.
	Domain string
	// Tenant is the project (tenant) ID.
	Tenant string
	// Username is read from the environment, never from persisted config.
	Username string
	// Password is read from the environment, never from persisted config.
	Password string
	// Region selects the object-store endpoint from the service catalog.
	Region string
	// APIVersion is the identity API version, e.g. "v3".
	APIVersion string
}

// Session is an authenticated handle to the object store.
type Session interface {
	// Download returns the full contents of container/key.
	Download(ctx context.Context, container, key string) ([]byte, error)
}

// Authenticator opens sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, credentials Credentials) (Session, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, credentials Credentials) (Session, error)

// Authenticate calls f.
//
//nolint:ireturn // Session is the transport abstraction.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, credentials Credentials) (Session, error) {
	return f(ctx, credentials)
}

// IsNotFound reports whether err means the object is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsConnectionRefused reports whether err is an immediate connectivity failure:
// either a backend-classified ErrConnectionRefused or a raw ECONNREFUSED
// surfacing from a dial.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrConnectionRefused) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr) && opErr.Op == "dial" && errors.Is(opErr.Err, syscall.ECONNREFUSED)
}

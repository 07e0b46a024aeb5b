package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test failure")

// TestIsConnectionRefused covers classified, raw syscall and dial errors.
func TestIsConnectionRefused(t *testing.T) {
	t.Parallel()

	require.False(t, IsConnectionRefused(nil))
	require.False(t, IsConnectionRefused(errTest))
	require.True(t, IsConnectionRefused(fmt.Errorf("get: %w", ErrConnectionRefused)))
	require.True(t, IsConnectionRefused(syscall.ECONNREFUSED))

	dialErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}
	require.True(t, IsConnectionRefused(fmt.Errorf("do request: %w", dialErr)))
}

// TestIsNotFound checks the not-found classification survives wrapping.
func TestIsNotFound(t *testing.T) {
	t.Parallel()

	require.True(t, IsNotFound(fmt.Errorf("beta.yml: %w", ErrObjectNotFound)))
	require.False(t, IsNotFound(errTest))
}

// TestAuthenticatorFunc checks the adapter forwards credentials.
func TestAuthenticatorFunc(t *testing.T) {
	t.Parallel()

	var got Credentials

	auth := AuthenticatorFunc(func(_ context.Context, c Credentials) (Session, error) {
		got = c

		return nil, errTest
	})

	_, err := auth.Authenticate(context.Background(), Credentials{Region: "RegionOne"})
	require.ErrorIs(t, err, errTest)
	require.Equal(t, "RegionOne", got.Region)
}

package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/oshokin/swift-update-provider/internal/domain/update"
	"github.com/oshokin/swift-update-provider/internal/storage"
)

var errBadPassword = errors.New("401 unauthorized")

// countingAuthenticator hands out sessions and counts logins.
type countingAuthenticator struct {
	mu       sync.Mutex
	sessions []storage.Session
	err      error
	logins   int
	lastSeen storage.Credentials
}

//nolint:ireturn // Mirrors storage.Authenticator.
func (a *countingAuthenticator) Authenticate(_ context.Context, c storage.Credentials) (storage.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logins++
	a.lastSeen = c

	if a.err != nil {
		return nil, a.err
	}

	session := a.sessions[0]
	if len(a.sessions) > 1 {
		a.sessions = a.sessions[1:]
	}

	return session, nil
}

func newTestProvider(t *testing.T, settings Settings, auth storage.Authenticator, opts ...Option) *Provider {
	t.Helper()

	if settings.BaseURL == "" {
		settings.BaseURL = "https://example.com/dist"
	}

	if settings.Container == "" {
		settings.Container = "updates"
	}

	p, err := New(settings, auth, append([]Option{WithPlatform("linux", "amd64")}, opts...)...)
	require.NoError(t, err)

	return p
}

// TestProvider_BetaScenario runs check, resolve and download for the beta channel.
func TestProvider_BetaScenario(t *testing.T) {
	t.Parallel()

	session := &stubSession{objects: map[string][]byte{
		"beta.yml":      []byte("version: 1.2.3\nfiles:\n  - url: app-1.2.3.exe\n    size: 9\n"),
		"app-1.2.3.exe": []byte("installer"),
	}}
	auth := &countingAuthenticator{sessions: []storage.Session{session}}

	p := newTestProvider(t, Settings{
		Channel:     "beta",
		Credentials: storage.Credentials{Region: "RegionOne", Username: "u"},
	}, auth)

	require.Equal(t, "beta.yml", p.ManifestReference().ChannelFilename)

	info, err := p.GetLatestVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.2.3", info.Version)
	require.Equal(t, []update.FileInfo{{URL: "app-1.2.3.exe", Size: 9}}, info.Files)

	files, err := p.ResolveFiles(info)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, p.BaseURL().String()+"app-1.2.3.exe", files[0].URL.String())

	destination := filepath.Join(t.TempDir(), "app-1.2.3.exe")

	data, err := p.Download(context.Background(), files[0].URL, destination, DownloadOptions{})
	require.NoError(t, err)
	require.Equal(t, "installer", string(data))

	written, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, data, written)

	// Manifest and artifact share one login.
	require.Equal(t, 1, auth.logins)
	require.Equal(t, "RegionOne", auth.lastSeen.Region)
	require.Equal(t, []string{"updates/beta.yml", "updates/app-1.2.3.exe"}, session.calls)
}

// TestProvider_ChannelPrecedence lets the host switch channels between checks.
func TestProvider_ChannelPrecedence(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, Settings{}, &countingAuthenticator{})
	require.Equal(t, "latest-linux", p.Channel())

	p = newTestProvider(t, Settings{Channel: "beta"}, &countingAuthenticator{})
	require.Equal(t, "beta", p.Channel())

	p.SetChannel("alpha")
	require.Equal(t, "alpha", p.Channel())
	require.Equal(t, "alpha.yml", p.ManifestReference().ChannelFilename)

	p.SetChannel("")
	require.Equal(t, "beta", p.Channel())
}

// TestProvider_NoCacheUsesClock derives the cache token from the injected clock.
func TestProvider_NoCacheUsesClock(t *testing.T) {
	t.Parallel()

	clk := testingclock.NewFakeClock(time.UnixMilli(32))
	p := newTestProvider(t, Settings{Channel: "beta", NoCache: true}, &countingAuthenticator{}, WithClock(clk))

	require.Equal(t, "https://example.com/dist/beta.yml?noCache=10", p.ManifestReference().URL.String())
}

// TestProvider_FetchReleaseUsesGivenReference fetches exactly the reference it is given.
func TestProvider_FetchReleaseUsesGivenReference(t *testing.T) {
	t.Parallel()

	manifestBytes := []byte("version: 2.0.0\npath: app.exe\nblockMapSize: 7\n")
	session := &stubSession{objects: map[string][]byte{"beta.yml": manifestBytes}}
	clk := testingclock.NewFakeClock(time.UnixMilli(32))
	p := newTestProvider(t, Settings{Channel: "beta", NoCache: true},
		&countingAuthenticator{sessions: []storage.Session{session}}, WithClock(clk))

	ref := p.ManifestReference()

	// Neither a later tick nor a channel switch changes the fetched reference.
	clk.Step(time.Second)
	p.SetChannel("alpha")

	release, err := p.FetchRelease(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, ref, release.Reference)
	require.Equal(t, "https://example.com/dist/beta.yml?noCache=10", release.Reference.URL.String())
	require.Equal(t, manifestBytes, release.Data)
	require.Equal(t, "2.0.0", release.Info.Version)
	require.Equal(t, []string{"updates/beta.yml"}, session.calls)
}

// TestProvider_MissingChannel surfaces ErrChannelFileNotFound to the host.
func TestProvider_MissingChannel(t *testing.T) {
	t.Parallel()

	auth := &countingAuthenticator{sessions: []storage.Session{new(stubSession)}}
	p := newTestProvider(t, Settings{Channel: "nightly"}, auth)

	_, err := p.GetLatestVersion(context.Background())
	require.ErrorIs(t, err, ErrChannelFileNotFound)
	require.Contains(t, err.Error(), "nightly.yml")
}

// TestProvider_ReauthenticatesAfterRefused drops the cached session on refused connections.
func TestProvider_ReauthenticatesAfterRefused(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		broken := &stubSession{failures: refused(1)}
		healthy := &stubSession{objects: map[string][]byte{"beta.yml": []byte("version: 2.0.0\npath: app.exe\n")}}
		auth := &countingAuthenticator{sessions: []storage.Session{broken, healthy}}

		p := newTestProvider(t, Settings{Channel: "beta"}, auth)

		info, err := p.GetLatestVersion(context.Background())
		require.NoError(t, err)
		require.Equal(t, "2.0.0", info.Version)
		require.Equal(t, 2, auth.logins)
	})
}

// TestProvider_AuthenticationFailure fails the check without retrying.
func TestProvider_AuthenticationFailure(t *testing.T) {
	t.Parallel()

	auth := &countingAuthenticator{err: errBadPassword}
	p := newTestProvider(t, Settings{Channel: "beta"}, auth)

	_, err := p.GetLatestVersion(context.Background())
	require.ErrorIs(t, err, errBadPassword)
	require.Equal(t, 1, auth.logins)
}

// TestProvider_ParserInjection uses a replaced parser and reports its errors.
func TestProvider_ParserInjection(t *testing.T) {
	t.Parallel()

	session := &stubSession{objects: map[string][]byte{"beta.yml": []byte("anything")}}
	auth := &countingAuthenticator{sessions: []storage.Session{session}}

	var seenFile, seenURL string

	parse := func(_ []byte, filename, url string) (*update.Info, error) {
		seenFile, seenURL = filename, url

		return nil, errBadPassword
	}

	p := newTestProvider(t, Settings{Channel: "beta"}, auth, WithParser(parse))

	_, err := p.GetLatestVersion(context.Background())
	require.ErrorIs(t, err, errBadPassword)
	require.Equal(t, "beta.yml", seenFile)
	require.Equal(t, "https://example.com/dist/beta.yml", seenURL)
}

// TestNew_ValidatesSettings rejects relative base URLs and missing containers.
func TestNew_ValidatesSettings(t *testing.T) {
	t.Parallel()

	_, err := New(Settings{BaseURL: "dist", Container: "updates"}, &countingAuthenticator{})
	require.ErrorIs(t, err, errBaseURLNotAbsolute)

	_, err = New(Settings{BaseURL: "https://example.com/"}, &countingAuthenticator{})
	require.ErrorIs(t, err, errContainerRequired)
}

package integration

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/swift-update-provider/internal/config"
)

const (
	tenant    = "tenant"
	container = "updates"
	token     = "integration-token"
)

// reservePort returns address on a free TCP port and closes it.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// writeRelease creates artifact files under a fresh directory.
func writeRelease(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	return dir
}

// writeConfig saves settings into a temporary file and returns its path.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return path
}

// publicContainer serves dir as an anonymous container at /<container>/.
func publicContainer(t *testing.T, dir string) (*httptest.Server, *config.Config) {
	t.Helper()

	mux := http.NewServeMux()
	mux.Handle("/"+container+"/", http.StripPrefix("/"+container, http.FileServer(http.Dir(dir))))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &config.Config{
		Backend:   config.BackendHTTP,
		AuthURL:   server.URL,
		Container: container,
		BaseURL:   server.URL + "/" + container + "/",
		Channel:   "beta",
	}
}

// fakeCloud is a Keystone v3 + Swift pair serving dir as the container.
type fakeCloud struct {
	server *httptest.Server
	logins atomic.Int32
}

//nolint:funlen // Fake Keystone catalog needs some setup.
func newFakeCloud(t *testing.T, dir string) *fakeCloud {
	t.Helper()

	cloud := &fakeCloud{}
	mux := http.NewServeMux()
	cloud.server = httptest.NewServer(mux)
	t.Cleanup(cloud.server.Close)

	mux.HandleFunc("/v3/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var request struct {
			Auth struct {
				Identity struct {
					Password struct {
						User struct {
							Name     string `json:"name"`
							Password string `json:"password"`
						} `json:"user"`
					} `json:"password"`
				} `json:"identity"`
			} `json:"auth"`
		}

		if err := json.NewDecoder(r.Body).Decode(&request); err != nil ||
			request.Auth.Identity.Password.User.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		cloud.logins.Add(1)

		body := map[string]any{
			"token": map[string]any{
				"expires_at": "2099-01-01T00:00:00.000000Z",
				"catalog": []map[string]any{
					{
						"type": "object-store",
						"name": "swift",
						"endpoints": []map[string]any{
							{
								"id":        "1",
								"interface": "public",
								"region":    "RegionOne",
								"region_id": "RegionOne",
								"url":       cloud.server.URL + "/v1/AUTH_" + tenant,
							},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Subject-Token", token)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	})

	prefix := "/v1/AUTH_" + tenant + "/" + container
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))

	mux.HandleFunc(prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Auth-Token") != token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if strings.HasSuffix(r.URL.Path, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		files.ServeHTTP(w, r)
	})

	return cloud
}

// config returns swift settings pointing at the fake cloud.
func (c *fakeCloud) config() *config.Config {
	return &config.Config{
		Backend:    config.BackendSwift,
		AuthURL:    c.server.URL,
		DomainName: "default",
		TenantID:   tenant,
		Region:     "RegionOne",
		Container:  container,
		BaseURL:    c.server.URL + "/v1/AUTH_" + tenant + "/" + container + "/",
		Channel:    "beta",
	}
}

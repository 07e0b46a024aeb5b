package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/swift-update-provider/internal/storage"
)

// Backend names accepted in the settings file.
const (
	// BackendSwift authenticates against Keystone and reads from Swift.
	BackendSwift = "swift"
	// BackendHTTP reads from a publicly readable container over plain HTTP.
	BackendHTTP = "http"
)

// Config holds the connection and channel parameters of the provider.
type Config struct {
	// Backend selects the storage transport: "swift" (default) or "http".
	Backend string `yaml:"backend"`
	// AuthURL is the Keystone endpoint for swift, or the storage URL for http.
	AuthURL string `yaml:"auth_url"`
	// DomainName is the identity domain.
	DomainName string `yaml:"domain_name"`
	// TenantID is the project that owns the container.
	TenantID string `yaml:"tenant_id"`
	// Region selects the object-store endpoint.
	Region string `yaml:"region"`
	// AuthVersion is the identity API version, e.g. "v3".
	AuthVersion string `yaml:"auth_version"`
	// Container holds channel manifests and artifacts.
	Container string `yaml:"container"`
	// BaseURL is the public URL of the container used to build artifact URLs.
	BaseURL string `yaml:"base_url"`
	// Channel is the statically configured update channel; empty means platform default.
	Channel string `yaml:"channel,omitempty"`
	// NoCache appends a cache-busting query to manifest URLs.
	NoCache bool `yaml:"no_cache,omitempty"`
	// Timeout bounds HTTP requests of the http backend.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for provider settings.
	DefaultConfigFilename = "update-provider-settings.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 30 * time.Second

	// DefaultAuthVersion is the identity API version used when none is set.
	DefaultAuthVersion = "v3"

	// DefaultDomainName is the Keystone domain used when none is set.
	DefaultDomainName = "default"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// UsernameEnv names the environment variable holding the storage username.
	UsernameEnv = "OS_USERNAME"

	// PasswordEnv names the environment variable holding the storage password.
	PasswordEnv = "OS_PASSWORD"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownBackend is returned for unsupported backend names.
	errUnknownBackend = errors.New("unknown storage backend")
	// errAuthURLRequired is returned when the storage endpoint is missing.
	errAuthURLRequired = errors.New("auth_url must be provided")
	// errContainerRequired is returned when the container is missing.
	errContainerRequired = errors.New("container must be provided")
	// errBaseURLRequired is returned when the base URL is missing.
	errBaseURLRequired = errors.New("base_url must be provided")
	// errRegionRequired is returned when swift has no region to pick an endpoint from.
	errRegionRequired = errors.New("region must be provided for the swift backend")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and reports every problem at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = BackendSwift
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.AuthVersion == "" {
		cfg.AuthVersion = DefaultAuthVersion
	}

	if cfg.DomainName == "" {
		cfg.DomainName = DefaultDomainName
	}

	var result *multierror.Error

	switch cfg.Backend {
	case BackendSwift:
		if cfg.Region == "" {
			result = multierror.Append(result, errRegionRequired)
		}
	case BackendHTTP:
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %q", errUnknownBackend, cfg.Backend))
	}

	if cfg.AuthURL == "" {
		result = multierror.Append(result, errAuthURLRequired)
	} else if _, err := url.ParseRequestURI(cfg.AuthURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid auth_url: %w", err))
	}

	if cfg.Container == "" {
		result = multierror.Append(result, errContainerRequired)
	}

	if cfg.BaseURL == "" {
		result = multierror.Append(result, errBaseURLRequired)
	} else if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid base_url: %w", err))
	}

	return result.ErrorOrNil()
}

// CredentialsFromEnv combines static settings with the username and password
// taken from the environment.
func (c *Config) CredentialsFromEnv() storage.Credentials {
	return storage.Credentials{
		Endpoint:   c.AuthURL,
		Domain:     c.DomainName,
		Tenant:     c.TenantID,
		Username:   os.Getenv(UsernameEnv),
		Password:   os.Getenv(PasswordEnv),
		Region:     c.Region,
		APIVersion: c.AuthVersion,
	}
}

package swift

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/objectstorage/v1/objects"

	"github.com/oshokin/swift-update-provider/internal/storage"
)

// errEndpointRequired is returned when no identity endpoint is configured.
var errEndpointRequired = errors.New("identity endpoint must be provided")

// Authenticator opens Swift sessions through Keystone.
type Authenticator struct {
	// Timeout bounds every identity and object-store request; zero means no client-side timeout.
	Timeout time.Duration
}

// Session is an authenticated object-store client.
type Session struct {
	// client is the object-store service client resolved from the catalog.
	client *gophercloud.ServiceClient
}

// Authenticate logs in to Keystone and resolves the object-store endpoint for
// the configured region.
//
//nolint:ireturn // Session is the transport abstraction.
func (a Authenticator) Authenticate(ctx context.Context, credentials storage.Credentials) (storage.Session, error) {
	if credentials.Endpoint == "" {
		return nil, errEndpointRequired
	}

	options := gophercloud.AuthOptions{
		IdentityEndpoint: IdentityEndpoint(credentials.Endpoint, credentials.APIVersion),
		Username:         credentials.Username,
		Password:         credentials.Password,
		DomainName:       credentials.Domain,
		TenantID:         credentials.Tenant,
		AllowReauth:      true,
	}

	provider, err := a.newProviderClient(options.IdentityEndpoint)
	if err != nil {
		return nil, err
	}

	if err = openstack.Authenticate(ctx, provider, options); err != nil {
		return nil, fmt.Errorf("authenticate: %w", classify(err))
	}

	client, err := openstack.NewObjectStorageV1(provider, gophercloud.EndpointOpts{
		Region: credentials.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object storage endpoint: %w", err)
	}

	return &Session{client: client}, nil
}

// newProviderClient prepares an unauthenticated client carrying the request timeout.
func (a Authenticator) newProviderClient(identityEndpoint string) (*gophercloud.ProviderClient, error) {
	provider, err := openstack.NewClient(identityEndpoint)
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}

	provider.HTTPClient = http.Client{Timeout: a.Timeout}

	return provider, nil
}

// Download fetches container/key in full.
func (s *Session) Download(ctx context.Context, container, key string) ([]byte, error) {
	result := objects.Download(ctx, s.client, container, key, nil)

	content, err := result.ExtractContent()
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", container, key, classify(err))
	}

	return content, nil
}

// IdentityEndpoint appends the API version to the endpoint unless it is
// already there, so gophercloud skips version discovery.
func IdentityEndpoint(endpoint, apiVersion string) string {
	endpoint = strings.TrimRight(endpoint, "/")

	apiVersion = strings.Trim(apiVersion, "/")
	if apiVersion != "" && !strings.HasSuffix(endpoint, "/"+apiVersion) {
		endpoint += "/" + apiVersion
	}

	return endpoint + "/"
}

// classify maps gophercloud failures onto the storage error taxonomy.
func classify(err error) error {
	switch {
	case gophercloud.ResponseCodeIs(err, http.StatusNotFound):
		return fmt.Errorf("%w: %w", storage.ErrObjectNotFound, err)
	case storage.IsConnectionRefused(err):
		return fmt.Errorf("%w: %w", storage.ErrConnectionRefused, err)
	default:
		return err
	}
}

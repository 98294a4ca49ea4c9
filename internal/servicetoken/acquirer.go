// Package servicetoken obtains the backend's own access token for the data
// platform using the OAuth 2.0 client-credentials grant.
package servicetoken

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultAuthority is the Entra ID login host
const DefaultAuthority = "https://login.microsoftonline.com"

// ErrUnavailable wraps every acquisition failure. No partial or stale token
// accompanies it.
var ErrUnavailable = errors.New("service token unavailable")

// Acquirer returns an access token representing the backend itself
type Acquirer interface {
	Token(ctx context.Context) (string, error)
}

// Source is an Acquirer that also reports token expiry, which is what
// CachingAcquirer needs to decide when to refresh.
type Source interface {
	Acquirer
	FetchToken(ctx context.Context) (*oauth2.Token, error)
}

// ClientCredentialsConfig configures a ClientCredentialsAcquirer
type ClientCredentialsConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string

	// Authority defaults to DefaultAuthority
	Authority string

	// Resource is the data platform URL; the requested scope is
	// "<Resource>/.default"
	Resource string

	HTTPClient *http.Client
}

// ClientCredentialsAcquirer requests a fresh token on every call
type ClientCredentialsAcquirer struct {
	config     *clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentialsAcquirer validates cfg and builds the token endpoint
// "<authority>/<tenant>/oauth2/v2.0/token".
func NewClientCredentialsAcquirer(cfg ClientCredentialsConfig) (*ClientCredentialsAcquirer, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	resource := strings.TrimRight(cfg.Resource, "/")
	if resource == "" {
		return nil, fmt.Errorf("resource is required")
	}

	authority := strings.TrimRight(cfg.Authority, "/")
	if authority == "" {
		authority = DefaultAuthority
	}

	return &ClientCredentialsAcquirer{
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     authority + "/" + cfg.TenantID + "/oauth2/v2.0/token",
			Scopes:       []string{resource + "/.default"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: cfg.HTTPClient,
	}, nil
}

// TokenURL returns the token endpoint in use
func (a *ClientCredentialsAcquirer) TokenURL() string {
	return a.config.TokenURL
}

// Scopes returns the requested scopes
func (a *ClientCredentialsAcquirer) Scopes() []string {
	return a.config.Scopes
}

// FetchToken performs the client-credentials grant
func (a *ClientCredentialsAcquirer) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}
	tok, err := a.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrUnavailable)
	}
	return tok, nil
}

// Token implements Acquirer
func (a *ClientCredentialsAcquirer) Token(ctx context.Context) (string, error) {
	tok, err := a.FetchToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

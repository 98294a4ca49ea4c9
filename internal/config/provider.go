package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prithuhomes/customerportal/internal/clock"
	"github.com/prithuhomes/customerportal/internal/contact"
	"github.com/prithuhomes/customerportal/internal/httpfixture"
	"github.com/prithuhomes/customerportal/internal/odata"
	"github.com/prithuhomes/customerportal/internal/portal"
	"github.com/prithuhomes/customerportal/internal/probe"
	"github.com/prithuhomes/customerportal/internal/server"
	"github.com/prithuhomes/customerportal/internal/servicetoken"
	"github.com/prithuhomes/customerportal/internal/trust"
)

// Provider constructs all application components from configuration
// This is the main entry point for building a configured portal instance
type Provider struct {
	config *Config

	// LogOutput defaults to stderr
	LogOutput io.Writer

	// Clock defaults to the system clock
	Clock clock.Clock

	// Lazily constructed components (cached after first call)
	logger     *slog.Logger
	httpClient *http.Client
	fixtures   *httpfixture.Transport
	validator  trust.Validator
	tokens     servicetoken.Acquirer
	dataClient *odata.Client
	resolver   *contact.Resolver
	service    *portal.Service
	peers      *portal.CatalogPeers
	handler    *server.Handler
	observer   server.Observer
}

// NewProvider creates a new provider from configuration
func NewProvider(config *Config) *Provider {
	return &Provider{
		config: config,
	}
}

// Logger returns the application logger, built from the observability
// settings
func (p *Provider) Logger() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}

	out := p.LogOutput
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelInfo
	format := "json"
	if obs := p.config.Observability; obs != nil {
		if obs.LogLevel != "" {
			if err := level.UnmarshalText([]byte(obs.LogLevel)); err != nil {
				level = slog.LevelInfo
			}
		}
		if obs.LogFormat != "" {
			format = strings.ToLower(obs.LogFormat)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	p.logger = slog.New(handler)
	return p.logger
}

// Observer returns the request observer
func (p *Provider) Observer() server.Observer {
	if p.observer != nil {
		return p.observer
	}

	typ := "logging"
	if p.config.Observability != nil && p.config.Observability.Type != "" {
		typ = p.config.Observability.Type
	}
	switch typ {
	case "noop":
		p.observer = server.NoopObserver{}
	default:
		p.observer = probe.NewLoggingObserver(p.Logger())
	}
	return p.observer
}

// Fixtures returns the fixture transport when fixtures are configured, or
// nil. All outbound HTTP is answered by it.
func (p *Provider) Fixtures() (*httpfixture.Transport, error) {
	if p.fixtures != nil || len(p.config.Fixtures) == 0 {
		return p.fixtures, nil
	}

	fixtureProvider, err := BuildFixtureProvider(p.config.Fixtures)
	if err != nil {
		return nil, fmt.Errorf("failed to build fixtures: %w", err)
	}
	if fixtureProvider == nil {
		return nil, nil
	}

	p.fixtures = httpfixture.NewTransport(fixtureProvider)
	return p.fixtures, nil
}

// HTTPClient returns the client for outbound calls to the identity provider
// and the data platform
func (p *Provider) HTTPClient() (*http.Client, error) {
	if p.httpClient != nil {
		return p.httpClient, nil
	}

	timeout, err := parseDuration(p.config.Dataverse.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dataverse.timeout: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	fixtures, err := p.Fixtures()
	if err != nil {
		return nil, err
	}
	if fixtures != nil {
		client.Transport = fixtures
	}

	p.httpClient = client
	return client, nil
}

// Validator returns the end-user token validator
func (p *Provider) Validator() (trust.Validator, error) {
	if p.validator != nil {
		return p.validator, nil
	}

	ext := p.config.External
	httpClient, err := p.HTTPClient()
	if err != nil {
		return nil, err
	}
	refresh, err := parseDuration(ext.KeysRefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("external.keys_refresh_interval: %w", err)
	}
	skew, err := parseDuration(ext.ClockSkew)
	if err != nil {
		return nil, fmt.Errorf("external.clock_skew: %w", err)
	}

	keys, err := trust.NewOIDCConfigCache(trust.OIDCConfigCacheConfig{
		MetadataURL:     ext.MetadataURL,
		HTTPClient:      httpClient,
		Clock:           p.Clock,
		RefreshInterval: refresh,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create signing key cache: %w", err)
	}

	validator, err := trust.NewJWTValidator(trust.JWTValidatorConfig{
		Issuer:         ext.Issuer,
		Audience:       ext.ClientID,
		ExpectedPolicy: ext.Policy,
		ClockSkew:      skew,
		Keys:           keys,
		Clock:          p.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}

	p.validator = validator
	return validator, nil
}

// ServiceTokens returns the acquirer of data platform access tokens
func (p *Provider) ServiceTokens() (servicetoken.Acquirer, error) {
	if p.tokens != nil {
		return p.tokens, nil
	}

	in := p.config.Internal
	httpClient, err := p.HTTPClient()
	if err != nil {
		return nil, err
	}

	source, err := servicetoken.NewClientCredentialsAcquirer(servicetoken.ClientCredentialsConfig{
		ClientID:     in.ClientID,
		ClientSecret: in.ClientSecret,
		TenantID:     in.TenantID,
		Authority:    in.Authority,
		Resource:     p.config.Dataverse.URL,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service token acquirer: %w", err)
	}

	if in.CacheTokens {
		p.tokens = servicetoken.NewCachingAcquirer(source, servicetoken.CachingConfig{Clock: p.Clock})
	} else {
		p.tokens = source
	}
	return p.tokens, nil
}

// DataClient returns the data platform OData client
func (p *Provider) DataClient() (*odata.Client, error) {
	if p.dataClient != nil {
		return p.dataClient, nil
	}

	httpClient, err := p.HTTPClient()
	if err != nil {
		return nil, err
	}

	client, err := odata.NewClient(odata.ClientConfig{
		URL:        p.config.Dataverse.URL,
		APIPath:    p.config.Dataverse.APIPath,
		HTTPClient: httpClient,
		Logger:     p.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create data platform client: %w", err)
	}

	p.dataClient = client
	return client, nil
}

// ContactResolver returns the resolver of token identities to contacts
func (p *Provider) ContactResolver() (*contact.Resolver, error) {
	if p.resolver != nil {
		return p.resolver, nil
	}

	client, err := p.DataClient()
	if err != nil {
		return nil, err
	}

	c := p.config.Dataverse.Contacts
	p.resolver = contact.NewResolver(client, contact.Config{
		Table:         c.Table,
		IDField:       odata.Field(c.IDField),
		ObjectIDField: odata.Field(c.ObjectIDField),
		EmailField:    odata.Field(c.EmailField),
	}, p.Logger())
	return p.resolver, nil
}

// CatalogPeers returns the peer pool of the distributed catalog cache, or
// nil when the cache is not shared. The pool is process-wide; it is built
// once per Provider.
func (p *Provider) CatalogPeers() *portal.CatalogPeers {
	cc := p.config.CatalogCache
	if portal.CatalogCacheType(cc.Type) != portal.CatalogCacheDistributed || len(cc.Peers) == 0 {
		return nil
	}
	if p.peers == nil {
		p.peers = portal.NewCatalogPeers(portal.CatalogPeersConfig{
			SelfURL:  cc.SelfURL,
			PeerURLs: cc.Peers,
			BasePath: cc.BasePath,
		})
	}
	return p.peers
}

// PortalService returns the entity dispatch service
func (p *Provider) PortalService() (*portal.Service, error) {
	if p.service != nil {
		return p.service, nil
	}

	client, err := p.DataClient()
	if err != nil {
		return nil, err
	}
	tokens, err := p.ServiceTokens()
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration(p.config.CatalogCache.TTL)
	if err != nil {
		return nil, fmt.Errorf("catalog_cache.ttl: %w", err)
	}

	// peers must be registered before the distributed group is created
	p.CatalogPeers()

	service, err := portal.NewService(portal.Config{
		Client:     client,
		Tables:     p.config.Tables(),
		EntityKeys: p.config.EntityKeys(),
		Catalog: portal.CatalogCacheConfig{
			Type:           portal.CatalogCacheType(p.config.CatalogCache.Type),
			TTL:            ttl,
			GroupName:      p.config.CatalogCache.GroupName,
			CacheSizeBytes: p.config.CatalogCache.CacheSize,
			Tokens:         tokens,
			Clock:          p.Clock,
		},
		Logger: p.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create portal service: %w", err)
	}

	p.service = service
	return service, nil
}

// Handler returns the portal request handler
func (p *Provider) Handler() (*server.Handler, error) {
	if p.handler != nil {
		return p.handler, nil
	}

	validator, err := p.Validator()
	if err != nil {
		return nil, err
	}
	tokens, err := p.ServiceTokens()
	if err != nil {
		return nil, err
	}
	resolver, err := p.ContactResolver()
	if err != nil {
		return nil, err
	}
	service, err := p.PortalService()
	if err != nil {
		return nil, err
	}

	handler, err := server.NewHandler(server.HandlerConfig{
		Validator:    validator,
		RequiredRole: p.config.External.RequiredRole,
		Tokens:       tokens,
		Contacts:     resolver,
		Portal:       service,
		Observer:     p.Observer(),
		Logger:       p.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create portal handler: %w", err)
	}

	p.handler = handler
	return handler, nil
}

// ServerConfig returns the server configuration with the portal handler and
// catalog peers wired in
func (p *Provider) ServerConfig() (server.Config, error) {
	handler, err := p.Handler()
	if err != nil {
		return server.Config{}, err
	}

	cfg := server.Config{
		Addr:           fmt.Sprintf(":%d", p.config.Server.HTTPPort),
		RoutePrefix:    p.config.Server.RoutePrefix,
		AllowedOrigins: p.config.Server.AllowedOrigins,
		Handler:        handler,
		Logger:         p.Logger(),
	}
	if peers := p.CatalogPeers(); peers != nil {
		cfg.Peers = peers
	}
	return cfg, nil
}

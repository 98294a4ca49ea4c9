package trust

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/prithuhomes/customerportal/internal/clock"
)

// MinForcedRefreshInterval bounds how often an unknown key id may trigger a
// refetch of the signing keys.
const MinForcedRefreshInterval = time.Minute

// OIDCConfiguration is the subset of an identity provider's discovery document
// needed to validate tokens, along with the resolved signing keys.
type OIDCConfiguration struct {
	Issuer    string
	JWKSURI   string
	Keys      jwk.Set
	FetchedAt time.Time
}

// HasKey reports whether the key set contains kid
func (c *OIDCConfiguration) HasKey(kid string) bool {
	if c == nil || c.Keys == nil {
		return false
	}
	_, ok := c.Keys.LookupKeyID(kid)
	return ok
}

// OIDCConfigCacheConfig configures an OIDCConfigCache.
type OIDCConfigCacheConfig struct {
	// MetadataURL is the OpenID discovery document URL
	MetadataURL string

	HTTPClient *http.Client

	Clock clock.Clock

	// RefreshInterval is how long a fetched configuration is used before it
	// is fetched again. Zero keeps it for the life of the cache.
	RefreshInterval time.Duration
}

// OIDCConfigCache lazily fetches and memoizes the discovery document and
// signing keys for one metadata URL. It is safe for concurrent use; concurrent
// first use results in a single fetch.
type OIDCConfigCache struct {
	httpClient      *http.Client
	clock           clock.Clock
	refreshInterval time.Duration

	mu          sync.RWMutex
	metadataURL string
	current     *OIDCConfiguration
}

// NewOIDCConfigCache creates a cache. Nothing is fetched until first use.
func NewOIDCConfigCache(cfg OIDCConfigCacheConfig) (*OIDCConfigCache, error) {
	if strings.TrimSpace(cfg.MetadataURL) == "" {
		return nil, fmt.Errorf("metadata url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OIDCConfigCache{
		httpClient:      httpClient,
		clock:           clock.OrSystem(cfg.Clock),
		refreshInterval: cfg.RefreshInterval,
		metadataURL:     cfg.MetadataURL,
	}, nil
}

// MetadataURL returns the URL currently in use
func (c *OIDCConfigCache) MetadataURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadataURL
}

// SetMetadataURL points the cache at a different discovery document. The
// cached configuration is dropped only when the URL actually changes
// (compared case-insensitively).
func (c *OIDCConfigCache) SetMetadataURL(metadataURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.EqualFold(c.metadataURL, metadataURL) {
		return
	}
	c.metadataURL = metadataURL
	c.current = nil
}

// Get returns the cached configuration, fetching it on first use or when the
// refresh interval has elapsed.
func (c *OIDCConfigCache) Get(ctx context.Context) (*OIDCConfiguration, error) {
	c.mu.RLock()
	cfg := c.current
	c.mu.RUnlock()
	if c.fresh(cfg) {
		return cfg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have fetched while we waited for the lock
	if c.fresh(c.current) {
		return c.current, nil
	}
	return c.fetchLocked(ctx)
}

// RefreshForKey refetches the configuration when kid is not among the cached
// keys, at most once per MinForcedRefreshInterval. It returns the configuration
// to validate with, which may still lack kid.
func (c *OIDCConfigCache) RefreshForKey(ctx context.Context, kid string) (*OIDCConfiguration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return c.fetchLocked(ctx)
	}
	if c.current.HasKey(kid) {
		return c.current, nil
	}
	if c.clock.Now().Sub(c.current.FetchedAt) < MinForcedRefreshInterval {
		return c.current, nil
	}
	return c.fetchLocked(ctx)
}

func (c *OIDCConfigCache) fresh(cfg *OIDCConfiguration) bool {
	if cfg == nil {
		return false
	}
	if c.refreshInterval <= 0 {
		return true
	}
	return c.clock.Now().Sub(cfg.FetchedAt) < c.refreshInterval
}

// fetchLocked must be called with c.mu held for writing
func (c *OIDCConfigCache) fetchLocked(ctx context.Context) (*OIDCConfiguration, error) {
	doc, err := c.fetchDiscovery(ctx, c.metadataURL)
	if err != nil {
		return nil, err
	}

	keys, err := jwk.Fetch(ctx, doc.JWKSURI, jwk.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", doc.JWKSURI, err)
	}

	c.current = &OIDCConfiguration{
		Issuer:    doc.Issuer,
		JWKSURI:   doc.JWKSURI,
		Keys:      keys,
		FetchedAt: c.clock.Now(),
	}
	return c.current, nil
}

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

func (c *OIDCConfigCache) fetchDiscovery(ctx context.Context, metadataURL string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("discovery document returned status %d: %s", resp.StatusCode, body)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document at %s has no jwks_uri", metadataURL)
	}
	return &doc, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prithuhomes/customerportal/internal/portal"
)

// ErrMissingRequired is wrapped by Validate for each required setting that
// is blank
var ErrMissingRequired = errors.New("required configuration is missing")

// Validate checks the settings needed to start serving. Table settings of
// individual entities are not checked here; an entity reports its missing
// settings when it is requested.
func (c *Config) Validate() error {
	var errs []error

	required := []struct {
		key   string
		value string
	}{
		{"external.issuer", c.External.Issuer},
		{"external.client_id", c.External.ClientID},
		{"external.metadata_url", c.External.MetadataURL},
		{"internal.client_id", c.Internal.ClientID},
		{"internal.client_secret", c.Internal.ClientSecret},
		{"internal.tenant_id", c.Internal.TenantID},
		{"dataverse.url", c.Dataverse.URL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingRequired, r.key))
		}
	}

	durations := []struct {
		key   string
		value string
	}{
		{"external.clock_skew", c.External.ClockSkew},
		{"external.keys_refresh_interval", c.External.KeysRefreshInterval},
		{"dataverse.timeout", c.Dataverse.Timeout},
		{"catalog_cache.ttl", c.CatalogCache.TTL},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
		}
	}

	if mode := c.Dataverse.Secondary.Mode; mode != "" &&
		!strings.EqualFold(mode, string(portal.SecondaryCustomerLookup)) &&
		!strings.EqualFold(mode, string(portal.SecondaryProjectLookup)) {
		errs = append(errs, fmt.Errorf("dataverse.secondary.mode: unknown mode %q (use CustomerLookup or ProjectLookup)", mode))
	}
	if level := c.Dataverse.Fifth.LookupLevel; level != "" &&
		!strings.EqualFold(level, string(portal.LookupThird)) &&
		!strings.EqualFold(level, string(portal.LookupFourth)) {
		errs = append(errs, fmt.Errorf("dataverse.fifth.lookup_level: unknown level %q (use Third or Fourth)", level))
	}

	switch portal.CatalogCacheType(c.CatalogCache.Type) {
	case "", portal.CatalogCacheNone, portal.CatalogCacheInMemory:
	case portal.CatalogCacheDistributed:
		if len(c.CatalogCache.Peers) > 0 && c.CatalogCache.SelfURL == "" {
			errs = append(errs, fmt.Errorf("%w: catalog_cache.self_url (required with peers)", ErrMissingRequired))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog_cache.type: unknown type %q", c.CatalogCache.Type))
	}

	if _, err := portal.NewDispatchTable(c.EntityKeys()); err != nil {
		errs = append(errs, fmt.Errorf("entities: %w", err))
	}

	return errors.Join(errs...)
}

// parseDuration parses a duration string; blank means zero
func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Default()
	cfg.External.Issuer = "https://login.example.com/tenant/v2.0/"
	cfg.External.ClientID = "portal-client-id"
	cfg.External.MetadataURL = "https://login.example.com/tenant/v2.0/.well-known/openid-configuration"
	cfg.Internal.ClientID = "svc-client"
	cfg.Internal.ClientSecret = "svc-secret"
	cfg.Internal.TenantID = "tenant"
	cfg.Dataverse.URL = "https://org.crm.dynamics.com"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing issuer",
			mutate:  func(c *Config) { c.External.Issuer = " " },
			wantErr: "external.issuer",
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.Internal.ClientSecret = "" },
			wantErr: "internal.client_secret",
		},
		{
			name:    "missing data platform url",
			mutate:  func(c *Config) { c.Dataverse.URL = "" },
			wantErr: "dataverse.url",
		},
		{
			name:    "bad ttl",
			mutate:  func(c *Config) { c.CatalogCache.TTL = "soon" },
			wantErr: "catalog_cache.ttl",
		},
		{
			name:    "negative skew",
			mutate:  func(c *Config) { c.External.ClockSkew = "-1m" },
			wantErr: "external.clock_skew",
		},
		{
			name:    "unknown secondary mode",
			mutate:  func(c *Config) { c.Dataverse.Secondary.Mode = "Contact" },
			wantErr: "dataverse.secondary.mode",
		},
		{
			name:   "mode is case insensitive",
			mutate: func(c *Config) { c.Dataverse.Secondary.Mode = "projectlookup" },
		},
		{
			name:    "unknown lookup level",
			mutate:  func(c *Config) { c.Dataverse.Fifth.LookupLevel = "Second" },
			wantErr: "dataverse.fifth.lookup_level",
		},
		{
			name:    "unknown cache type",
			mutate:  func(c *Config) { c.CatalogCache.Type = "redis" },
			wantErr: "catalog_cache.type",
		},
		{
			name: "peers without self url",
			mutate: func(c *Config) {
				c.CatalogCache.Type = "distributed"
				c.CatalogCache.Peers = []string{"http://10.0.0.4:8080"}
			},
			wantErr: "catalog_cache.self_url",
		},
		{
			name:    "duplicate entity key",
			mutate:  func(c *Config) { c.Entities.Fourth = "Related" },
			wantErr: "entities",
		},
		{
			name:    "entity key shadows projects",
			mutate:  func(c *Config) { c.Entities.Sixth = "projects" },
			wantErr: "entities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAll(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("Validate() error = %v, want ErrMissingRequired", err)
	}
	for _, key := range []string{"external.issuer", "external.client_id", "internal.tenant_id", "dataverse.url"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should mention %s: %v", key, err)
		}
	}
}

func TestConfig_Tables(t *testing.T) {
	cfg := validConfig()
	cfg.Dataverse.Projects.Select = "sgr_name, sgr_stage,"
	cfg.Dataverse.ProductSetItems.ProductSetLookupField = "_sgr_productset_value"
	cfg.Dataverse.ProductAccess.Rule = `row.sgr_stage >= 1`

	tables := cfg.Tables()

	if got := len(tables.Projects.Select); got != 2 {
		t.Errorf("Projects.Select has %d fields, want 2", got)
	}
	if tables.Projects.Table != "sgr_projects" || tables.Projects.CustomerLookupField != "_sgr_customer_value" {
		t.Errorf("Projects = %+v", tables.Projects)
	}
	if tables.ProductSetItems.SetLookupField != "_sgr_productset_value" {
		t.Errorf("ProductSetItems.SetLookupField = %q", tables.ProductSetItems.SetLookupField)
	}
	if tables.ProductAccess.Rule != `row.sgr_stage >= 1` {
		t.Errorf("ProductAccess.Rule = %q", tables.ProductAccess.Rule)
	}
	if tables.Sixth.ProductSetBindField != "sgr_productset@odata.bind" {
		t.Errorf("Sixth.ProductSetBindField = %q", tables.Sixth.ProductSetBindField)
	}

	keys := cfg.EntityKeys()
	if keys.ProjectSpaceSelection != "projectspaceselection" || keys.Secondary != "related" {
		t.Errorf("EntityKeys = %+v", keys)
	}
}

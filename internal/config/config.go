package config

// Config is the root configuration structure for the portal
type Config struct {
	// Server configuration (HTTP listener and routes)
	Server ServerConfig `koanf:"server"`

	// External is the identity provider that signs end-user tokens
	External ExternalConfig `koanf:"external"`

	// Internal is the confidential client used to call the data platform
	Internal InternalConfig `koanf:"internal"`

	// Dataverse names the data platform environment, tables and columns
	Dataverse DataverseConfig `koanf:"dataverse"`

	// Entities are the values of the "entity" query parameter
	Entities EntitiesConfig `koanf:"entities"`

	// CatalogCache configures caching of product catalog reads
	CatalogCache CatalogCacheConfig `koanf:"catalog_cache"`

	// Fixtures for hermetic testing (HTTP rules, etc.)
	Fixtures []FixtureConfig `koanf:"fixtures"`

	// Observability configuration (logging)
	Observability *ObservabilityConfig `koanf:"observability"`
}

// ServerConfig contains network-level server settings
type ServerConfig struct {
	// HTTPPort is the port the portal API listens on
	HTTPPort int `koanf:"http_port" usage:"HTTP server port"`

	// RoutePrefix is prepended to the portal routes, which are also served
	// without it
	RoutePrefix string `koanf:"route_prefix" usage:"route prefix of the portal API (routes are also served without it)"`

	// AllowedOrigins enables CORS for the frontend origins
	AllowedOrigins []string `koanf:"allowed_origins" usage:"origins allowed to call the API from a browser"`
}

// ExternalConfig configures end-user token validation
type ExternalConfig struct {
	Issuer      string `koanf:"issuer" usage:"expected token issuer"`
	ClientID    string `koanf:"client_id" usage:"expected token audience (portal app client id)"`
	MetadataURL string `koanf:"metadata_url" usage:"OpenID discovery document URL"`

	// Policy, when set, must match the token's tfp/acr claim
	Policy string `koanf:"policy" usage:"expected sign-in policy (tfp/acr); empty skips the check"`

	// RequiredRole must be present in the token's roles; empty disables the check
	RequiredRole string `koanf:"required_role" usage:"role required to use the portal; empty disables the check"`

	// ClockSkew is a duration string like "5m"
	ClockSkew string `koanf:"clock_skew" usage:"allowed clock skew for exp/nbf"`

	// KeysRefreshInterval re-fetches the discovery document periodically;
	// empty keeps it until an unknown key id is seen
	KeysRefreshInterval string `koanf:"keys_refresh_interval" usage:"signing key refresh interval, e.g. 24h"`
}

// InternalConfig configures the client credentials grant for the data platform
type InternalConfig struct {
	ClientID     string `koanf:"client_id" usage:"service identity client id"`
	ClientSecret string `koanf:"client_secret" usage:"service identity client secret"`
	TenantID     string `koanf:"tenant_id" usage:"service identity tenant id"`
	Authority    string `koanf:"authority" usage:"token authority base URL"`

	// CacheTokens reuses a service token until shortly before it expires
	CacheTokens bool `koanf:"cache_tokens" usage:"reuse service tokens until shortly before expiry"`
}

// DataverseConfig names the data platform and the tables the portal uses
type DataverseConfig struct {
	URL     string `koanf:"url" usage:"data platform environment URL"`
	APIPath string `koanf:"api_path" usage:"OData API path"`

	// Timeout for data platform requests, a duration string like "30s"
	Timeout string `koanf:"timeout" usage:"data platform request timeout"`

	Contacts        ContactsConfig        `koanf:"contacts"`
	Projects        ProjectsConfig        `koanf:"projects"`
	Secondary       SecondaryConfig       `koanf:"secondary"`
	Third           ThirdConfig           `koanf:"third"`
	Fourth          FourthConfig          `koanf:"fourth"`
	Fifth           FifthConfig           `koanf:"fifth"`
	Sixth           SixthConfig           `koanf:"sixth"`
	ProductAccess   ProductAccessConfig   `koanf:"product_access"`
	ProductSets     ProductSetsConfig     `koanf:"product_sets"`
	ProductSetItems ProductSetItemsConfig `koanf:"product_set_items"`
	ProductMasters  ProductMastersConfig  `koanf:"product_masters"`
}

// ContactsConfig names the contact table
type ContactsConfig struct {
	Table         string `koanf:"table"`
	IDField       string `koanf:"id_field"`
	ObjectIDField string `koanf:"object_id_field"`
	EmailField    string `koanf:"email_field"`
}

// Select lists are comma separated column names. Empty selects all columns.

type ProjectsConfig struct {
	Table               string `koanf:"table"`
	IDField             string `koanf:"id_field"`
	CustomerLookupField string `koanf:"customer_lookup_field"`
	Select              string `koanf:"select"`
}

type SecondaryConfig struct {
	Table string `koanf:"table"`

	// Mode is "CustomerLookup" or "ProjectLookup"
	Mode                string `koanf:"mode"`
	CustomerLookupField string `koanf:"customer_lookup_field"`
	ProjectLookupField  string `koanf:"project_lookup_field"`
	IDField             string `koanf:"id_field"`
	Select              string `koanf:"select"`
}

type ThirdConfig struct {
	Table              string `koanf:"table"`
	ProjectLookupField string `koanf:"project_lookup_field"`
	IDField            string `koanf:"id_field"`
	Select             string `koanf:"select"`
}

type FourthConfig struct {
	Table            string `koanf:"table"`
	ThirdLookupField string `koanf:"third_lookup_field"`
	IDField          string `koanf:"id_field"`
	Select           string `koanf:"select"`
}

type FifthConfig struct {
	Table string `koanf:"table"`

	// LookupLevel is "Third" or "Fourth"
	LookupLevel       string `koanf:"lookup_level"`
	ThirdLookupField  string `koanf:"third_lookup_field"`
	FourthLookupField string `koanf:"fourth_lookup_field"`
	Select            string `koanf:"select"`
}

type SixthConfig struct {
	Table                  string `koanf:"table"`
	ProjectLookupField     string `koanf:"project_lookup_field"`
	IDField                string `koanf:"id_field"`
	ProductSetLookupField  string `koanf:"product_set_lookup_field"`
	CustomerSelectionField string `koanf:"customer_selection_field"`
	ProductSetBindField    string `koanf:"product_set_bind_field"`
	Select                 string `koanf:"select"`
}

type ProductAccessConfig struct {
	Field        string `koanf:"field"`
	AllowedValue string `koanf:"allowed_value"`

	// Rule is an optional CEL expression over "row" that replaces the
	// field/value comparison
	Rule string `koanf:"rule" usage:"CEL expression over row granting product access"`
}

type ProductSetsConfig struct {
	Table   string `koanf:"table"`
	IDField string `koanf:"id_field"`
	Select  string `koanf:"select"`
}

type ProductSetItemsConfig struct {
	Table                    string `koanf:"table"`
	ProductSetLookupField    string `koanf:"product_set_lookup_field"`
	ProductMasterLookupField string `koanf:"product_master_lookup_field"`
	Select                   string `koanf:"select"`
}

type ProductMastersConfig struct {
	Table   string `koanf:"table"`
	IDField string `koanf:"id_field"`
	Select  string `koanf:"select"`
}

// EntitiesConfig sets the entity key of each dataset. "projects" is fixed.
type EntitiesConfig struct {
	Secondary             string `koanf:"secondary"`
	Third                 string `koanf:"third"`
	Fourth                string `koanf:"fourth"`
	Fifth                 string `koanf:"fifth"`
	Sixth                 string `koanf:"sixth"`
	ProductAccess         string `koanf:"product_access"`
	ProductSelection      string `koanf:"product_selection"`
	ProjectSpaceSelection string `koanf:"project_space_selection"`
}

// CatalogCacheConfig configures caching for the product catalog
type CatalogCacheConfig struct {
	// Type selects the caching implementation
	// Options: "in_memory", "distributed", "none"
	Type string `koanf:"type" usage:"catalog cache type: none, in_memory, distributed"`

	// TTL is the cache time-to-live
	TTL string `koanf:"ttl" usage:"catalog cache TTL, e.g. 5m"` // Duration string like "5m"

	// Distributed caching fields
	GroupName string `koanf:"group_name"` // For groupcache
	CacheSize int64  `koanf:"cache_size"` // Cache size in bytes

	// SelfURL and Peers list the instances sharing the distributed cache.
	// Without peers each instance caches on its own.
	SelfURL  string   `koanf:"self_url" usage:"this instance's URL for catalog cache peers"`
	Peers    []string `koanf:"peers" usage:"URLs of every instance sharing the catalog cache"`
	BasePath string   `koanf:"base_path"`
}

// FixtureConfig configures a fixture for hermetic testing
type FixtureConfig struct {
	// Type selects the fixture type
	// Options: "http_rule", "file"
	Type string `koanf:"type"`

	// HTTP rule fields (when Type is "http_rule")
	Request  FixtureRequest  `koanf:"request"`
	Response FixtureResponse `koanf:"response"`

	// Path is a fixture file or directory (when Type is "file")
	Path string `koanf:"path"`
}

// FixtureRequest defines request matching criteria for HTTP fixtures
type FixtureRequest struct {
	// Method is the HTTP method to match (e.g., "GET", "PATCH", "*" for any)
	Method string `koanf:"method"`

	// URL is the URL to match (exact or pattern based on URLType)
	URL string `koanf:"url"`

	// URLType specifies how to match the URL
	// Options: "exact" (default), "pattern" (regex)
	URLType string `koanf:"url_type"`

	// Path matches the end of the URL path, e.g. "/contacts"
	Path string `koanf:"path"`

	// Query matches decoded query parameters, e.g. "$filter"
	Query map[string]string `koanf:"query"`

	// Headers are optional headers to match
	Headers map[string]string `koanf:"headers"`
}

// FixtureResponse defines the HTTP response to return for a fixture
type FixtureResponse struct {
	// StatusCode is the HTTP status code (e.g., 200, 404)
	StatusCode int `koanf:"status"`

	// Headers are optional response headers
	Headers map[string]string `koanf:"headers"`

	// Body is the response body content
	Body string `koanf:"body"`
}

// ObservabilityConfig configures application observability
type ObservabilityConfig struct {
	// Type selects the observer implementation
	// Options: "logging", "noop"
	Type string `koanf:"type" usage:"observer type: logging, noop"`

	// LogLevel sets the default log level for logging observer
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `koanf:"log_level" usage:"log level: debug, info, warn, error"`

	// LogFormat sets the log format
	// Options: "json", "text"
	// Default: "json"
	LogFormat string `koanf:"log_format" usage:"log format: json, text"`
}

// Default returns the configuration used when nothing is set. Table and
// column defaults are the stock names of the deployment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPPort:    8080,
			RoutePrefix: "/api",
		},
		External: ExternalConfig{
			RequiredRole: "customer_portal_access",
			ClockSkew:    "5m",
		},
		Internal: InternalConfig{
			CacheTokens: true,
		},
		Dataverse: DataverseConfig{
			APIPath: "/api/data/v9.2",
			Timeout: "30s",
			Contacts: ContactsConfig{
				Table:         "contacts",
				IDField:       "contactid",
				ObjectIDField: "prithu_b2cobjectid",
				EmailField:    "emailaddress1",
			},
			Projects: ProjectsConfig{
				Table:               "sgr_projects",
				IDField:             "sgr_projectid",
				CustomerLookupField: "_sgr_customer_value",
			},
			Secondary: SecondaryConfig{
				Mode:    "CustomerLookup",
				IDField: "sgr_customeragreementid",
			},
			Fourth: FourthConfig{
				IDField: "sgr_paymentmilestoneid",
			},
			Fifth: FifthConfig{
				LookupLevel: "Third",
			},
			Sixth: SixthConfig{
				Table:                  "sgr_projectspaces",
				ProjectLookupField:     "_sgr_project_value",
				IDField:                "sgr_projectspaceid",
				ProductSetLookupField:  "_sgr_productset_value",
				CustomerSelectionField: "sgr_customerselection",
				ProductSetBindField:    "sgr_productset@odata.bind",
			},
			ProductAccess: ProductAccessConfig{
				Field:        "sgr_stage",
				AllowedValue: "1",
			},
			ProductSets: ProductSetsConfig{
				Table:   "sgr_productsets",
				IDField: "sgr_productsetid",
			},
			ProductMasters: ProductMastersConfig{
				IDField: "sgr_productmasterid",
			},
		},
		Entities: EntitiesConfig{
			Secondary:             "related",
			Third:                 "customeragreements",
			Fourth:                "paymentmilestones",
			Fifth:                 "paymenttransactions",
			Sixth:                 "projectspaces",
			ProductAccess:         "productaccess",
			ProductSelection:      "productselection",
			ProjectSpaceSelection: "projectspaceselection",
		},
		CatalogCache: CatalogCacheConfig{
			Type: "none",
		},
		Observability: &ObservabilityConfig{
			Type:      "logging",
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

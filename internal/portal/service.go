package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prithuhomes/customerportal/internal/cel"
	"github.com/prithuhomes/customerportal/internal/clock"
	"github.com/prithuhomes/customerportal/internal/odata"
	"github.com/prithuhomes/customerportal/internal/servicetoken"
)

// CatalogCacheConfig configures caching of product catalog reads
type CatalogCacheConfig struct {
	// Type defaults to CatalogCacheNone
	Type CatalogCacheType

	// TTL bounds how long an entry is served. Zero keeps entries until
	// restart (in_memory) or LRU eviction (distributed).
	TTL time.Duration

	// GroupName and CacheSizeBytes configure the distributed cache
	GroupName      string
	CacheSizeBytes int64

	// Tokens loads keys requested by peers of the distributed cache
	Tokens servicetoken.Acquirer

	Clock clock.Clock
}

// Config configures a Service
type Config struct {
	Client     DataClient
	Tables     Tables
	EntityKeys EntityKeys
	Catalog    CatalogCacheConfig
	Logger     *slog.Logger
}

// Service answers portal requests for an already resolved contact
type Service struct {
	dispatch   *DispatchTable
	q          *querier
	catalog    CatalogSource
	accessRule *cel.RowRule
	logger     *slog.Logger
}

// NewService validates cfg and builds the dispatch table, the catalog cache
// and the optional product access rule.
func NewService(cfg Config) (*Service, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("data platform client is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dispatch, err := NewDispatchTable(cfg.EntityKeys)
	if err != nil {
		return nil, fmt.Errorf("invalid entity keys: %w", err)
	}

	var rule *cel.RowRule
	if expr := strings.TrimSpace(cfg.Tables.ProductAccess.Rule); expr != "" {
		if rule, err = cel.CompileRowRule(expr); err != nil {
			return nil, fmt.Errorf("invalid product access rule: %w", err)
		}
	}

	q := &querier{client: cfg.Client, tables: cfg.Tables, logger: logger}

	var catalog CatalogSource = &catalogLoader{q: q}
	switch cfg.Catalog.Type {
	case "", CatalogCacheNone:
	case CatalogCacheInMemory:
		catalog = NewMemoryCatalogCache(catalog, cfg.Catalog.TTL, cfg.Catalog.Clock)
	case CatalogCacheDistributed:
		catalog = NewDistributedCatalogCache(catalog, DistributedCatalogCacheConfig{
			GroupName:      cfg.Catalog.GroupName,
			CacheSizeBytes: cfg.Catalog.CacheSizeBytes,
			TTL:            cfg.Catalog.TTL,
			Tokens:         cfg.Catalog.Tokens,
			Clock:          cfg.Catalog.Clock,
		})
	default:
		return nil, fmt.Errorf("unknown catalog cache type %q", cfg.Catalog.Type)
	}

	return &Service{
		dispatch:   dispatch,
		q:          q,
		catalog:    catalog,
		accessRule: rule,
		logger:     logger,
	}, nil
}

// Dispatch returns the entity dispatch table
func (s *Service) Dispatch() *DispatchTable {
	return s.dispatch
}

// Request is a portal request for a resolved contact
type Request struct {
	ContactID    string
	ServiceToken string
	// Entity is the requested entity name as received; it is normalized here
	Entity string
	Method string
	// Body is only read for the project space selection update
	Body io.Reader
}

// Response is a successful result. Body is ready to be encoded as JSON.
type Response struct {
	Kind   EntityKind
	Entity string
	Body   any
	// Count is the number of rows returned, for logging
	Count int
}

// Handle routes the request by method and entity name. A POST to the
// project space selection entity runs the update; any other non-GET request
// is a *MethodNotAllowedError; a GET to an unknown entity, or to the
// selection entity which has no read, is an *UnsupportedEntityError.
func (s *Service) Handle(ctx context.Context, req Request) (*Response, error) {
	entity := NormalizeEntity(req.Entity)
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	kind, known := s.dispatch.Lookup(entity)
	if method == http.MethodPost && known && kind == EntityProjectSpaceSelection {
		sel, err := ParseProjectSpaceSelection(req.Body)
		if err != nil {
			return nil, err
		}
		result, err := s.q.updateProjectSpaceSelection(ctx, req.ServiceToken, req.ContactID, sel)
		if err != nil {
			return nil, err
		}
		return &Response{Kind: kind, Entity: entity, Body: result, Count: 1}, nil
	}
	if method != http.MethodGet {
		return nil, &MethodNotAllowedError{Method: method, Entity: entity}
	}
	if !known || kind == EntityProjectSpaceSelection {
		s.logger.WarnContext(ctx, "Unsupported entity requested",
			"entity", entity,
			"contact_id", req.ContactID)
		return nil, &UnsupportedEntityError{Entity: entity, Supported: s.dispatch.SupportedKeys()}
	}

	resp := &Response{Kind: kind, Entity: entity}
	token, contactID := req.ServiceToken, req.ContactID
	switch kind {
	case EntityProductAccess:
		result := s.q.productAccess(ctx, token, contactID, s.accessRule)
		resp.Body, resp.Count = result, 1
		return resp, nil
	case EntityProductSelection:
		selection, err := s.q.productSelection(ctx, token, contactID, s.catalog)
		if err != nil {
			return nil, err
		}
		resp.Body, resp.Count = selection, selection.Count()
		return resp, nil
	}

	var rows odata.Rows
	var err error
	switch kind {
	case EntityProjects:
		rows, err = s.q.projects(ctx, token, contactID)
	case EntitySecondary:
		rows, err = s.q.secondary(ctx, token, contactID)
	case EntityThird:
		rows, err = s.q.third(ctx, token, contactID)
	case EntityFourth:
		rows, err = s.q.fourth(ctx, token, contactID)
	case EntityFifth:
		rows, err = s.q.fifth(ctx, token, contactID)
	case EntitySixth:
		rows, err = s.q.sixth(ctx, token, contactID)
	default:
		return nil, fmt.Errorf("no handler for entity kind %s", kind)
	}
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = odata.Rows{}
	}
	resp.Body, resp.Count = rows, rows.Len()
	return resp, nil
}

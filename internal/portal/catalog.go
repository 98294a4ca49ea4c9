package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/prithuhomes/customerportal/internal/clock"
	"github.com/prithuhomes/customerportal/internal/odata"
	"github.com/prithuhomes/customerportal/internal/servicetoken"
)

// CatalogStep names one level of the product catalog
type CatalogStep string

const (
	CatalogProductSets     CatalogStep = "product_sets"
	CatalogProductSetItems CatalogStep = "product_set_items"
	CatalogProductMasters  CatalogStep = "product_masters"
)

// CatalogKey identifies one catalog read. IDs are the parent ids the step is
// filtered on: set ids for items, master ids for masters, none for sets.
// The catalog is not scoped to a contact, so a key is valid for every user.
type CatalogKey struct {
	Step CatalogStep `json:"step"`
	IDs  []string    `json:"ids,omitempty"`
}

// CatalogSource loads catalog rows
type CatalogSource interface {
	Load(ctx context.Context, token string, key CatalogKey) (odata.Rows, error)
}

// CatalogCacheType selects how catalog reads are cached
type CatalogCacheType string

const (
	CatalogCacheNone        CatalogCacheType = "none"
	CatalogCacheInMemory    CatalogCacheType = "in_memory"
	CatalogCacheDistributed CatalogCacheType = "distributed"
)

// catalogLoader reads the catalog straight from the data platform
type catalogLoader struct {
	q *querier
}

// productCatalogTop caps every catalog read
const productCatalogTop = 5000

func (l *catalogLoader) Load(ctx context.Context, token string, key CatalogKey) (odata.Rows, error) {
	t := l.q.tables
	var query odata.Query
	switch key.Step {
	case CatalogProductSets:
		query = odata.Query{
			Table:  t.ProductSets.Table,
			Select: t.ProductSets.Select,
			Top:    productCatalogTop,
		}
	case CatalogProductSetItems:
		query = odata.Query{
			Table:  t.ProductSetItems.Table,
			Filter: odata.AnyEq(t.ProductSetItems.SetLookupField, key.IDs),
			Select: t.ProductSetItems.Select,
		}
	case CatalogProductMasters:
		query = odata.Query{
			Table:  t.ProductMasters.Table,
			Filter: odata.AnyEq(t.ProductMasters.IDField, key.IDs),
			Select: t.ProductMasters.Select,
		}
	default:
		return nil, fmt.Errorf("unknown catalog step %q", key.Step)
	}
	if key.Step != CatalogProductSets && query.Filter.IsZero() {
		return odata.Rows{}, nil
	}
	return l.q.query(ctx, token, query)
}

// MemoryCatalogCache caches catalog reads in process for a fixed TTL
type MemoryCatalogCache struct {
	source CatalogSource
	ttl    time.Duration
	clock  clock.Clock
	cache  *sync.Map // map[string]*catalogEntry
}

type catalogEntry struct {
	rows      odata.Rows
	expiresAt time.Time
}

// NewMemoryCatalogCache wraps source. A zero TTL caches until restart.
func NewMemoryCatalogCache(source CatalogSource, ttl time.Duration, clk clock.Clock) *MemoryCatalogCache {
	return &MemoryCatalogCache{
		source: source,
		ttl:    ttl,
		clock:  clock.OrSystem(clk),
		cache:  &sync.Map{},
	}
}

// Load returns cached rows for key, loading them from the source on a miss
// or after expiry. Failed loads are not cached.
func (c *MemoryCatalogCache) Load(ctx context.Context, token string, key CatalogKey) (odata.Rows, error) {
	cacheKey, err := serializeCatalogKey(key)
	if err != nil {
		return c.source.Load(ctx, token, key)
	}

	now := c.clock.Now()
	if entry, ok := c.cache.Load(cacheKey); ok {
		cached := entry.(*catalogEntry)
		if cached.expiresAt.IsZero() || now.Before(cached.expiresAt) {
			return cached.rows, nil
		}
		c.cache.Delete(cacheKey)
	}

	rows, err := c.source.Load(ctx, token, key)
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}
	c.cache.Store(cacheKey, &catalogEntry{rows: rows, expiresAt: expiresAt})
	return rows, nil
}

// DistributedCatalogCacheConfig configures a DistributedCatalogCache
type DistributedCatalogCacheConfig struct {
	// GroupName must be unique in the process. Default: "portal-catalog"
	GroupName string

	// CacheSizeBytes is the maximum size of the cache in bytes.
	// Default: 64MB
	CacheSizeBytes int64

	// TTL is the width of the time window baked into every cache key.
	// Entries from a past window are never read again and age out via LRU.
	// Zero means entries never go stale.
	TTL time.Duration

	// Tokens supplies a service token when a peer asks this node to load a
	// key it owns. Requests served locally use the caller's token.
	Tokens servicetoken.Acquirer

	Clock clock.Clock
}

// DistributedCatalogCache shares catalog reads across portal instances with
// groupcache. Each key is loaded once by the peer that owns it.
type DistributedCatalogCache struct {
	group *groupcache.Group
	ttl   time.Duration
	clock clock.Clock
}

type catalogTokenKey struct{}

// distributedCatalogKey is the serialized groupcache key. It must be
// reversible, since the owning peer rebuilds the read from it.
type distributedCatalogKey struct {
	CatalogKey
	Window string `json:"window,omitempty"`
}

// NewDistributedCatalogCache wraps source with groupcache
//
// Note: to share entries between instances, create the peer pool with
// NewCatalogPeers before the first Load
func NewDistributedCatalogCache(source CatalogSource, cfg DistributedCatalogCacheConfig) *DistributedCatalogCache {
	if cfg.GroupName == "" {
		cfg.GroupName = "portal-catalog"
	}
	if cfg.CacheSizeBytes == 0 {
		cfg.CacheSizeBytes = 64 << 20
	}
	tokens := cfg.Tokens

	getter := groupcache.GetterFunc(func(ctx context.Context, key string, dest groupcache.Sink) error {
		var dk distributedCatalogKey
		if err := json.Unmarshal([]byte(key), &dk); err != nil {
			return fmt.Errorf("failed to deserialize cache key: %w", err)
		}

		token, _ := ctx.Value(catalogTokenKey{}).(string)
		if token == "" {
			if tokens == nil {
				return fmt.Errorf("no service token available to load %s", dk.Step)
			}
			var err error
			if token, err = tokens.Token(ctx); err != nil {
				return err
			}
		}

		rows, err := source.Load(ctx, token, dk.CatalogKey)
		if err != nil {
			return err
		}
		data, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		return dest.SetBytes(data)
	})

	return &DistributedCatalogCache{
		group: groupcache.NewGroup(cfg.GroupName, cfg.CacheSizeBytes, getter),
		ttl:   cfg.TTL,
		clock: clock.OrSystem(cfg.Clock),
	}
}

// Load fetches key through groupcache
func (c *DistributedCatalogCache) Load(ctx context.Context, token string, key CatalogKey) (odata.Rows, error) {
	dk := distributedCatalogKey{CatalogKey: key}
	if c.ttl > 0 {
		dk.Window = roundTimeToInterval(c.clock.Now(), c.ttl).Format(time.RFC3339)
	}
	cacheKey, err := json.Marshal(dk)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize cache key: %w", err)
	}

	var data []byte
	ctx = context.WithValue(ctx, catalogTokenKey{}, token)
	if err := c.group.Get(ctx, string(cacheKey), groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, err
	}

	var rows odata.Rows
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached entry: %w", err)
	}
	if rows == nil {
		rows = odata.Rows{}
	}
	return rows, nil
}

// Stats returns the groupcache counters of the underlying group
func (c *DistributedCatalogCache) Stats() groupcache.Stats {
	return c.group.Stats
}

// roundTimeToInterval rounds t down to a multiple of interval since the epoch
func roundTimeToInterval(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return t
	}
	intervalSeconds := int64(interval.Seconds())
	if intervalSeconds <= 0 {
		return t
	}
	rounded := (t.Unix() / intervalSeconds) * intervalSeconds
	return time.Unix(rounded, 0).UTC()
}

func serializeCatalogKey(key CatalogKey) (string, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CatalogPeersConfig lists the portal instances sharing the catalog cache
type CatalogPeersConfig struct {
	// SelfURL is this instance's URL (e.g., "http://10.0.0.4:8080")
	SelfURL string

	// PeerURLs are the URLs of all instances, including self
	PeerURLs []string

	// BasePath is the HTTP path prefix for peer requests
	// (default: "/_groupcache/")
	BasePath string
}

// CatalogPeers is the groupcache peer pool. It must be mounted on the HTTP
// server at BasePath so other instances can reach it.
type CatalogPeers struct {
	pool     *groupcache.HTTPPool
	basePath string
}

// NewCatalogPeers creates the peer pool. groupcache allows one pool per
// process.
func NewCatalogPeers(cfg CatalogPeersConfig) *CatalogPeers {
	if cfg.BasePath == "" {
		cfg.BasePath = "/_groupcache/"
	}
	if !strings.HasSuffix(cfg.BasePath, "/") {
		cfg.BasePath += "/"
	}
	pool := groupcache.NewHTTPPoolOpts(cfg.SelfURL, &groupcache.HTTPPoolOptions{BasePath: cfg.BasePath})
	pool.Set(cfg.PeerURLs...)
	return &CatalogPeers{pool: pool, basePath: cfg.BasePath}
}

// BasePath returns the path prefix peer requests arrive on
func (p *CatalogPeers) BasePath() string {
	return p.basePath
}

// ServeHTTP implements http.Handler for groupcache peer communication
func (p *CatalogPeers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.pool.ServeHTTP(w, r)
}

package servicetoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/prithuhomes/customerportal/internal/clock"
)

// DefaultRefreshMargin is how long before expiry a cached token is replaced
const DefaultRefreshMargin = 2 * time.Minute

// CachingConfig configures a CachingAcquirer
type CachingConfig struct {
	// RefreshMargin defaults to DefaultRefreshMargin
	RefreshMargin time.Duration

	Clock clock.Clock
}

// CachingAcquirer reuses a token from its Source until RefreshMargin before
// the token expires. Concurrent callers that find no usable token share one
// fetch. Tokens without an expiry are never cached.
type CachingAcquirer struct {
	source Source
	margin time.Duration
	clock  clock.Clock

	group singleflight.Group

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewCachingAcquirer wraps source
func NewCachingAcquirer(source Source, cfg CachingConfig) *CachingAcquirer {
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &CachingAcquirer{
		source: source,
		margin: margin,
		clock:  clock.OrSystem(cfg.Clock),
	}
}

// Token implements Acquirer
func (c *CachingAcquirer) Token(ctx context.Context) (string, error) {
	if tok := c.cached(); tok != "" {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (any, error) {
		if tok := c.cached(); tok != "" {
			return tok, nil
		}

		fetched, err := c.source.FetchToken(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		if fetched.Expiry.IsZero() {
			c.token = nil
		} else {
			c.token = fetched
		}
		c.mu.Unlock()
		return fetched.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	tok, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected token type %T", ErrUnavailable, v)
	}
	return tok, nil
}

// Invalidate drops the cached token so the next call fetches a new one
func (c *CachingAcquirer) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
}

func (c *CachingAcquirer) cached() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return ""
	}
	if !c.clock.Now().Add(c.margin).Before(c.token.Expiry) {
		return ""
	}
	return c.token.AccessToken
}

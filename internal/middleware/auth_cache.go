package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/worktrail/worktrail/internal/models"
)

const (
	principalCacheTTL  = 5 * time.Minute
	negativeCacheTTL   = 30 * time.Second
	maxCacheEntries    = 10000
	cacheCleanupPeriod = 60 * time.Second
)

// errCachedNotFound is returned for negative cache hits.
var errCachedNotFound = errors.New("principal not found (cached)")

// cachedPrincipal is one cache entry. A nil principal records a lookup
// that found no such key.
type cachedPrincipal struct {
	principal *models.Principal
	fetchedAt time.Time
}

func (cp cachedPrincipal) ttl() time.Duration {
	if cp.principal == nil {
		return negativeCacheTTL
	}

	return principalCacheTTL
}

// hashKey returns a hex-encoded SHA-256 hash of the API key so raw keys
// are never held in memory.
func hashKey(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// CachedPrincipalLookup wraps a PrincipalLookup with a bounded in-memory
// cache. Concurrent misses for the same key share one database lookup.
type CachedPrincipalLookup struct {
	inner  PrincipalLookup
	mu     sync.RWMutex
	cache  map[string]cachedPrincipal
	flight singleflight.Group
	now    func() time.Time
}

// NewCachedPrincipalLookup creates a caching wrapper around inner. ctx
// bounds the lifetime of the background eviction goroutine.
func NewCachedPrincipalLookup(ctx context.Context, inner PrincipalLookup) *CachedPrincipalLookup {
	c := &CachedPrincipalLookup{
		inner: inner,
		cache: make(map[string]cachedPrincipal),
		now:   time.Now,
	}
	go c.evictLoop(ctx)

	return c
}

func (c *CachedPrincipalLookup) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpired()
			c.mu.Unlock()
		}
	}
}

// evictExpired drops stale entries. Caller must hold c.mu.
func (c *CachedPrincipalLookup) evictExpired() {
	now := c.now()
	for k, v := range c.cache {
		if now.Sub(v.fetchedAt) >= v.ttl() {
			delete(c.cache, k)
		}
	}
}

// LookupPrincipal returns a cached principal or delegates to the inner
// lookup. Unknown keys are cached briefly; transient failures are not.
func (c *CachedPrincipalLookup) LookupPrincipal(ctx context.Context, apiKey string) (*models.Principal, error) {
	hk := hashKey(apiKey)

	c.mu.RLock()
	entry, ok := c.cache[hk]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) < entry.ttl() {
		if entry.principal == nil {
			return nil, errCachedNotFound
		}

		return entry.principal, nil
	}

	v, err, _ := c.flight.Do(hk, func() (any, error) {
		p, err := c.inner.LookupPrincipal(ctx, apiKey)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.store(hk, nil)
			}

			return nil, err
		}

		c.store(hk, p)

		return p, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.Principal), nil //nolint:forcetypeassert // only *models.Principal is stored.
}

func (c *CachedPrincipalLookup) store(hk string, p *models.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= maxCacheEntries {
		c.evictExpired()

		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}

			delete(c.cache, k)
		}
	}

	c.cache[hk] = cachedPrincipal{principal: p, fetchedAt: c.now()}
}

package overpass

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/puzpuzpuz/xsync/v3"
)

// Cache is an LRU in front of a Fetcher keyed by bounding box. Cached data
// is shared between callers and must be treated as read-only.
type Cache struct {
	next  Fetcher
	store gcache.Cache

	hits   *xsync.Counter
	misses *xsync.Counter
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewCache wraps next with an LRU of the given size. A ttl of zero keeps
// entries until evicted.
func NewCache(next Fetcher, size int, ttl time.Duration) *Cache {
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &Cache{
		next:   next,
		store:  b.Build(),
		hits:   xsync.NewCounter(),
		misses: xsync.NewCounter(),
	}
}

// FetchRailNetwork implements Fetcher. Failures are not cached.
func (c *Cache) FetchRailNetwork(ctx context.Context, b orb.Bound) (*osm.OSM, error) {
	key := boundKey(b)
	if v, err := c.store.Get(key); err == nil {
		c.hits.Inc()
		return v.(*osm.OSM), nil
	} else if !errors.Is(err, gcache.KeyNotFoundError) {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	c.misses.Inc()
	data, err := c.next.FetchRailNetwork(ctx, b)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(key, data); err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}
	return data, nil
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Value(), Misses: c.misses.Value()}
}

func boundKey(b orb.Bound) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
}

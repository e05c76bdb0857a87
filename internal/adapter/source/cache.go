package source

import (
	"container/list"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// CachedFetcher wraps a CityFetcher with an in-memory LRU cache whose
// entries expire after a fixed TTL.
type CachedFetcher struct {
	inner   domain.CityFetcher
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner domain.CityFetcher, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchCities(ctx context.Context, countryCode string) ([]domain.CityRecord, error) {
	now := c.clock.Now()
	if cities, fetchedAt, ok := c.cache.get(countryCode); ok && now.Sub(fetchedAt) < c.ttl {
		c.metrics.SourceCache.WithLabelValues("hit").Inc()
		return cloneCities(cities), nil
	}
	c.metrics.SourceCache.WithLabelValues("miss").Inc()

	cities, err := c.inner.FetchCities(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so an empty upstream response is retried.
	if len(cities) > 0 {
		c.cache.put(countryCode, cloneCities(cities), now)
	}
	return cities, nil
}

func cloneCities(in []domain.CityRecord) []domain.CityRecord {
	out := slices.Clone(in)
	for i := range out {
		out[i].Metrics = maps.Clone(out[i].Metrics)
	}
	return out
}

// lruCache is a thread-safe LRU of city lists keyed by country code.
// The front of order is the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	entries    map[string]*list.Element
}

type cacheEntry struct {
	country   string
	cities    []domain.CityRecord
	fetchedAt time.Time
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(country string) ([]domain.CityRecord, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[country]
	if !ok {
		return nil, time.Time{}, false
	}
	c.order.MoveToFront(el)
	e := el.Value.(*cacheEntry)
	return e.cities, e.fetchedAt, true
}

func (c *lruCache) put(country string, cities []domain.CityRecord, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[country]; ok {
		e := el.Value.(*cacheEntry)
		e.cities = cities
		e.fetchedAt = fetchedAt
		c.order.MoveToFront(el)
		return
	}

	c.entries[country] = c.order.PushFront(&cacheEntry{country: country, cities: cities, fetchedAt: fetchedAt})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).country)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

package geo

import (
	"sort"
	"sync"
	"time"

	"sentinel/internal/model"
)

type cacheEntry struct {
	info   model.GeoInfo
	stored time.Time
}

// lookupCache is a TTL map keyed by IP. Expiry is lazy: stale entries are
// treated as absent on read and only physically removed by the batch
// eviction that runs when the map outgrows maxEntries.
type lookupCache struct {
	mu         sync.Mutex
	items      map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	evictBatch int
}

func newLookupCache(ttl time.Duration, maxEntries, evictBatch int) *lookupCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if evictBatch <= 0 {
		evictBatch = 100
	}
	return &lookupCache{
		items:      make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		evictBatch: evictBatch,
	}
}

func (c *lookupCache) get(ip string, now time.Time) (model.GeoInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[ip]
	if !ok || now.Sub(entry.stored) >= c.ttl {
		return model.GeoInfo{}, false
	}
	return entry.info, true
}

func (c *lookupCache) put(ip string, info model.GeoInfo, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[ip] = cacheEntry{info: info, stored: now}
	if len(c.items) <= c.maxEntries {
		return
	}
	type aged struct {
		ip     string
		stored time.Time
	}
	all := make([]aged, 0, len(c.items))
	for k, v := range c.items {
		all = append(all, aged{ip: k, stored: v.stored})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].stored.Before(all[j].stored) })
	n := c.evictBatch
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.items, a.ip)
	}
}

func (c *lookupCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

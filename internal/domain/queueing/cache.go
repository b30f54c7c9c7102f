package queueing

import (
	"math"
)

const defaultCacheSize = 4096

type cacheKey struct {
	load   uint64
	agents int
}

type cacheEntry struct {
	pw float64
	ok bool
}

// Cache memoizes ErlangC results for repeated (load, agents) pairs, which are
// common across scenarios sharing a forecast. A Cache is owned by exactly one
// worker and is not safe for concurrent use. A nil *Cache is valid and
// disables memoization.
type Cache struct {
	entries map[cacheKey]cacheEntry
	order   []cacheKey // ring of insertion order for oldest-first eviction
	next    int
	maxSize int

	hits   uint64
	misses uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMaxEntries bounds the cache. Values <= 0 keep the default.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// NewCache builds an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{maxSize: defaultCacheSize}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[cacheKey]cacheEntry, c.maxSize)
	c.order = make([]cacheKey, 0, c.maxSize)
	return c
}

// ErlangC returns the memoized ErlangC(a, n).
func (c *Cache) ErlangC(a float64, n int) (float64, bool) {
	if c == nil {
		return ErlangC(a, n)
	}
	k := cacheKey{load: math.Float64bits(a), agents: n}
	if e, ok := c.entries[k]; ok {
		c.hits++
		return e.pw, e.ok
	}
	c.misses++
	pw, ok := ErlangC(a, n)
	c.put(k, cacheEntry{pw: pw, ok: ok})
	return pw, ok
}

func (c *Cache) put(k cacheKey, e cacheEntry) {
	if len(c.order) < c.maxSize {
		c.order = append(c.order, k)
	} else {
		delete(c.entries, c.order[c.next])
		c.order[c.next] = k
		c.next = (c.next + 1) % c.maxSize
	}
	c.entries[k] = e
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Stats returns hit and miss counts since the last Reset.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits, c.misses
}

// ResetStats zeroes the hit and miss counters, keeping entries.
func (c *Cache) ResetStats() {
	if c != nil {
		c.hits, c.misses = 0, 0
	}
}

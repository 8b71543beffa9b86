package cache

import (
	"sync"
	"time"
)

// Entry is one cached value with its bookkeeping.
type Entry struct {
	Key          string
	Value        any
	CreatedAt    time.Time
	SizeEstimate int64
	TTL          time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) >= e.TTL
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Entries      int   `json:"entries"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Evictions    int64 `json:"evictions"`
	SizeEstimate int64 `json:"size_estimate"`
}

// Cache is a TTL map with lazy expiry. Expired entries are dropped the
// next time they are looked up, there is no background sweeper and no
// LRU pressure eviction.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	defaultTTL time.Duration
	hits       int64
	misses     int64
	evictions  int64
	now        func() time.Time
}

// New returns a cache whose entries default to the given TTL. A zero
// defaultTTL means entries never expire unless Set overrides it.
func New(defaultTTL time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]*Entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set stores a value under key with the default TTL.
func (c *Cache) Set(key string, value any, sizeEstimate int64) {
	c.SetWithTTL(key, value, sizeEstimate, c.defaultTTL)
}

// SetWithTTL stores a value with an explicit TTL. A non-positive TTL
// means the entry never expires.
func (c *Cache) SetWithTTL(key string, value any, sizeEstimate int64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry{
		Key:          key,
		Value:        value,
		CreatedAt:    c.now(),
		SizeEstimate: sizeEstimate,
		TTL:          ttl,
	}
}

// Get returns the cached value for key. An entry past its TTL is
// removed and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}
	c.hits++
	return e.Value, true
}

// Delete removes an entry if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry without touching the hit and miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// Stats returns current counters. The entry count includes entries that
// are expired but not yet looked up.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	var size int64
	for _, e := range c.entries {
		size += e.SizeEstimate
	}
	return Stats{
		Entries:      len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
		SizeEstimate: size,
	}
}

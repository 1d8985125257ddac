// Package cache holds rendered tiles behind an LRU with optional TTL expiry.
//
// Keys carry a quantized water level: requests are bucketed to the nearest
// multiple of the configured quantum (0.1 m by default), so a continuum of
// scenario levels collapses onto a small set of rendered tiles. The trade is
// deliberate and bounded: a cached tile can differ from an exact render by at
// most half a quantum of water level. The quantum is configuration, never
// silently changed.
//
// The cache is the only shared mutable state in the render path. A single
// mutex per instance guards every whole lookup-and-mutate sequence, which is
// what keeps the recency list, the entry map, and the hit/miss counters
// consistent with each other under concurrent requests.
package cache

import (
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/flood-tile-service/internal/observability"
)

// TileKey identifies one cached render. Cluster is the quantized water level
// bucket; Format names the output encoding so a future second encoder can
// never collide with PNG entries.
type TileKey struct {
	Cluster int64
	Z       int
	X       int
	Y       int
	Format  string
}

// KeyFor buckets waterLevel to the nearest multiple of quantum and builds the
// cache key. The returned level is the bucket's canonical water level, the
// one actually rendered on behalf of every request in the bucket.
func KeyFor(waterLevel, quantum float64, z, x, y int, format string) (TileKey, float64) {
	cluster := int64(math.Round(waterLevel / quantum))
	key := TileKey{Cluster: cluster, Z: z, X: x, Y: y, Format: format}
	return key, float64(cluster) * quantum
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is a thread-safe LRU for rendered tiles. A ttl of zero means entries
// never expire; otherwise expiry is evaluated lazily on access and an expired
// entry counts as a miss.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	metrics    *observability.Metrics

	mu      sync.Mutex
	entries map[TileKey]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
	hits    uint64
	misses  uint64
}

type entry struct {
	key        TileKey
	data       []byte
	waterLevel float64 // canonical bucket level the tile was rendered at
	createdAt  time.Time
	prev       *entry
	next       *entry
}

// New creates a cache bounded to maxEntries tiles.
func New(maxEntries int, ttl time.Duration, metrics *observability.Metrics) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		metrics:    metrics,
		entries:    make(map[TileKey]*entry),
	}
}

// Get returns the cached render for key. A hit promotes the entry to most
// recently used; an expired entry is dropped and counted as a miss.
func (c *Cache) Get(key TileKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, c.miss()
	}
	if c.expired(e) {
		c.removeEntry(e)
		return nil, c.miss()
	}

	c.hits++
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	c.moveToFront(e)
	return e.data, true
}

// Exists reports whether key holds a live entry, without copying bytes out.
// It counts into the hit/miss stats and promotes like Get: a key just
// confirmed hot should not be the next eviction candidate.
func (c *Cache) Exists(key TileKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return c.miss()
	}
	if c.expired(e) {
		c.removeEntry(e)
		return c.miss()
	}

	c.hits++
	c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	c.moveToFront(e)
	return true
}

// Put stores a rendered tile, evicting from the least recently used end
// until the entry fits. waterLevel is the canonical bucket level recorded
// with the entry.
func (c *Cache) Put(key TileKey, data []byte, waterLevel float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.data = data
		e.waterLevel = waterLevel
		e.createdAt = clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, data: data, waterLevel: waterLevel, createdAt: clock.Now()}
	c.entries[key] = e
	c.addToFront(e)
	for len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Clear drops every entry. Hit and miss counters survive; they describe the
// instance's lifetime, not its current contents.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[TileKey]*entry)
	c.head = nil
	c.tail = nil
	c.metrics.CacheEntries.Set(0)
}

// Stats returns a consistent snapshot of size and effectiveness.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// miss records a miss and returns false so lookups can return in one line.
// Callers hold the mutex.
func (c *Cache) miss() bool {
	c.misses++
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()
	return false
}

func (c *Cache) expired(e *entry) bool {
	return c.ttl > 0 && clock.Since(e.createdAt) >= c.ttl
}

func (c *Cache) removeEntry(e *entry) {
	delete(c.entries, e.key)
	c.remove(e)
	c.metrics.CacheEntries.Set(float64(len(c.entries)))
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
	c.metrics.CacheEvictions.Inc()
}

// Package gridcache keeps recently decoded daily grids in memory.
package gridcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	"golang.org/x/sync/singleflight"
)

// CachedSource wraps a GridSource with an in-memory LRU cache. Concurrent
// misses for the same day and variable share one inner load.
type CachedSource struct {
	inner   domain.GridSource
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics
}

// New creates a cache decorator holding at most maxEntries grids.
func New(inner domain.GridSource, maxEntries int, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// LoadGrid implements domain.GridSource. Failed loads are not cached.
func (c *CachedSource) LoadGrid(ctx context.Context, day time.Time, variable string) (grid.Grid, error) {
	key := day.UTC().Format(domain.DayLayout) + "|" + strings.ToUpper(variable)
	if g, ok := c.cache.get(key); ok {
		c.metrics.GridCache.WithLabelValues("hit").Inc()
		return g, nil
	}
	c.metrics.GridCache.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A load for key may have finished between the miss and Do.
		if g, ok := c.cache.get(key); ok {
			return g, nil
		}
		g, err := c.inner.LoadGrid(ctx, day, variable)
		if err != nil {
			return nil, err
		}
		c.cache.put(key, g)
		return g, nil
	})
	if err != nil {
		return grid.Grid{}, err
	}
	return v.(grid.Grid), nil
}

// Len returns the number of cached grids.
func (c *CachedSource) Len() int {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	return len(c.cache.entries)
}

// lruCache is a thread-safe LRU cache of decoded grids.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value grid.Grid
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (grid.Grid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return grid.Grid{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value grid.Grid) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
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

func (c *lruCache) remove(e *entry) {
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

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

package nws

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// CachedResolver wraps a PointResolver with an in-memory LRU cache.
// Gridpoint assignments rarely change, so only the points step is cached;
// forecast bodies are always fetched fresh.
type CachedResolver struct {
	inner   PointResolver
	cache   *lruCache[Point]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner PointResolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache[Point](maxEntries),
		metrics: metrics,
	}
}

// ResolvePoint returns a cached resolution or delegates to the inner resolver.
func (c *CachedResolver) ResolvePoint(ctx context.Context, lat, lng float64) (Point, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if p, ok := c.cache.get(key); ok {
		c.metrics.PointCache.WithLabelValues("hit").Inc()
		return p, nil
	}
	c.metrics.PointCache.WithLabelValues("miss").Inc()

	p, err := c.inner.ResolvePoint(ctx, lat, lng)
	if err != nil {
		return p, err
	}
	if p.ForecastURL != "" {
		c.cache.put(key, p)
	}
	return p, nil
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

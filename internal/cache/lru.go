package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// lru is a fixed-capacity map that evicts the least recently used key.
// onEvict runs with the lock held for every entry removed by eviction,
// replacement or purge.
type lru[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
	onEvict  func(key string, value V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type lruEntry[V any] struct {
	key   string
	value V
}

func newLRU[V any](capacity int, onEvict func(string, V)) *lru[V] {
	return &lru[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		onEvict:  onEvict,
	}
}

func (c *lru[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*lruEntry[V]).value, true
}

func (c *lru[V]) set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[V])
		if c.onEvict != nil {
			c.onEvict(entry.key, entry.value)
		}
		entry.value = value
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})
}

// remove drops key without counting an eviction.
func (c *lru[V]) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return
	}
	c.order.Remove(elem)
	delete(c.items, key)
	if c.onEvict != nil {
		entry := elem.Value.(*lruEntry[V])
		c.onEvict(entry.key, entry.value)
	}
}

// Must be called with lock held.
func (c *lru[V]) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	entry := elem.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
	c.evictions.Add(1)
}

func (c *lru[V]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for elem := c.order.Front(); elem != nil; elem = elem.Next() {
			entry := elem.Value.(*lruEntry[V])
			c.onEvict(entry.key, entry.value)
		}
	}
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

func (c *lru[V]) stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int     // Current number of entries.
	Capacity  int     // Maximum capacity.
	Hits      uint64  // Number of successful lookups.
	Misses    uint64  // Number of failed lookups.
	Evictions uint64  // Number of entries dropped for capacity.
	HitRate   float64 // hits / (hits + misses).
}

package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidCapacity is returned when a cache is constructed with a non-positive capacity.
var ErrInvalidCapacity = errors.New("cache capacity must be positive")

// BoundedCache is a fixed-capacity map with least-recently-used eviction.
// It is safe for concurrent use. Eviction is a pure in-memory event: callers
// that need the evicted payload to survive must handle it themselves.
type BoundedCache[K comparable, V any] struct {
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	capacity int
	mu       sync.Mutex
}

type item[K comparable, V any] struct {
	key   K
	value V
}

// Evicted describes an entry dropped by Put to make room for a new key.
type Evicted[K comparable, V any] struct {
	Key   K
	Value V
}

// NewBoundedCache creates a cache holding at most capacity entries.
func NewBoundedCache[K comparable, V any](capacity int) (*BoundedCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return &BoundedCache[K, V]{
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}, nil
}

// Get returns the value for key and marks it most recently used.
func (c *BoundedCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*item[K, V]).value, true
}

// Peek returns the value for key without touching recency.
func (c *BoundedCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*item[K, V]).value, true
}

// Put stores value under key. If key is new and the cache is full, the least
// recently used entry is evicted and returned.
func (c *BoundedCache[K, V]) Put(key K, value V) *Evicted[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*item[K, V]).value = value
		c.order.MoveToFront(el)
		return nil
	}

	var evicted *Evicted[K, V]
	if len(c.items) >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			it := oldest.Value.(*item[K, V])
			c.order.Remove(oldest)
			delete(c.items, it.key)
			evicted = &Evicted[K, V]{Key: it.key, Value: it.value}
		}
	}

	c.items[key] = c.order.PushFront(&item[K, V]{key: key, value: value})
	return evicted
}

// Remove deletes key and reports whether it was present.
func (c *BoundedCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Size returns the number of entries.
func (c *BoundedCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *BoundedCache[K, V]) Capacity() int {
	return c.capacity
}

// Keys returns all keys ordered from least to most recently used.
func (c *BoundedCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for el := c.order.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*item[K, V]).key)
	}
	return keys
}

// Values returns all values ordered from least to most recently used.
func (c *BoundedCache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]V, 0, len(c.items))
	for el := c.order.Back(); el != nil; el = el.Prev() {
		values = append(values, el.Value.(*item[K, V]).value)
	}
	return values
}

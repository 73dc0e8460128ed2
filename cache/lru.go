package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a size-bounded cache with time-based expiry.
//
// Recency is tracked with a doubly-linked list (front = most recently used)
// indexed by key. Only Get and Set move an entry to the front.
type LRU[V any] struct {
	mu      sync.Mutex
	policy  Policy
	items   map[string]*list.Element
	order   *list.List
	now     func() time.Time
	onEvict func(key string, reason EvictReason)

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

type entry[V any] struct {
	key         string
	value       V
	createdAt   time.Time
	accessCount uint64
}

// Option configures an LRU.
type Option func(*lruOptions)

type lruOptions struct {
	now     func() time.Time
	onEvict func(key string, reason EvictReason)
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *lruOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithEvictHook registers a callback invoked, outside the cache lock, for
// every entry removed by capacity eviction or expiry.
func WithEvictHook(fn func(key string, reason EvictReason)) Option {
	return func(o *lruOptions) {
		o.onEvict = fn
	}
}

// NewLRU creates a cache with the given policy.
// It returns ErrInvalidConfig if the policy is misconfigured.
func NewLRU[V any](policy Policy, opts ...Option) (*LRU[V], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &LRU[V]{
		policy:  policy,
		items:   make(map[string]*list.Element, policy.MaxSize),
		order:   list.New(),
		now:     o.now,
		onEvict: o.onEvict,
	}, nil
}

// MustNewLRU is like NewLRU but panics on an invalid policy.
func MustNewLRU[V any](policy Policy, opts ...Option) *LRU[V] {
	c, err := NewLRU[V](policy, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the value for key and marks it most recently used.
// An expired entry is treated as missing and removed.
func (c *LRU[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return zero, false
	}

	e := el.Value.(*entry[V])
	if c.isExpired(e, c.now()) {
		c.removeElement(el)
		c.expired++
		c.misses++
		c.mu.Unlock()
		c.notify(key, EvictExpired)
		return zero, false
	}

	e.accessCount++
	c.order.MoveToFront(el)
	c.hits++
	value := e.value
	c.mu.Unlock()

	return value, true
}

// Set stores value under key. Overwriting keeps the size unchanged and resets
// the entry's age; inserting into a full cache evicts the least recently used
// entry first.
func (c *LRU[V]) Set(key string, value V) {
	now := c.now()

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.createdAt = now
		e.accessCount = 1
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	var evicted string
	if c.order.Len() >= c.policy.MaxSize {
		if back := c.order.Back(); back != nil {
			evicted = back.Value.(*entry[V]).key
			c.removeElement(back)
			c.evictions++
		}
	}

	c.items[key] = c.order.PushFront(&entry[V]{
		key:         key,
		value:       value,
		createdAt:   now,
		accessCount: 1,
	})
	c.mu.Unlock()

	if evicted != "" {
		c.notify(evicted, EvictCapacity)
	}
}

// Has reports whether key holds a live entry. It never changes recency.
func (c *LRU[V]) Has(key string) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if c.isExpired(el.Value.(*entry[V]), c.now()) {
		c.removeElement(el)
		c.expired++
		c.mu.Unlock()
		c.notify(key, EvictExpired)
		return false
	}
	c.mu.Unlock()
	return true
}

// Delete removes key and reports whether it was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear removes every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.policy.MaxSize)
	c.order.Init()
}

// Prune removes every expired entry and returns how many were removed.
func (c *LRU[V]) Prune() int {
	now := c.now()

	c.mu.Lock()
	var removed []string
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry[V])
		if c.isExpired(e, now) {
			c.removeElement(el)
			removed = append(removed, e.key)
		}
		el = prev
	}
	c.expired += uint64(len(removed))
	c.mu.Unlock()

	for _, key := range removed {
		c.notify(key, EvictExpired)
	}
	return len(removed)
}

// Len returns the number of stored entries, including expired ones not yet
// purged.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      c.order.Len(),
		MaxSize:   c.policy.MaxSize,
		TTL:       c.policy.TTL,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}

// Policy returns the policy the cache was built with.
func (c *LRU[V]) Policy() Policy {
	return c.policy
}

func (c *LRU[V]) isExpired(e *entry[V], now time.Time) bool {
	return now.Sub(e.createdAt) > c.policy.TTL
}

// removeElement must be called with c.mu held.
func (c *LRU[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}

func (c *LRU[V]) notify(key string, reason EvictReason) {
	if c.onEvict != nil {
		c.onEvict(key, reason)
	}
}

// Ensure LRU implements Cache
var _ Cache[[]byte] = (*LRU[[]byte])(nil)

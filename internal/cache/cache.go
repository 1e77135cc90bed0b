package cache

import "sync"

// Cache is a generic LRU cache with a soft limit.
// When the cache grows past softLimit, least recently used entries are
// removed until a quarter of the limit is free again.
//
// Every entry that leaves the cache, for whatever reason, is passed to the
// release callback after the internal lock has been dropped, so the callback
// may call back into the cache.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*entry[K, V]
	head      *entry[K, V] // most recently used
	tail      *entry[K, V] // least recently used
	softLimit int
	release   func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

type removed[K comparable, V any] struct {
	key   K
	value V
}

// New creates a cache with the given soft limit and release callback.
// A softLimit of 0 means unlimited. release may be nil.
func New[K comparable, V any](softLimit int, release func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*entry[K, V]),
		softLimit: softLimit,
		release:   release,
	}
}

// Get retrieves a value and marks it most recently used.
// Hits and misses are counted.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.moveToFront(e)
	return e.value, true
}

// Peek retrieves a value without touching recency or statistics.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set stores a value as most recently used.
// A replaced value is released. If the cache exceeds softLimit after
// insertion, least recently used entries are evicted.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	var out []removed[K, V]
	if e, ok := c.entries[key]; ok {
		out = append(out, removed[K, V]{key, e.value})
		e.value = value
		c.moveToFront(e)
	} else {
		e := &entry[K, V]{key: key, value: value}
		c.entries[key] = e
		c.pushFront(e)
		if c.softLimit > 0 && len(c.entries) > c.softLimit {
			out = c.evictOldest(out)
		}
	}
	c.mu.Unlock()

	c.releaseAll(out)
}

// Delete removes an entry and releases it.
// Returns true if the entry was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.remove(e)
	}
	c.mu.Unlock()

	if ok && c.release != nil {
		c.release(e.key, e.value)
	}
	return ok
}

// DeleteFunc removes and releases every entry for which match returns true.
// Returns the number of entries removed.
func (c *Cache[K, V]) DeleteFunc(match func(K, V) bool) int {
	c.mu.Lock()
	var out []removed[K, V]
	for e := c.head; e != nil; {
		next := e.next
		if match(e.key, e.value) {
			c.remove(e)
			out = append(out, removed[K, V]{e.key, e.value})
		}
		e = next
	}
	c.mu.Unlock()

	c.releaseAll(out)
	return len(out)
}

// Clear removes and releases all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	out := make([]removed[K, V], 0, len(c.entries))
	for e := c.head; e != nil; e = e.next {
		out = append(out, removed[K, V]{e.key, e.value})
	}
	c.entries = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
	c.mu.Unlock()

	c.releaseAll(out)
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the soft limit of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.softLimit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// evictOldest unlinks least recently used entries until the cache holds
// three quarters of softLimit. Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest(out []removed[K, V]) []removed[K, V] {
	target := c.softLimit * 3 / 4
	if target < 1 {
		target = 1
	}
	for len(c.entries) > target && c.tail != nil {
		e := c.tail
		c.remove(e)
		c.evictions++
		out = append(out, removed[K, V]{e.key, e.value})
	}
	return out
}

func (c *Cache[K, V]) releaseAll(out []removed[K, V]) {
	if c.release == nil {
		return
	}
	for _, r := range out {
		c.release(r.key, r.value)
	}
}

// Caller must hold c.mu.
func (c *Cache[K, V]) remove(e *entry[K, V]) {
	c.unlink(e)
	delete(c.entries, e.key)
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[K, V]) moveToFront(e *entry[K, V]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
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
	e.prev, e.next = nil, nil
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit (0 means unlimited).
	Capacity int
	// Hits is the number of Get calls that found an entry.
	Hits uint64
	// Misses is the number of Get calls that did not.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 when nothing was looked up.
	HitRate float64
	// Evictions counts entries removed because the soft limit was exceeded.
	Evictions uint64
}

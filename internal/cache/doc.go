// Package cache provides the generic LRU cache used for vertex layout objects.
//
//	c := cache.New[string, int](64, func(key string, v int) {
//		// release v
//	})
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// The cache keeps a soft limit: once exceeded, the least recently used
// quarter is evicted. Entries that leave the cache are handed to the release
// callback so device objects behind them can be freed.
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache

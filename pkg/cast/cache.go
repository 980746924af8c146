package cast

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Cache memoizes cast results for one render. The key covers the cast type,
// its serialized config, the locale fields of the context, and the value, so
// a config change can never serve a stale entry. Never share a Cache across
// requests.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]any{}}
}

// Get returns a memoized result.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores a result.
func (c *Cache) Put(key string, v any) {
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// cacheKey only handles scalar values; composite values are not memoized.
func cacheKey(c Cast, v any, ctx Context) (string, bool) {
	var scalar string
	switch t := v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		scalar = fmt.Sprintf("%T:%v", t, t)
	case time.Time:
		scalar = "time:" + t.UTC().Format(time.RFC3339Nano)
	case nil:
		scalar = "nil"
	default:
		return "", false
	}
	cfg, err := json.Marshal(c.Config())
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s", c.Type(), cfg, ctx.Locale, ctx.Currency, ctx.location().String(), scalar), true
}

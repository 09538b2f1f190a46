package linkgraph

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes views by snapshot content hash and request. Concurrent
// requests for the same key share one computation. Returned views are shared
// and must not be modified.
type Cache struct {
	builder *Builder
	size    int

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*View
	order   []string
}

// NewCache wraps b with a cache holding at most size views. size <= 0
// disables memoization.
func NewCache(b *Builder, size int) *Cache {
	return &Cache{
		builder: b,
		size:    size,
		entries: make(map[string]*View),
	}
}

// Builder returns the wrapped builder.
func (c *Cache) Builder() *Builder {
	return c.builder
}

// View returns the view of req over snap, computing it at most once per
// distinct snapshot content.
func (c *Cache) View(snap Snapshot, req Request) (*View, error) {
	if c.size <= 0 {
		return c.builder.View(snap, req)
	}
	if req.Scope == "" {
		req.Scope = ScopeLocal
	}
	key := snap.Hash() + "|" + req.CollectionID + "|" + string(req.Scope)

	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := c.builder.View(snap, req)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*View), nil
}

// Len returns the number of cached views.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) store(key string, v *View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) >= c.size {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = v
	c.order = append(c.order, key)
}

package dataset

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds the process-wide loaded Dataset. Load runs once; concurrent
// first calls are collapsed and later calls return the in-memory result
// without touching disk. There is no invalidation beyond Invalidate.
type Cache struct {
	loader *Loader

	group singleflight.Group
	mu    sync.RWMutex
	ds    *Dataset
}

// NewCache wraps a Loader with initialize-once semantics.
func NewCache(loader *Loader) *Cache {
	return &Cache{loader: loader}
}

// Dataset returns the cached Dataset, loading it on first use.
func (c *Cache) Dataset(ctx context.Context) (*Dataset, error) {
	c.mu.RLock()
	ds := c.ds
	c.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}

	v, err, _ := c.group.Do("load", func() (any, error) {
		loaded, err := c.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.ds = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

// Invalidate drops the cached Dataset so the next call reloads from disk.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.ds = nil
	c.mu.Unlock()
}

package dataset

import (
	"context"
	"sync"
)

// LoadFunc produces a dataset.
type LoadFunc func(ctx context.Context) (*Dataset, error)

// Cache memoizes the first successful load for the life of the process.
// Failed loads are not cached, so a later Get retries.
type Cache struct {
	mu   sync.Mutex
	load LoadFunc
	ds   *Dataset
}

// NewCache wraps a load function.
func NewCache(load LoadFunc) *Cache {
	return &Cache{load: load}
}

// NewFileCache caches Load(path, opts).
func NewFileCache(path string, opts Options) *Cache {
	return NewCache(func(ctx context.Context) (*Dataset, error) {
		return Load(ctx, path, opts)
	})
}

// Get returns the cached dataset, loading it on first use.
func (c *Cache) Get(ctx context.Context) (*Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ds != nil {
		return c.ds, nil
	}
	ds, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.ds = ds
	return ds, nil
}

package rpmdb

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"github.com/ralt/provenance/internal/metrics"
	"github.com/ralt/provenance/internal/models"
)

const (
	nameKeyPrefix = "name\x00"
	fileKeyPrefix = "file\x00"
)

// Cached wraps a Database and memoizes successful lookups. Errors are not
// cached.
type Cached struct {
	db    Database
	cache *ristretto.Cache
}

// NewCached creates a cache holding at most maxItems lookup results
func NewCached(db Database, maxItems int64) (*Cached, error) {
	if maxItems <= 0 {
		maxItems = 1
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Cached{
		db:    db,
		cache: cache,
	}, nil
}

// LookupName implements Database
func (c *Cached) LookupName(ctx context.Context, name string) ([]models.PackageRecord, error) {
	return c.lookup(nameKeyPrefix+name, func() ([]models.PackageRecord, error) {
		return c.db.LookupName(ctx, name)
	})
}

// LookupFile implements Database
func (c *Cached) LookupFile(ctx context.Context, path string) ([]models.PackageRecord, error) {
	return c.lookup(fileKeyPrefix+path, func() ([]models.PackageRecord, error) {
		return c.db.LookupFile(ctx, path)
	})
}

// Architecture implements Database
func (c *Cached) Architecture(ctx context.Context) (string, error) {
	return c.db.Architecture(ctx)
}

// Close releases the cache
func (c *Cached) Close() {
	c.cache.Close()
}

func (c *Cached) lookup(key string, fetch func() ([]models.PackageRecord, error)) ([]models.PackageRecord, error) {
	if v, ok := c.cache.Get(key); ok {
		metrics.CacheRequestsTotal.WithLabelValues(metrics.ResultHit).Inc()
		return v.([]models.PackageRecord), nil
	}
	metrics.CacheRequestsTotal.WithLabelValues(metrics.ResultMiss).Inc()

	recs, err := fetch()
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, recs, 1)
	c.cache.Wait()
	return recs, nil
}

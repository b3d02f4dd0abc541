// Package cache provides the TTL memoization used for read-only listings and mappings.
//
// Expiry is decided against an injected clock instead of wall time so callers
// can test eviction deterministically. Storage is an instance-owned go-cache
// map whose janitor also drops entries on wall time, so keys that are never
// read again do not accumulate. Nothing here is process-global.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Clock returns the current time.
type Clock func() time.Time

// Cache is a keyed store whose entries expire after a fixed TTL.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a Cache with a single TTL for every entry. A zero TTL disables caching.
type TTL[V any] struct {
	store *gocache.Cache
	ttl   time.Duration
	now   Clock
}

// New creates a TTL cache. A nil clock uses time.Now.
func New[V any](ttl time.Duration, now Clock) *TTL[V] {
	if now == nil {
		now = time.Now
	}
	expiry, cleanup := gocache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiry, cleanup = ttl, ttl
	}
	return &TTL[V]{
		store: gocache.New(expiry, cleanup),
		ttl:   ttl,
		now:   now,
	}
}

// Get returns the cached value for key when present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false
	}
	e := raw.(entry[V])
	if !c.now().Before(e.expiresAt) {
		c.store.Delete(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key until now()+TTL.
func (c *TTL[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.store.Set(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}, gocache.DefaultExpiration)
}

// Delete removes key.
func (c *TTL[V]) Delete(key string) {
	c.store.Delete(key)
}

// DeleteExpired drops every entry that has expired against the clock.
func (c *TTL[V]) DeleteExpired() {
	now := c.now()
	for key, item := range c.store.Items() {
		if e, ok := item.Object.(entry[V]); ok && !now.Before(e.expiresAt) {
			c.store.Delete(key)
		}
	}
	c.store.DeleteExpired()
}

// Len reports the number of stored entries, expired ones included until swept.
func (c *TTL[V]) Len() int {
	return c.store.ItemCount()
}

// GetOrLoad returns the cached value for key or calls load and caches its result.
// Errors from load are returned as-is and never cached.
func GetOrLoad[V any](ctx context.Context, c Cache[V], key string, load func(context.Context) (V, error)) (V, error) {
	if c != nil {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		c.Set(key, v)
	}
	return v, nil
}

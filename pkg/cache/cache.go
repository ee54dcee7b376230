// Package cache provides a generic TTL key-value cache over a pluggable
// backing store (Redis or SQLite). The cache owns JSON (de)serialization and
// degrades on store failures: a broken store looks like a cold cache, never
// an error surfaced to callers.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-pkgz/lgr"
)

// Cache wraps a Store with typed JSON serialization and best-effort error
// handling. Safe for concurrent use as long as the store is.
type Cache struct {
	store Store
}

// New creates a cache over the given store
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Get loads the value under key into out and reports whether it was found.
// Misses, expired entries, store failures and decode failures all report
// false; callers treat false as "not cached".
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		lgr.Printf("[WARN] cache get %s failed: %v", key, err)
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		lgr.Printf("[WARN] cache entry %s is corrupted, dropping: %v", key, err)
		_ = c.store.Delete(ctx, key)
		return false
	}
	return true
}

// Set stores the value under key with the given TTL, best effort
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		lgr.Printf("[WARN] cache marshal %s failed: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key, string(data), ttl); err != nil {
		lgr.Printf("[WARN] cache set %s failed: %v", key, err)
	}
}

// Delete removes the key, best effort
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		lgr.Printf("[WARN] cache delete %s failed: %v", key, err)
	}
}

// Clear removes all entries matching pattern ("*" for everything)
func (c *Cache) Clear(ctx context.Context, pattern string) {
	keys, err := c.store.Keys(ctx, pattern)
	if err != nil {
		lgr.Printf("[WARN] cache clear %s failed: %v", pattern, err)
		return
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			lgr.Printf("[WARN] cache clear: delete %s failed: %v", key, err)
		}
	}
}

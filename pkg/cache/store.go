package cache

import (
	"context"
	"fmt"
	"time"
)

// Store is the backing key-value collaborator for the TTL cache. Values are
// opaque strings; (de)serialization belongs to the Cache wrapper. A backend
// may expire entries natively or rely on the wrapper-visible contract that
// expired keys are never returned.
type Store interface {
	// Get returns the value and whether the key exists and is not expired
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores the value; the entry must be gone no later than ttl after write
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes the key, no error when absent
	Delete(ctx context.Context, key string) error
	// Keys returns keys matching a glob pattern, e.g. "analysis:*"
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close releases backend resources
	Close() error
}

// NewStore creates a store for the configured backend
func NewStore(backend, redisAddr, sqlitePath string) (Store, error) {
	switch backend {
	case "redis":
		return NewRedisStore(redisAddr)
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

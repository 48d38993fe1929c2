package cache

import (
	"context"
	"time"
)

// Cache defines the contract for the shared key-value cache.
// This abstraction allows swapping between memory cache (development/tests)
// and Redis cache (production) without changing business logic.
//
// A failed operation is always distinguishable from a plain miss: Get reports
// presence through its bool result and reserves the error for transport or
// server failures. Callers decide what to do with a failure; implementations
// never mask one as "not found".
type Cache interface {
	// Get retrieves a value by key. The bool reports whether the key was
	// present; it is false on error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob pattern
	// (e.g. "items:list:*").
	DeletePattern(ctx context.Context, pattern string) error

	// Close releases the underlying resources.
	Close() error
}

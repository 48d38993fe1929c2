package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"catalog-rest-api/internal/cache"
)

// DefaultTTL bounds the staleness of any cache entry when no TTL is
// configured.
const DefaultTTL = 60 * time.Second

// Cache key derivation. A single entity lives under "{kind}:{id}"; each
// pagination window has its own "{kind}:list:{skip}:{limit}" entry so
// windows never alias each other.
func entityKey(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func listKey(kind string, skip, limit int) string {
	return fmt.Sprintf("%s:list:%d:%d", kind, skip, limit)
}

func listPattern(kind string) string {
	return kind + ":list:*"
}

// The helpers below are the only places cache failures are handled. Every
// failure is logged and degraded - a failed get is a miss, a failed set or
// invalidation is dropped - so callers above never see a cache error and the
// store remains the sole authority. A nil cache disables caching entirely,
// which is the degraded store-only mode.

// fromCache returns the decoded entry and whether it can be used as a hit.
func fromCache[T any](ctx context.Context, c cache.Cache, key string) (*T, bool) {
	if c == nil {
		return nil, false
	}

	raw, found, err := c.Get(ctx, key)
	if err != nil {
		log.Printf("[CacheAside] get %s failed, treating as miss: %v", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Printf("[CacheAside] undecodable entry at %s, treating as miss: %v", key, err)
		return nil, false
	}
	return &v, true
}

// toCache stores a value best-effort after a successful store read.
func toCache[T any](ctx context.Context, c cache.Cache, key string, v *T, ttl time.Duration) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[CacheAside] failed to encode entry for %s: %v", key, err)
		return
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		log.Printf("[CacheAside] set %s failed: %v", key, err)
	}
}

// invalidate drops single-entity keys after a successful mutation.
func invalidate(ctx context.Context, c cache.Cache, keys ...string) {
	if c == nil {
		return
	}

	for _, key := range keys {
		if err := c.Delete(ctx, key); err != nil {
			log.Printf("[CacheAside] delete %s failed: %v", key, err)
		}
	}
}

// invalidatePattern drops every cached list window of a kind. Any mutation
// can shift any window, so all of them go; a missed deletion is still
// bounded in lifetime by the TTL.
func invalidatePattern(ctx context.Context, c cache.Cache, pattern string) {
	if c == nil {
		return
	}

	if err := c.DeletePattern(ctx, pattern); err != nil {
		log.Printf("[CacheAside] pattern delete %s failed: %v", pattern, err)
	}
}

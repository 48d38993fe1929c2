package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Operation timeouts. The request path must fail fast into store-only mode
// rather than stall behind an unreachable cache.
const (
	dialTimeout    = 5 * time.Second
	opTimeout      = 3 * time.Second
	scanBatch      = 100
	minPoolSize    = 10
	connsPerWorker = 5
)

// RedisCache implements Cache on top of a shared Redis/Valkey instance.
// The client owns a process-local connection pool reused across all
// concurrently handled requests.
type RedisCache struct {
	client *redis.Client
}

// RedisConfig holds connection settings for the cache endpoint.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Workers sizes the connection pool; it has no other effect.
	Workers int
}

// NewRedisCache connects to Redis and verifies connectivity with a ping.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	poolSize := cfg.Workers * connsPerWorker
	if poolSize < minPoolSize {
		poolSize = minPoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		DialTimeout:  dialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	log.Printf("[RedisCache] Connected - db:%d, pool:%d", cfg.DB, poolSize)
	return &RedisCache{client: client}, nil
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value by key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeletePattern removes every key matching a glob pattern using SCAN,
// batching deletions to keep each round trip bounded.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close closes the underlying client and its pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

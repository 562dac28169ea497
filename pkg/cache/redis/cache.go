package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a type-safe, prefix-isolated view over one Client:
// NewCache[T](client, prefix, ttl) gives every prefix its own key space
// even when two caches share the same logical key.
type Cache[T any] struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewCache constructs a Cache[T] bound to client, namespaced by prefix, with
// every entry written at ttl.
func NewCache[T any](client *Client, prefix string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{client: client, prefix: prefix, ttl: ttl}
}

// hashedKey derives a deterministic, prefix-isolated Redis key for a
// logical cache key (§4.4's "Key Hashing" behavior: same input always maps
// to the same key, and different prefixes never collide).
func (c *Cache[T]) hashedKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

// Get retrieves and JSON-decodes the value stored under key, or
// ErrCacheMiss if absent.
func (c *Cache[T]) Get(ctx context.Context, key string) (*T, error) {
	if err := c.client.EnsureConnection(ctx); err != nil {
		return nil, errors.New("redis connection failed: " + err.Error())
	}

	raw, err := c.client.GetClient().Get(ctx, c.hashedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, errors.New("redis connection failed: " + err.Error())
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Set JSON-encodes value and stores it under key with this Cache's TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, value *T) error {
	if err := c.client.EnsureConnection(ctx); err != nil {
		return errors.New("redis connection failed: " + err.Error())
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.GetClient().Set(ctx, c.hashedKey(key), raw, c.ttl).Err(); err != nil {
		return errors.New("redis connection failed: " + err.Error())
	}
	return nil
}

// Delete removes key unconditionally.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.EnsureConnection(ctx); err != nil {
		return errors.New("redis connection failed: " + err.Error())
	}
	return c.client.GetClient().Del(ctx, c.hashedKey(key)).Err()
}

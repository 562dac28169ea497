package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	cacheredis "github.com/taxpoynt/core/pkg/cache/redis"
)

// RedisL2 adapts a *redis.Client, which connects to a single Redis node
// (sentinel and cluster modes are not supported), to the byte-oriented L2
// interface TwoTier expects.
type RedisL2 struct {
	client *cacheredis.Client
}

// NewRedisL2 wraps client for use as a TwoTier L2 tier.
func NewRedisL2(client *cacheredis.Client) *RedisL2 {
	return &RedisL2{client: client}
}

func (r *RedisL2) Get(ctx context.Context, key string) ([]byte, error) {
	if err := r.client.EnsureConnection(ctx); err != nil {
		return nil, err
	}
	raw, err := r.client.GetClient().Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrL2Miss
		}
		return nil, err
	}
	return raw, nil
}

func (r *RedisL2) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.EnsureConnection(ctx); err != nil {
		return err
	}
	return r.client.GetClient().Set(ctx, key, value, ttl).Err()
}

// Package redis wraps go-redis/v9 with a lazy, double-checked-locking
// connection lifecycle (EnsureConnection, GetClient, Close): the first
// caller pays the connect cost, every later caller reuses the live client.
package redis

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taxpoynt/core/internal/apperror"
)

// Client lazily establishes and health-checks a go-redis connection,
// exposing the underlying *redis.Client once connected. EnsureConnection is
// safe to call from many goroutines: only the first caller pays the PING
// round trip (double-checked locking avoids a thundering herd of dialers).
type Client struct {
	inner     *goredis.Client
	logger    logr.Logger
	connected atomic.Bool
	mu        sync.Mutex
}

// NewClient builds a Client without connecting. Connection happens lazily
// on the first EnsureConnection call, so a service can start even when the
// remote cache is temporarily unreachable (§4.6 "graceful degradation").
func NewClient(opts *goredis.Options, logger logr.Logger) *Client {
	return &Client{inner: goredis.NewClient(opts), logger: logger}
}

// EnsureConnection verifies connectivity on first call (PING) and takes a
// fast atomic-load path on every subsequent call once connected.
func (c *Client) EnsureConnection(ctx context.Context) error {
	if c.connected.Load() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected.Load() {
		return nil
	}

	if err := c.inner.Ping(ctx).Err(); err != nil {
		return apperror.Wrap(err, apperror.KindCache, "redis unavailable")
	}
	c.connected.Store(true)
	return nil
}

// GetClient returns the underlying go-redis client for direct use by
// collaborators that need operations Cache[T] doesn't expose.
func (c *Client) GetClient() *goredis.Client {
	return c.inner
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	c.connected.Store(false)
	return c.inner.Close()
}

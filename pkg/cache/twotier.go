package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/metrics"
)

// L2 is the remote key-value tier collaborator TwoTier reads/writes
// through its circuit breaker. RedisL2, a thin adapter over the
// pkg/cache/redis client, implements it (as could any other remote store);
// TwoTier itself never imports
// go-redis.
type L2 interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ErrL2Miss is L2's cache-miss sentinel, analogous to redis.ErrCacheMiss
// but at the byte-oriented L2 interface boundary.
var ErrL2Miss = errors.New("l2 cache miss")

// TwoTier is the combined L1 (in-process LRU) + L2 (remote, circuit-broken)
// cache (§4.6). Read path: L1 miss falls through to L2 via the breaker,
// repopulating L1 on a hit. Write path: L1 is always written; L2 is
// best-effort — any L2 failure is logged and absorbed, never surfaced to
// the caller, because "writes succeed when L1 succeeds."
type TwoTier[T any] struct {
	l1                *LRU
	l2                L2
	breaker           *gobreaker.CircuitBreaker[any]
	format            Format
	compressThreshold int
	ttl               time.Duration
	logger            logr.Logger
}

// TwoTierConfig configures one TwoTier instance.
type TwoTierConfig struct {
	Capacity          int
	TTL               time.Duration
	Format            Format
	CompressThreshold int
	Breaker           BreakerConfig
	Now               func() time.Time
}

// NewTwoTier constructs a TwoTier over l2 (nil disables the L2 tier
// entirely — L1-only operation, still correct, just without cross-process
// sharing).
func NewTwoTier[T any](name string, l2 L2, cfg TwoTierConfig, logger logr.Logger) *TwoTier[T] {
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}
	if cfg.CompressThreshold == 0 {
		cfg.CompressThreshold = DefaultCompressionThreshold
	}
	return &TwoTier[T]{
		l1:                NewLRU(cfg.Capacity, cfg.Now),
		l2:                l2,
		breaker:           NewBreaker(name, cfg.Breaker),
		format:            cfg.Format,
		compressThreshold: cfg.CompressThreshold,
		ttl:               cfg.TTL,
		logger:            logger,
	}
}

// Get reads key, trying L1 first and falling through to L2 on miss. Any L2
// failure (including a circuit-open short-circuit) degrades to a cache
// miss rather than propagating to the caller (§7: CacheError is "never
// surfaced to callers; logged and absorbed").
func (t *TwoTier[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	if raw, ok := t.l1.Get(key); ok {
		metrics.RecordCacheHit("l1")
		v, err := Decode[T](raw, t.format)
		if err != nil {
			return zero, false
		}
		return v, true
	}
	metrics.RecordCacheMiss("l1")

	if t.l2 == nil {
		return zero, false
	}

	result, err := Guard(t.breaker, func() (any, error) {
		return t.l2.Get(ctx, key)
	})
	if err != nil {
		if !errors.Is(err, ErrCircuitOpen) && !errors.Is(err, ErrL2Miss) {
			t.logger.V(1).Info("l2 cache read failed, degrading to miss", "key", key, "error", err.Error())
		}
		metrics.RecordCacheMiss("l2")
		return zero, false
	}

	raw, ok := result.([]byte)
	if !ok || raw == nil {
		metrics.RecordCacheMiss("l2")
		return zero, false
	}
	metrics.RecordCacheHit("l2")

	v, err := Decode[T](raw, t.format)
	if err != nil {
		return zero, false
	}
	t.l1.Set(key, raw, t.ttl)
	return v, true
}

// Set writes key to L1 unconditionally, then best-effort to L2 through the
// breaker. An L2 failure is logged and swallowed (§4.6 write path).
func (t *TwoTier[T]) Set(ctx context.Context, key string, value T) error {
	raw, err := Encode(value, t.format, t.compressThreshold)
	if err != nil {
		return err
	}

	t.l1.Set(key, raw, t.ttl)

	if t.l2 == nil {
		return nil
	}

	_, err = Guard(t.breaker, func() (any, error) {
		return nil, t.l2.Set(ctx, key, raw, t.ttl)
	})
	if err != nil {
		t.logger.V(1).Info("l2 cache write failed, L1 write still applied", "key", key, "error", apperror.Wrap(err, apperror.KindCache, "l2 set").Error())
	}
	return nil
}

// Delete removes key from L1; L2 deletion is not modeled — L2 entries
// expire there via TTL instead.
func (t *TwoTier[T]) Delete(key string) {
	t.l1.Delete(key)
}

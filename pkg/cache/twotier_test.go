package cache

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	goredis "github.com/redis/go-redis/v9"

	cacheredis "github.com/taxpoynt/core/pkg/cache/redis"
)

var _ = Describe("TwoTier", func() {
	var (
		ctx       context.Context
		miniRedis *miniredis.Miniredis
		l2        *RedisL2
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		miniRedis, err = miniredis.Run()
		Expect(err).ToNot(HaveOccurred())

		client := cacheredis.NewClient(&goredis.Options{Addr: miniRedis.Addr()}, logr.Discard())
		l2 = NewRedisL2(client)
	})

	AfterEach(func() {
		if miniRedis != nil {
			miniRedis.Close()
		}
	})

	It("serves a write back from L1 without touching L2", func() {
		two := NewTwoTier[string]("test", l2, TwoTierConfig{Capacity: 10, TTL: time.Minute}, logr.Discard())

		Expect(two.Set(ctx, "key", "value")).To(Succeed())
		miniRedis.Close() // L2 now unreachable; L1 must still answer

		got, ok := two.Get(ctx, "key")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal("value"))
	})

	It("falls through to L2 on an L1 miss and repopulates L1", func() {
		writer := NewTwoTier[string]("writer", l2, TwoTierConfig{Capacity: 10, TTL: time.Minute}, logr.Discard())
		Expect(writer.Set(ctx, "shared-key", "from-writer")).To(Succeed())

		reader := NewTwoTier[string]("reader", l2, TwoTierConfig{Capacity: 10, TTL: time.Minute}, logr.Discard())
		got, ok := reader.Get(ctx, "shared-key")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal("from-writer"))
	})

	It("degrades to a miss, never an error, when L2 is unreachable", func() {
		badClient := cacheredis.NewClient(&goredis.Options{Addr: "localhost:9999", DialTimeout: 50 * time.Millisecond}, logr.Discard())
		badL2 := NewRedisL2(badClient)

		two := NewTwoTier[string]("broken", badL2, TwoTierConfig{
			Capacity: 10, TTL: time.Minute,
			Breaker: BreakerConfig{ConsecutiveFailures: 1, RecoveryTimeout: time.Minute},
		}, logr.Discard())

		_, ok := two.Get(ctx, "anything")
		Expect(ok).To(BeFalse())
	})

	It("trips the circuit breaker after consecutive L2 failures", func() {
		badClient := cacheredis.NewClient(&goredis.Options{Addr: "localhost:9999", DialTimeout: 50 * time.Millisecond}, logr.Discard())
		badL2 := NewRedisL2(badClient)

		two := NewTwoTier[string]("tripper", badL2, TwoTierConfig{
			Capacity: 10, TTL: time.Minute,
			Breaker: BreakerConfig{ConsecutiveFailures: 2, RecoveryTimeout: time.Hour},
		}, logr.Discard())

		for i := 0; i < 3; i++ {
			_, ok := two.Get(ctx, "key")
			Expect(ok).To(BeFalse())
		}
		// Breaker should now be open; further calls still degrade to a miss
		// rather than erroring, but do so without attempting the dial.
		_, ok := two.Get(ctx, "key")
		Expect(ok).To(BeFalse())
	})
})

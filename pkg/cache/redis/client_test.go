package redis

import (
	"context"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	goredis "github.com/redis/go-redis/v9"
)

var _ = Describe("Client", func() {
	var (
		ctx       context.Context
		logger    logr.Logger
		miniRedis *miniredis.Miniredis
		redisAddr string
		client    *Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = logr.Discard()

		var err error
		miniRedis, err = miniredis.Run()
		Expect(err).ToNot(HaveOccurred())
		redisAddr = miniRedis.Addr()
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
		}
		if miniRedis != nil {
			miniRedis.Close()
		}
	})

	It("creates a client without connecting", func() {
		client = NewClient(&goredis.Options{Addr: redisAddr, DB: 0}, logger)
		Expect(client).ToNot(BeNil())
		Expect(client.GetClient()).ToNot(BeNil())
	})

	Describe("EnsureConnection", func() {
		It("establishes a connection on first call", func() {
			client = NewClient(&goredis.Options{Addr: redisAddr, DB: 0}, logger)
			Expect(client.EnsureConnection(ctx)).To(Succeed())
		})

		It("takes the fast path on subsequent calls", func() {
			client = NewClient(&goredis.Options{Addr: redisAddr, DB: 0}, logger)
			Expect(client.EnsureConnection(ctx)).To(Succeed())

			start := time.Now()
			Expect(client.EnsureConnection(ctx)).To(Succeed())
			Expect(time.Since(start)).To(BeNumerically("<", 1*time.Millisecond))
		})

		It("returns an error without panicking when Redis is unavailable", func() {
			client = NewClient(&goredis.Options{Addr: "localhost:9999", DB: 0, DialTimeout: 100 * time.Millisecond}, logger)
			err := client.EnsureConnection(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("redis unavailable"))
		})

		It("prevents a thundering herd under concurrent calls", func() {
			client = NewClient(&goredis.Options{Addr: redisAddr, DB: 0}, logger)

			var wg sync.WaitGroup
			errs := make([]error, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()
					errs[idx] = client.EnsureConnection(ctx)
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				Expect(err).ToNot(HaveOccurred(), "goroutine %d failed", i)
			}
		})
	})

	It("exposes the underlying go-redis client after connecting", func() {
		client = NewClient(&goredis.Options{Addr: redisAddr, DB: 0}, logger)
		Expect(client.EnsureConnection(ctx)).To(Succeed())

		redisClient := client.GetClient()
		Expect(redisClient.Set(ctx, "test-key", "test-value", 0).Err()).To(Succeed())

		val, err := redisClient.Get(ctx, "test-key").Result()
		Expect(err).ToNot(HaveOccurred())
		Expect(val).To(Equal("test-value"))
	})

	It("closes the connection cleanly", func() {
		client = NewClient(&goredis.Options{Addr: redisAddr, DB: 0}, logger)
		Expect(client.EnsureConnection(ctx)).To(Succeed())
		Expect(client.Close()).To(Succeed())
	})
})

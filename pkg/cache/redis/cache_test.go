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

var _ = Describe("Cache", func() {
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

		opts := &goredis.Options{Addr: redisAddr, DB: 0}
		client = NewClient(opts, logger)
		Expect(client.EnsureConnection(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
		}
		if miniRedis != nil {
			miniRedis.Close()
		}
	})

	It("stores and retrieves string values", func() {
		c := NewCache[string](client, "strings", 5*time.Minute)

		value := "hello world"
		Expect(c.Set(ctx, "key1", &value)).To(Succeed())

		retrieved, err := c.Get(ctx, "key1")
		Expect(err).ToNot(HaveOccurred())
		Expect(*retrieved).To(Equal("hello world"))
	})

	It("stores and retrieves struct values", func() {
		type testStruct struct {
			Name  string
			Count int
			Tags  []string
		}
		c := NewCache[testStruct](client, "structs", 10*time.Minute)

		data := testStruct{Name: "test", Count: 42, Tags: []string{"a", "b"}}
		Expect(c.Set(ctx, "struct-key", &data)).To(Succeed())

		retrieved, err := c.Get(ctx, "struct-key")
		Expect(err).ToNot(HaveOccurred())
		Expect(retrieved.Name).To(Equal("test"))
		Expect(retrieved.Count).To(Equal(42))
	})

	It("returns ErrCacheMiss for non-existent keys", func() {
		c := NewCache[string](client, "test", 5*time.Minute)

		retrieved, err := c.Get(ctx, "missing")
		Expect(err).To(Equal(ErrCacheMiss))
		Expect(retrieved).To(BeNil())
	})

	It("expires entries after TTL", func() {
		c := NewCache[string](client, "ttl-test", 1*time.Second)

		value := "expires soon"
		Expect(c.Set(ctx, "ttl-key", &value)).To(Succeed())

		retrieved, err := c.Get(ctx, "ttl-key")
		Expect(err).ToNot(HaveOccurred())
		Expect(*retrieved).To(Equal("expires soon"))

		miniRedis.FastForward(2 * time.Second)

		retrieved, err = c.Get(ctx, "ttl-key")
		Expect(err).To(Equal(ErrCacheMiss))
		Expect(retrieved).To(BeNil())
	})

	It("isolates keys by prefix", func() {
		cache1 := NewCache[string](client, "prefix1", 5*time.Minute)
		cache2 := NewCache[string](client, "prefix2", 5*time.Minute)

		v1, v2 := "cache1-value", "cache2-value"
		Expect(cache1.Set(ctx, "shared-key", &v1)).To(Succeed())
		Expect(cache2.Set(ctx, "shared-key", &v2)).To(Succeed())

		r1, err := cache1.Get(ctx, "shared-key")
		Expect(err).ToNot(HaveOccurred())
		Expect(*r1).To(Equal("cache1-value"))

		r2, err := cache2.Get(ctx, "shared-key")
		Expect(err).ToNot(HaveOccurred())
		Expect(*r2).To(Equal("cache2-value"))
	})

	Context("when Redis is unavailable", func() {
		It("returns an error on Set without panicking", func() {
			opts := &goredis.Options{Addr: "localhost:9999", DB: 0, DialTimeout: 100 * time.Millisecond}
			unavailable := NewClient(opts, logger)
			defer func() { _ = unavailable.Close() }()

			c := NewCache[string](unavailable, "test", 5*time.Minute)
			value := "test"
			err := c.Set(ctx, "key", &value)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("redis connection failed"))
		})

		It("returns an error on Get without panicking", func() {
			opts := &goredis.Options{Addr: "localhost:9999", DB: 0, DialTimeout: 100 * time.Millisecond}
			unavailable := NewClient(opts, logger)
			defer func() { _ = unavailable.Close() }()

			c := NewCache[string](unavailable, "test", 5*time.Minute)
			retrieved, err := c.Get(ctx, "key")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("redis connection failed"))
			Expect(retrieved).To(BeNil())
		})
	})

	It("handles concurrent Get/Set safely", func() {
		c := NewCache[int](client, "concurrent", 5*time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				v := idx * 10
				Expect(c.Set(ctx, "counter", &v)).To(Succeed())
			}(i)
		}
		wg.Wait()

		retrieved, err := c.Get(ctx, "counter")
		Expect(err).ToNot(HaveOccurred())
		Expect(*retrieved).To(BeNumerically(">=", 0))
	})
})

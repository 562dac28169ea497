package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/taxpoynt/core/internal/apperror"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fakeConfig(tenantID string) Configuration {
	invoices, users, rpm := DefaultCeilings(TierStarter)
	return Configuration{
		TenantID:            tenantID,
		OrganizationID:      "org-" + tenantID,
		Tier:                TierStarter,
		InvoiceCeilingMonth: invoices,
		UserCeiling:         users,
		RateLimitPerMinute:  rpm,
		CacheTTL:            time.Minute,
		ServiceClasses:      []ServiceClass{ServiceClassSI},
	}
}

var _ = Describe("Manager", func() {
	var (
		loadCount int
		now       time.Time
		mgr       *Manager
	)

	BeforeEach(func() {
		loadCount = 0
		now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		mgr = NewManager(func(ctx context.Context, tenantID string) (Configuration, error) {
			loadCount++
			return fakeConfig(tenantID), nil
		}, func() time.Time { return now })
	})

	Describe("Resolve", func() {
		It("loads once and serves subsequent calls from cache", func() {
			cfg1, err := mgr.Resolve(context.Background(), "tenant-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg1.TenantID).To(Equal("tenant-a"))

			_, err = mgr.Resolve(context.Background(), "tenant-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(loadCount).To(Equal(1))
		})

		It("reloads once the cache TTL has elapsed", func() {
			_, err := mgr.Resolve(context.Background(), "tenant-a")
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(2 * time.Minute)
			_, err = mgr.Resolve(context.Background(), "tenant-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(loadCount).To(Equal(2))
		})

		It("wraps loader errors as a config-kind apperror", func() {
			mgr = NewManager(func(ctx context.Context, tenantID string) (Configuration, error) {
				return Configuration{}, errors.New("not found")
			}, nil)

			_, err := mgr.Resolve(context.Background(), "missing")
			Expect(err).To(HaveOccurred())
			var appErr *apperror.Error
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Kind).To(Equal(apperror.KindConfig))
		})

		It("reloads immediately after Invalidate", func() {
			_, err := mgr.Resolve(context.Background(), "tenant-a")
			Expect(err).NotTo(HaveOccurred())

			mgr.Invalidate("tenant-a")
			_, err = mgr.Resolve(context.Background(), "tenant-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(loadCount).To(Equal(2))
		})
	})

	Describe("CheckQuota", func() {
		It("allows usage below the warning threshold", func() {
			cfg := fakeConfig("tenant-a")
			warning, err := mgr.CheckQuota(cfg, QuotaInvoicesPerMonth, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(warning).To(BeEmpty())
		})

		It("warns once usage crosses 80% of the ceiling", func() {
			cfg := fakeConfig("tenant-a")
			warning, err := mgr.CheckQuota(cfg, QuotaInvoicesPerMonth, 800)
			Expect(err).NotTo(HaveOccurred())
			Expect(warning).NotTo(BeEmpty())
		})

		It("denies once usage reaches the ceiling", func() {
			cfg := fakeConfig("tenant-a")
			_, err := mgr.CheckQuota(cfg, QuotaInvoicesPerMonth, 1000)
			Expect(err).To(HaveOccurred())
			var appErr *apperror.Error
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Kind).To(Equal(apperror.KindTenantLimit))
		})

		It("treats a zero ceiling as unlimited", func() {
			cfg := fakeConfig("tenant-a")
			cfg.UserCeiling = 0
			warning, err := mgr.CheckQuota(cfg, QuotaActiveUsers, 1_000_000)
			Expect(err).NotTo(HaveOccurred())
			Expect(warning).To(BeEmpty())
		})
	})

	Describe("CheckRateLimit", func() {
		It("allows calls within the per-minute budget", func() {
			cfg := fakeConfig("tenant-a")
			Expect(mgr.CheckRateLimit(cfg)).NotTo(HaveOccurred())
		})

		It("denies once the token bucket is exhausted", func() {
			cfg := fakeConfig("tenant-a")
			cfg.RateLimitPerMinute = 1

			Expect(mgr.CheckRateLimit(cfg)).NotTo(HaveOccurred())

			err := mgr.CheckRateLimit(cfg)
			Expect(err).To(HaveOccurred())
			var appErr *apperror.Error
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Kind).To(Equal(apperror.KindRateLimited))
		})

		It("treats a zero rate limit as unlimited", func() {
			cfg := fakeConfig("tenant-b")
			cfg.RateLimitPerMinute = 0
			for i := 0; i < 5; i++ {
				Expect(mgr.CheckRateLimit(cfg)).NotTo(HaveOccurred())
			}
		})
	})
})

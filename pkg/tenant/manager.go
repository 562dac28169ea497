package tenant

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/metrics"
)

// defaultCacheTTL is used when a resolved Configuration carries a zero
// CacheTTL.
const defaultCacheTTL = 5 * time.Minute

// Loader resolves a tenant's Configuration from its system of record (the
// `organizations`/`tenant_quotas` tables, §6). The manager never imports
// the database package directly; the loader is injected so pkg/tenant
// stays free of a dependency on pkg/store, mirroring pkg/pipeline's
// StageContext collaborator-function pattern.
type Loader func(ctx context.Context, tenantID string) (Configuration, error)

type cacheEntry struct {
	cfg       Configuration
	expiresAt time.Time
}

// Manager holds the process-wide resolved-tenant-configuration cache, the
// per-tenant rate limiters, and enforces per-tier quota ceilings (C8). It
// is one of the shared-resource singletons §5 calls out as process-wide
// mutable state: a reader-writer mutex guards the configuration cache and a
// separate mutex guards the rate limiters.
type Manager struct {
	mu    sync.RWMutex
	cache map[string]cacheEntry

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	loader Loader
	now    func() time.Time
}

// NewManager builds a Manager backed by loader. now defaults to time.Now
// when nil; tests may override it to control TTL expiry deterministically.
func NewManager(loader Loader, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		cache:    make(map[string]cacheEntry),
		limiters: make(map[string]*rate.Limiter),
		loader:   loader,
		now:      now,
	}
}

// Resolve returns tenantID's Configuration, serving from cache when fresh
// and falling back to the loader on a miss or TTL expiry (§4.5).
func (m *Manager) Resolve(ctx context.Context, tenantID string) (Configuration, error) {
	m.mu.RLock()
	entry, ok := m.cache[tenantID]
	m.mu.RUnlock()
	if ok && m.now().Before(entry.expiresAt) {
		return entry.cfg, nil
	}

	cfg, err := m.loader(ctx, tenantID)
	if err != nil {
		return Configuration{}, apperror.Wrapf(err, apperror.KindConfig, "resolve tenant configuration for %s", tenantID)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	m.mu.Lock()
	m.cache[tenantID] = cacheEntry{cfg: cfg, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()

	return cfg, nil
}

// Invalidate evicts tenantID from the cache, forcing the next Resolve to
// reload it.
func (m *Manager) Invalidate(tenantID string) {
	m.mu.Lock()
	delete(m.cache, tenantID)
	m.mu.Unlock()
}

// QuotaMetric names one of the per-tier ceilings enforced by CheckQuota.
type QuotaMetric string

const (
	QuotaInvoicesPerMonth QuotaMetric = "invoices_per_month"
	QuotaActiveUsers      QuotaMetric = "active_users"
)

// quotaWarningThreshold is the fraction of a ceiling at which CheckQuota
// returns a warning instead of silence (§4.5: "approaching 80% emits a
// warning").
const quotaWarningThreshold = 0.8

// CheckQuota enforces cfg's ceiling for metric against current usage. A
// ceiling of 0 means unlimited. It returns a non-nil *apperror.Error
// (KindTenantLimit) only on a hard breach; a near-ceiling usage returns
// (warning string, nil).
func (m *Manager) CheckQuota(cfg Configuration, metric QuotaMetric, current int) (warning string, err error) {
	var limit int
	switch metric {
	case QuotaInvoicesPerMonth:
		limit = cfg.InvoiceCeilingMonth
	case QuotaActiveUsers:
		limit = cfg.UserCeiling
	default:
		return "", apperror.Newf(apperror.KindConfig, "unknown quota metric %q", metric)
	}
	if limit <= 0 {
		return "", nil // unlimited
	}
	if current >= limit {
		metrics.RecordTenantQuotaDenied(string(cfg.Tier), string(metric))
		return "", apperror.Newf(apperror.KindTenantLimit, "tenant %s exceeded %s ceiling (%d/%d)", cfg.TenantID, metric, current, limit)
	}
	if float64(current) >= float64(limit)*quotaWarningThreshold {
		return "tenant is approaching its " + string(metric) + " ceiling", nil
	}
	return "", nil
}

// limiterFor returns (creating if necessary) the token bucket for tenantID,
// sized from cfg.RateLimitPerMinute. A rate limit of 0 means unlimited and
// returns nil.
func (m *Manager) limiterFor(cfg Configuration) *rate.Limiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()

	lim, ok := m.limiters[cfg.TenantID]
	if !ok {
		perSecond := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
		burst := cfg.RateLimitPerMinute
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(perSecond, burst)
		m.limiters[cfg.TenantID] = lim
	}
	return lim
}

// CheckRateLimit enforces cfg's per-minute token bucket (§5, §7
// RateLimitedError). A zero RateLimitPerMinute means unlimited.
func (m *Manager) CheckRateLimit(cfg Configuration) error {
	lim := m.limiterFor(cfg)
	if lim == nil {
		return nil
	}
	if !lim.Allow() {
		metrics.RecordRateLimited(cfg.TenantID)
		return apperror.Newf(apperror.KindRateLimited, "tenant %s exceeded its rate limit", cfg.TenantID)
	}
	return nil
}

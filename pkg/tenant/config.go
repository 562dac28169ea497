// Package tenant implements the tenant manager (C8): resolved tenant
// configuration caching, per-tier quota enforcement, and per-tenant rate
// limiting (§4.5). It has no scoped tenant-context primitive: callers pass
// the tenant id explicitly.
package tenant

import "time"

// Tier is a tenant's subscription level, which drives its default quotas.
type Tier string

const (
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
	TierScale        Tier = "scale"
)

// ServiceClass is a FIRS e-invoicing service class a tenant may be enabled
// for (GLOSSARY: SI is commercial, APP is grant-funded).
type ServiceClass string

const (
	ServiceClassSI     ServiceClass = "SI"
	ServiceClassAPP    ServiceClass = "APP"
	ServiceClassHybrid ServiceClass = "hybrid"
)

// BillingStatus is the tenant's current billing lifecycle state.
type BillingStatus string

const (
	BillingActive    BillingStatus = "active"
	BillingSuspended BillingStatus = "suspended"
	BillingOverdue   BillingStatus = "overdue"
	BillingCancelled BillingStatus = "cancelled"
)

// Billing carries the tenant's billing-lifecycle state (§3).
type Billing struct {
	Status          BillingStatus `json:"status"`
	Tier            Tier          `json:"tier"`
	NextBillingDate time.Time     `json:"next_billing_date"`
}

// GrantTracking carries the APP-class milestone counters: inert state
// with read/update accessors only. No state-machine transition logic is
// implemented here — the admissible transitions between milestone stages
// are not specified, so none are guessed.
type GrantTracking struct {
	MilestoneStage   string   `json:"milestone_stage"`
	TaxpayerCount    int      `json:"taxpayer_count"`
	SectorList       []string `json:"sector_list"`
	TransmissionRate float64  `json:"transmission_rate"`
}

// Configuration is one tenant's resolved configuration (§3 "Tenant
// Configuration").
type Configuration struct {
	TenantID       string         `json:"tenant_id"`
	OrganizationID string         `json:"organization_id"`
	Tier           Tier           `json:"tier"`
	IsolationLevel string         `json:"isolation_level"`

	InvoiceCeilingMonth int `json:"invoice_ceiling_month"` // 0 = unlimited
	UserCeiling         int `json:"user_ceiling"`          // 0 = unlimited
	RateLimitPerMinute  int `json:"rate_limit_per_minute"` // 0 = unlimited

	CacheTTL       time.Duration  `json:"cache_ttl"`
	ServiceClasses []ServiceClass `json:"service_classes"`
	BillingState   Billing        `json:"billing_state"`
	Grant          GrantTracking  `json:"grant_tracking"`
}

// DefaultCeilings returns the starting quota values for a tier; a resolved
// Configuration may override any of these per tenant.
func DefaultCeilings(t Tier) (invoiceCeiling, userCeiling, rateLimitPerMinute int) {
	switch t {
	case TierStarter:
		return 1000, 5, 60
	case TierProfessional:
		return 10000, 25, 300
	case TierEnterprise:
		return 100000, 200, 1200
	case TierScale:
		return 0, 0, 6000 // 0 == unlimited
	default:
		return 1000, 5, 60
	}
}

// HasServiceClass reports whether c is enabled for class.
func (c Configuration) HasServiceClass(class ServiceClass) bool {
	for _, sc := range c.ServiceClasses {
		if sc == class {
			return true
		}
	}
	return false
}

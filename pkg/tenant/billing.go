package tenant

import "time"

// Subscription is the tenant's current plan selection, read from the
// `subscriptions` table. This core only needs read access to it — plan
// changes and invoicing of the platform's own customers happen in a
// system this core does not own.
type Subscription struct {
	TenantID    string    `json:"tenant_id"`
	PlanID      string    `json:"plan_id"`
	Tier        Tier      `json:"tier"`
	Status      BillingStatus
	StartedAt   time.Time `json:"started_at"`
	RenewsAt    time.Time `json:"renews_at"`
}

// UsageRecord is one period's metered usage for a tenant, used to decide
// whether a tenant is approaching or has breached its tier ceilings.
type UsageRecord struct {
	TenantID         string    `json:"tenant_id"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	InvoicesTransmitted int    `json:"invoices_transmitted"`
	ActiveUsers      int       `json:"active_users"`
}

// BillingRecord is a single ledger entry against a tenant's account.
type BillingRecord struct {
	TenantID  string    `json:"tenant_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// BillingReader is the read-only surface this core needs against the
// billing system of record. No write methods are declared: this core
// observes billing state (to decide whether a suspended/overdue tenant
// should be denied processing) but never mutates it.
type BillingReader interface {
	CurrentSubscription(tenantID string) (Subscription, error)
	UsageForPeriod(tenantID string, periodStart, periodEnd time.Time) (UsageRecord, error)
	RecentRecords(tenantID string, limit int) ([]BillingRecord, error)
}

// IsProcessingAllowed reports whether a tenant's billing status permits
// continued transaction processing (§4.5: suspended/cancelled tenants are
// denied, overdue tenants are allowed through a grace window the billing
// system itself enforces upstream of this core).
func (b Billing) IsProcessingAllowed() bool {
	switch b.Status {
	case BillingSuspended, BillingCancelled:
		return false
	default:
		return true
	}
}

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/tenant"
)

// TenantRepo resolves tenant.Configuration from the organizations and
// tenant_quotas tables (§6) and implements pkg/tenant.Loader, the only
// collaborator seam that package depends on.
type TenantRepo struct {
	engine *Engine
}

// NewTenantRepo constructs a TenantRepo over engine.
func NewTenantRepo(engine *Engine) *TenantRepo {
	return &TenantRepo{engine: engine}
}

// Loader adapts r.Load to pkg/tenant.Loader's function-type collaborator
// seam.
func (r *TenantRepo) Loader() tenant.Loader {
	return r.Load
}

// Load implements pkg/tenant.Loader: resolve tenant configuration with the
// tier's default ceilings, replacing the monthly invoice ceiling with a
// positive tenant_quotas override where one exists.
func (r *TenantRepo) Load(ctx context.Context, tenantID string) (tenant.Configuration, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT * FROM organizations WHERE id = $1 AND is_active = true LIMIT 1`, tenantID)
	if err != nil {
		return tenant.Configuration{}, err
	}
	if len(rows) == 0 {
		return tenant.Configuration{}, apperror.New(apperror.KindValidation, "tenant not found or inactive: "+tenantID)
	}
	row := rows[0]

	tier := tenant.Tier(stringField(row, "tier"))
	invoiceCeiling, userCeiling, rateLimit := tenant.DefaultCeilings(tier)

	cfg := tenant.Configuration{
		TenantID:            tenantID,
		OrganizationID:      tenantID,
		Tier:                tier,
		InvoiceCeilingMonth: invoiceCeiling,
		UserCeiling:         userCeiling,
		RateLimitPerMinute:  rateLimit,
		BillingState: tenant.Billing{
			Status: tenant.BillingStatus(stringField(row, "billing_state")),
			Tier:   tier,
		},
	}

	if raw := stringField(row, "service_classes"); raw != "" {
		var classes []string
		if err := json.Unmarshal([]byte(raw), &classes); err != nil {
			return tenant.Configuration{}, apperror.Wrap(err, apperror.KindValidation, "unmarshal tenant service classes")
		}
		for _, c := range classes {
			cfg.ServiceClasses = append(cfg.ServiceClasses, tenant.ServiceClass(c))
		}
	}

	if override, ok := r.quotaOverride(ctx, tenantID); ok {
		if override > 0 {
			cfg.InvoiceCeilingMonth = override
		}
	}

	return cfg, nil
}

// quotaOverride looks up a per-tenant override of the monthly invoice
// ceiling from tenant_quotas (§6), where present, leaving the tier default
// in place otherwise.
func (r *TenantRepo) quotaOverride(ctx context.Context, tenantID string) (int, bool) {
	rows, err := r.engine.Query(ctx,
		`SELECT "limit" FROM tenant_quotas WHERE tenant_id = $1 AND metric = 'invoices_per_month' AND period_start <= $2 LIMIT 1`,
		tenantID, time.Now())
	if err != nil || len(rows) == 0 {
		return 0, false
	}
	return int(floatField(rows[0], "limit")), true
}

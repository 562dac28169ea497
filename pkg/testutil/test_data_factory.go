package testutil

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/pkg/tenant"
	"github.com/taxpoynt/core/pkg/transaction"
)

// Shared constants so tests referencing the same fixtures don't drift.
const (
	DefaultTestTenant = "tenant-test-001"
	DefaultTestOrg    = "org-test-001"
	DefaultCurrency   = "NGN"
)

// TestDataFactory centralizes fixture construction for the pipeline,
// customer-matching, and tenant test suites.
type TestDataFactory struct{}

// NewTestDataFactory creates a new test data factory.
func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

func decimalPtr(s string) *string { return &s }

// =============================================================================
// CONNECTOR FIXTURES — one per §8 worked scenario
// =============================================================================

// CreateERPTransaction builds the ERP invoice from scenario 1: a clean,
// fully-formed transaction that should sail through every stage unmodified.
func (f *TestDataFactory) CreateERPTransaction() transaction.Universal {
	return transaction.Universal{
		ID:            "txn-erp-001",
		TenantID:      DefaultTestTenant,
		Amount:        decimal.RequireFromString("107500.00"),
		Currency:      DefaultCurrency,
		Timestamp:     time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC),
		Description:   "Consulting services rendered January 2026",
		ConnectorKind: transaction.KindERP,
		Metadata: &transaction.ERPMetadata{
			InvoiceNumber:    "INV-2024-001",
			PurchaseOrder:    "PO-99812",
			Subtotal:         decimalPtr("100000.00"),
			VAT:              decimalPtr("7500.00"),
			CostCenter:       "CC-ENG",
			VendorOrCustomer: "Acme Consulting Ltd",
		},
		Provenance: transaction.Provenance{
			SourceSystem:      "sap-s4hana",
			ConnectorInstance: "erp-conn-1",
			IngestedAt:        time.Date(2026, 1, 15, 9, 31, 0, 0, time.UTC),
			RawPayload:        json.RawMessage(`{"source":"sap"}`),
		},
	}
}

// CreatePOSTransaction builds the scenario-3 point-of-sale transaction: it
// is missing its receipt number and terminal id, which should surface as
// validation findings rather than a hard rejection.
func (f *TestDataFactory) CreatePOSTransaction() transaction.Universal {
	return transaction.Universal{
		ID:            "txn-pos-001",
		TenantID:      DefaultTestTenant,
		Amount:        decimal.RequireFromString("4500.00"),
		Currency:      DefaultCurrency,
		Timestamp:     time.Date(2026, 2, 1, 14, 5, 0, 0, time.UTC),
		Description:   "Retail sale",
		ConnectorKind: transaction.KindPOS,
		Metadata: &transaction.POSMetadata{
			StoreLocation: "Lagos - Ikeja Mall",
		},
		Provenance: transaction.Provenance{
			SourceSystem:      "square",
			ConnectorInstance: "pos-conn-7",
			IngestedAt:        time.Date(2026, 2, 1, 14, 5, 30, 0, time.UTC),
		},
	}
}

// CreateBankingTransaction builds a banking transaction for the scenario-4
// duplicate-detection pair. Calling it twice with the same id produces two
// records that should fingerprint identically.
func (f *TestDataFactory) CreateBankingTransaction(id string) transaction.Universal {
	return transaction.Universal{
		ID:            id,
		TenantID:      DefaultTestTenant,
		Amount:        decimal.RequireFromString("250000.00"),
		Currency:      DefaultCurrency,
		Timestamp:     time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC),
		Description:   "NIP transfer - supplier settlement",
		AccountID:     "0123456789",
		ConnectorKind: transaction.KindBanking,
		Metadata: &transaction.BankingMetadata{
			BankReference: "NIP20260303110000001",
			AccountNumber: "0123456789",
			BankCode:      "058",
			Channel:       "NIP",
		},
		Provenance: transaction.Provenance{
			SourceSystem:      "gtbank",
			ConnectorInstance: "banking-conn-3",
			IngestedAt:        time.Date(2026, 3, 3, 11, 0, 5, 0, time.UTC),
		},
	}
}

// CreateCRMTransaction builds the scenario-5 CRM transaction used to drive
// customer-merge fixtures: accountName/phone vary across calls so tests can
// assemble near-duplicate identities for the matching engine.
func (f *TestDataFactory) CreateCRMTransaction(accountName, phone string) transaction.Universal {
	return transaction.Universal{
		ID:            "txn-crm-" + accountName,
		TenantID:      DefaultTestTenant,
		Amount:        decimal.RequireFromString("85000.00"),
		Currency:      DefaultCurrency,
		Timestamp:     time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC),
		Description:   "Subscription renewal",
		ConnectorKind: transaction.KindCRM,
		Metadata: &transaction.CRMMetadata{
			AccountName:  accountName,
			ContactPhone: phone,
			Pipeline:     "renewals",
		},
		Provenance: transaction.Provenance{
			SourceSystem:      "salesforce",
			ConnectorInstance: "crm-conn-2",
			IngestedAt:        time.Date(2026, 4, 10, 8, 0, 10, 0, time.UTC),
		},
	}
}

// CreateEcommerceTransaction builds a minimal ecommerce order, used by the
// pipeline's connector-kind dispatch tests.
func (f *TestDataFactory) CreateEcommerceTransaction() transaction.Universal {
	return transaction.Universal{
		ID:            "txn-ecom-001",
		TenantID:      DefaultTestTenant,
		Amount:        decimal.RequireFromString("15999.00"),
		Currency:      DefaultCurrency,
		Timestamp:     time.Date(2026, 5, 1, 19, 45, 0, 0, time.UTC),
		Description:   "Online order #88213",
		ConnectorKind: transaction.KindEcommerce,
		Metadata: &transaction.EcommerceMetadata{
			OrderID:         "88213",
			IsPhysicalGoods: true,
			Marketplace:     "jumia",
		},
	}
}

// =============================================================================
// TENANT FIXTURES
// =============================================================================

// CreateStarterTenant builds the starter-tier tenant.Configuration used by
// the tenant manager and pipeline integration specs.
func (f *TestDataFactory) CreateStarterTenant() tenant.Configuration {
	invoices, users, rpm := tenant.DefaultCeilings(tenant.TierStarter)
	return tenant.Configuration{
		TenantID:            DefaultTestTenant,
		OrganizationID:      DefaultTestOrg,
		Tier:                tenant.TierStarter,
		IsolationLevel:      "row",
		InvoiceCeilingMonth: invoices,
		UserCeiling:         users,
		RateLimitPerMinute:  rpm,
		CacheTTL:            5 * time.Minute,
		ServiceClasses:      []tenant.ServiceClass{tenant.ServiceClassSI},
		BillingState: tenant.Billing{
			Status:          tenant.BillingActive,
			Tier:            tenant.TierStarter,
			NextBillingDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// CreateEnterpriseTenant builds an enterprise-tier tenant.Configuration with
// the APP service class enabled, for grant-tracking and high-ceiling tests.
func (f *TestDataFactory) CreateEnterpriseTenant() tenant.Configuration {
	invoices, users, rpm := tenant.DefaultCeilings(tenant.TierEnterprise)
	return tenant.Configuration{
		TenantID:            "tenant-enterprise-001",
		OrganizationID:      "org-enterprise-001",
		Tier:                tenant.TierEnterprise,
		IsolationLevel:      "schema",
		InvoiceCeilingMonth: invoices,
		UserCeiling:         users,
		RateLimitPerMinute:  rpm,
		CacheTTL:            10 * time.Minute,
		ServiceClasses:      []tenant.ServiceClass{tenant.ServiceClassSI, tenant.ServiceClassAPP},
		BillingState: tenant.Billing{
			Status: tenant.BillingActive,
			Tier:   tenant.TierEnterprise,
		},
		Grant: tenant.GrantTracking{
			MilestoneStage:   "onboarded",
			TaxpayerCount:    42,
			SectorList:       []string{"manufacturing", "retail"},
			TransmissionRate: 0.97,
		},
	}
}

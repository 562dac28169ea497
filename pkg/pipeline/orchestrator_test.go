package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/pkg/transaction"
)

func baseStageContext(now time.Time) StageContext {
	return StageContext{
		Now:            now,
		TenantID:       "tenant-1",
		TenantCurrency: transaction.DefaultCurrency,
		EnabledRegimes: map[string]bool{},
		IsDuplicate: func(ctx context.Context, u transaction.Universal, w time.Duration) (string, bool, error) {
			return "", false, nil
		},
		RollingStats: func(ctx context.Context, tenantID, accountID string) (float64, float64, int, float64, error) {
			return 0, 0, 0, 0, nil
		},
		CustomerMatch: func(ctx context.Context, u transaction.Universal) (string, string, error) {
			return "cust-1", "Acme Traders", nil
		},
	}
}

func erpInvoice(id string, amount, vat string, ts time.Time) transaction.Universal {
	subtotal := amount
	return transaction.Universal{
		ID:            id,
		TenantID:      "tenant-1",
		Amount:        decimal.RequireFromString(amount),
		Currency:      transaction.DefaultCurrency,
		Timestamp:     ts,
		Description:   "invoice",
		AccountID:     "acct-1",
		ConnectorKind: transaction.KindERP,
		Metadata: &transaction.ERPMetadata{
			InvoiceNumber:    "INV-2026-0001",
			Subtotal:         &subtotal,
			VAT:              &vat,
			VendorOrCustomer: "TIN-12345678-0001",
		},
	}
}

// TestRunERPHappyPath mirrors scenario 1: a well-formed ERP invoice with
// correct VAT should complete with high confidence and be ready for
// invoicing.
func TestRunERPHappyPath(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	u := erpInvoice("erp-1", "100000.00", "7500.00", now.Add(-time.Hour))

	o := NewOrchestrator("v1")
	p, err := o.Run(context.Background(), u, EnterpriseERP(), baseStageContext(now))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.Status != transaction.StatusCompleted {
		t.Fatalf("Status = %v, want completed (violations=%+v)", p.Status, p.Validation.Violations)
	}
	if p.ProcessingMeta.Confidence < 0.8 {
		t.Errorf("Confidence = %.2f, want >= 0.8", p.ProcessingMeta.Confidence)
	}
	if !p.ReadyForInvoice {
		t.Error("ReadyForInvoice = false, want true")
	}
	if p.ProcessingMeta.RiskLevel != transaction.RiskLow {
		t.Errorf("RiskLevel = %v, want low", p.ProcessingMeta.RiskLevel)
	}
}

// TestRunERPVATMismatchFailsAtBusinessRules mirrors scenario 2: a VAT figure
// that does not match 7.5% of the subtotal must fail the pipeline at the
// business-rules stage, since enterprise-erp's failure action there is
// fail-pipeline.
func TestRunERPVATMismatchFailsAtBusinessRules(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	u := erpInvoice("erp-2", "100000.00", "5000.00", now.Add(-time.Hour))

	o := NewOrchestrator("v1")
	p, err := o.Run(context.Background(), u, EnterpriseERP(), baseStageContext(now))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.Status != transaction.StatusFailed {
		t.Fatalf("Status = %v, want failed", p.Status)
	}
	found := false
	for _, v := range p.Validation.Violations {
		if v.RuleID == "VAT_RATE_VALIDATION" {
			found = true
		}
	}
	if !found {
		t.Error("expected a VAT_RATE_VALIDATION violation")
	}
	if p.ReadyForInvoice {
		t.Error("ReadyForInvoice = true, want false")
	}
}

// TestRunPOSMissingReceiptAndTerminal mirrors scenario 3: a POS transaction
// missing both the receipt number and terminal id should fail at
// business-rules with two distinct violations.
func TestRunPOSMissingReceiptAndTerminal(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	u := transaction.Universal{
		ID:            "pos-1",
		TenantID:      "tenant-1",
		Amount:        decimal.RequireFromString("2500.00"),
		Currency:      transaction.DefaultCurrency,
		Timestamp:     now.Add(-time.Minute),
		Description:   "retail sale",
		AccountID:     "acct-2",
		ConnectorKind: transaction.KindPOS,
		Metadata:      &transaction.POSMetadata{},
	}

	o := NewOrchestrator("v1")
	p, err := o.Run(context.Background(), u, SmallBusiness(), baseStageContext(now))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	count := 0
	for _, v := range p.Validation.Violations {
		if v.RuleID == "POS_RECEIPT_REQUIRED" || v.RuleID == "POS_TERMINAL_ID_REQUIRED" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 POS violations, got %d (%+v)", count, p.Validation.Violations)
	}
}

// TestRunDuplicateOnFinancialDataFailsPipeline mirrors scenario 4: a
// duplicate match on the financial-data profile must fail the pipeline and
// carry the prior transaction id forward.
func TestRunDuplicateOnFinancialDataFailsPipeline(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	u := transaction.Universal{
		ID:            "bank-2",
		TenantID:      "tenant-1",
		Amount:        decimal.RequireFromString("15000.00"),
		Currency:      transaction.DefaultCurrency,
		Timestamp:     now.Add(-time.Minute),
		Description:   "wire transfer",
		AccountID:     "acct-3",
		ConnectorKind: transaction.KindBanking,
		Metadata: &transaction.BankingMetadata{
			BankReference: "REF-998877",
			AccountNumber: "1234567890",
		},
	}

	sc := baseStageContext(now)
	sc.IsDuplicate = func(ctx context.Context, u transaction.Universal, w time.Duration) (string, bool, error) {
		return "bank-1", true, nil
	}

	o := NewOrchestrator("v1")
	p, err := o.Run(context.Background(), u, FinancialData(), sc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.Status != transaction.StatusFailed {
		t.Fatalf("Status = %v, want failed", p.Status)
	}
	if p.DuplicateMatch != "bank-1" {
		t.Errorf("DuplicateMatch = %q, want bank-1", p.DuplicateMatch)
	}
}

func TestRunTimeoutTreatedAsStageFailure(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	u := erpInvoice("erp-3", "100000.00", "7500.00", now.Add(-time.Hour))

	profile := EnterpriseERP()
	cfg := profile.Stages[StageBusinessRules]
	cfg.Timeout = time.Nanosecond
	profile.Stages[StageBusinessRules] = cfg

	o := NewOrchestrator("v1")
	o.Executors[StageBusinessRules] = slowExecutor{}

	p, err := o.Run(context.Background(), u, profile, baseStageContext(now))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.Status != transaction.StatusFailed {
		t.Fatalf("Status = %v, want failed after business-rules timeout", p.Status)
	}
}

type slowExecutor struct{}

func (slowExecutor) Stage() Stage { return StageBusinessRules }

func (slowExecutor) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	time.Sleep(50 * time.Millisecond)
	return StageResult{Success: true, SubScore: 1.0}, nil
}

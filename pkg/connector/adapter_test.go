package connector

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/pkg/transaction"
)

type fakeClient struct {
	payloads []NativePayload
	err      error
}

func (f *fakeClient) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return f.payloads, f.err
}

func TestERPAdapterToUniversal(t *testing.T) {
	nowUTC = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { nowUTC = func() time.Time { return time.Now().UTC() } }()

	a := &ERPAdapter{SourceSystem: "erp-sap", ConnectorInstance: "erp-sap-1"}
	native := NativePayload{
		Fields: NativeFields{
			"invoice_number": "INV-2024-001",
			"total_amount":   "107500.00",
			"subtotal":       "100000.00",
			"vat_amount":     "7500.00",
			"posting_date":   "2024-06-01T10:00:00Z",
		},
		Raw: json.RawMessage(`{"invoice_number":"INV-2024-001"}`),
	}

	u, err := a.ToUniversal(native)
	if err != nil {
		t.Fatalf("ToUniversal: %v", err)
	}
	if u.ID != "INV-2024-001" {
		t.Errorf("ID = %q", u.ID)
	}
	if u.Currency != "NGN" {
		t.Errorf("Currency = %q, want default NGN", u.Currency)
	}
	if !u.Amount.Equal(mustDecimal("107500.00")) {
		t.Errorf("Amount = %v", u.Amount)
	}
	meta, ok := u.Metadata.(*ERPMetadata)
	if !ok {
		t.Fatalf("Metadata type = %T", u.Metadata)
	}
	if meta.VAT == nil || *meta.VAT != "7500.00" {
		t.Errorf("VAT = %v", meta.VAT)
	}
	if string(u.Provenance.RawPayload) != string(native.Raw) {
		t.Error("raw payload not preserved verbatim")
	}
}

func TestERPAdapterMissingIdentifier(t *testing.T) {
	a := &ERPAdapter{}
	_, err := a.ToUniversal(NativePayload{Fields: NativeFields{}})
	if err == nil {
		t.Error("expected an error for missing identifier")
	}
}

func TestPOSAdapterTimestampFallback(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	nowUTC = func() time.Time { return fixed }
	defer func() { nowUTC = func() time.Time { return time.Now().UTC() } }()

	a := &POSAdapter{}
	u, err := a.ToUniversal(NativePayload{Fields: NativeFields{
		"transaction_id": "TXN1",
		"total":          "5000.00",
		"sale_timestamp": "not-a-timestamp",
	}})
	if err != nil {
		t.Fatalf("ToUniversal: %v", err)
	}
	if !u.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want fallback to %v", u.Timestamp, fixed)
	}
	if len(u.Hints.Notes) == 0 {
		t.Error("expected a processing note recording the timestamp fallback")
	}
}

func TestBankingAdapterMinorUnits(t *testing.T) {
	a := &BankingAdapter{}
	u, err := a.ToUniversal(NativePayload{Fields: NativeFields{
		"transaction_reference": "TXN1",
		"amount":                int64(25000050),
		"account_number":        "0123456789",
	}})
	if err != nil {
		t.Fatalf("ToUniversal: %v", err)
	}
	if !u.Amount.Equal(mustDecimal("250000.50")) {
		t.Errorf("Amount = %v, want 250000.50", u.Amount)
	}
}

func TestFetchAndProcess(t *testing.T) {
	client := &fakeClient{payloads: []NativePayload{
		{Fields: NativeFields{"invoice_number": "INV-1", "total_amount": "1000.00"}},
		{Fields: NativeFields{}}, // missing identifier, should fail
	}}
	a := &ERPAdapter{Client: client}

	calls := 0
	process := func(ctx context.Context, u transaction.Universal) (*transaction.Processed, error) {
		calls++
		return transaction.NewProcessed(u, "v1"), nil
	}

	result, err := FetchAndProcess(context.Background(), a, nil, Paging{}, process)
	if err != nil {
		t.Fatalf("FetchAndProcess: %v", err)
	}
	if result.Stats.Total != 2 || result.Stats.Processed != 1 || result.Stats.Failed != 1 {
		t.Errorf("Stats = %+v", result.Stats)
	}
	if calls != 1 {
		t.Errorf("process called %d times, want 1", calls)
	}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

package transaction

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func sampleUniversal() Universal {
	return Universal{
		ID:          "INV-2024-001",
		TenantID:    "tenant-1",
		Amount:      decimal.RequireFromString("107500.00"),
		Currency:    "NGN",
		Timestamp:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Description: "office supplies",
		ConnectorKind: KindERP,
		Metadata: &ERPMetadata{
			InvoiceNumber: "INV-2024-001",
			Subtotal:      strPtr("100000.00"),
			VAT:           strPtr("7500.00"),
		},
		Provenance: Provenance{
			SourceSystem:      "erp-sap",
			ConnectorInstance: "erp-sap-1",
			IngestedAt:        time.Date(2024, 6, 1, 10, 0, 5, 0, time.UTC),
			RawPayload:        json.RawMessage(`{"raw":"payload"}`),
		},
	}
}

func strPtr(s string) *string { return &s }

func TestRoundTripSerialization(t *testing.T) {
	u := sampleUniversal()

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Universal
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !got.Amount.Equal(u.Amount) {
		t.Errorf("Amount = %v, want %v", got.Amount, u.Amount)
	}
	if got.ID != u.ID || got.TenantID != u.TenantID || got.ConnectorKind != u.ConnectorKind {
		t.Errorf("header fields mismatch: got %+v", got)
	}
	gotMeta, ok := got.Metadata.(*ERPMetadata)
	if !ok {
		t.Fatalf("Metadata type = %T, want *ERPMetadata", got.Metadata)
	}
	wantMeta := u.Metadata.(*ERPMetadata)
	if gotMeta.InvoiceNumber != wantMeta.InvoiceNumber || *gotMeta.VAT != *wantMeta.VAT {
		t.Errorf("metadata mismatch: got %+v, want %+v", gotMeta, wantMeta)
	}
	if string(got.Provenance.RawPayload) != string(u.Provenance.RawPayload) {
		t.Errorf("raw payload mismatch: got %s, want %s", got.Provenance.RawPayload, u.Provenance.RawPayload)
	}
}

func TestValidateEmptyIdentifier(t *testing.T) {
	u := sampleUniversal()
	u.ID = ""
	if err := u.Validate(time.Now()); err == nil {
		t.Error("Validate() with empty id should fail")
	}
}

func TestValidateFutureTimestampBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	u := sampleUniversal()
	u.Timestamp = now.Add(23*time.Hour + 59*time.Minute)
	if err := u.Validate(now); err != nil {
		t.Errorf("23h59m in the future should be accepted: %v", err)
	}

	u.Timestamp = now.Add(25 * time.Hour)
	if err := u.Validate(now); err == nil {
		t.Error("25h in the future should be rejected")
	}
}

func TestValidateLowercaseCurrencyRejected(t *testing.T) {
	u := sampleUniversal()
	u.Currency = "ngn"
	if err := u.Validate(time.Now()); err == nil {
		t.Error("lowercase currency should be rejected")
	}
}

func TestRiskLevelFromScore(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{0.0, RiskLow}, {0.29, RiskLow},
		{0.3, RiskMedium}, {0.59, RiskMedium},
		{0.6, RiskHigh}, {0.84, RiskHigh},
		{0.85, RiskCritical}, {1.0, RiskCritical},
	}
	for _, c := range cases {
		if got := RiskLevelFromScore(c.score); got != c.want {
			t.Errorf("RiskLevelFromScore(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestValidationResultAddViolation(t *testing.T) {
	var v ValidationResult
	v.Valid = true

	v.AddViolation(Violation{RuleID: "DQ_WARN", Severity: SeverityWarning})
	if !v.Valid {
		t.Error("a warning-only violation should not flip Valid to false")
	}

	v.AddViolation(Violation{RuleID: "VAT_RATE_VALIDATION", Severity: SeverityError})
	if v.Valid {
		t.Error("an error violation should flip Valid to false")
	}
	if !v.HasAtLeast(SeverityError) {
		t.Error("HasAtLeast(SeverityError) should be true")
	}
}

func TestExactFingerprintStability(t *testing.T) {
	u := sampleUniversal()
	if u.ExactFingerprint() != u.ExactFingerprint() {
		t.Error("ExactFingerprint should be stable")
	}
	other := sampleUniversal()
	other.ID = "INV-2024-002"
	if u.ExactFingerprint() == other.ExactFingerprint() {
		t.Error("different ids should fingerprint differently")
	}
}

func TestFuzzyFingerprintBucketing(t *testing.T) {
	u := sampleUniversal()
	other := sampleUniversal()
	other.Timestamp = u.Timestamp.Add(10 * time.Minute)

	if u.FuzzyFingerprint(24*time.Hour) != other.FuzzyFingerprint(24*time.Hour) {
		t.Error("transactions 10 minutes apart should share a 24h fuzzy bucket")
	}
}

// Package transaction defines the Universal Transaction and Processed
// Transaction records that flow through every pipeline stage (C1 and the
// output half of §3).
package transaction

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/internal/apperror"
)

// DefaultCurrency is substituted when a connector supplies none.
const DefaultCurrency = "NGN"

// FutureTolerance is the maximum amount a transaction timestamp may sit in
// the future and still be accepted by validation (§4.3.1).
const FutureTolerance = 24 * time.Hour

// Hints are adapter-supplied directives. The duplicate-detection and
// pattern-matching stages read their skip flags; ForceManualReview is
// carried on the record but no stage or the orchestrator reads it. A closed
// struct, not an open map.
type Hints struct {
	SkipDuplicateCheck bool     `json:"skip_duplicate_check,omitempty"`
	ForceManualReview  bool     `json:"force_manual_review,omitempty"`
	SkipPatternMatch   bool     `json:"skip_pattern_match,omitempty"`
	Notes              []string `json:"notes,omitempty"`
}

// Provenance records where a transaction came from and preserves the
// vendor's payload verbatim for audit and round-trip.
type Provenance struct {
	SourceSystem      string          `json:"source_system"`
	ConnectorInstance string          `json:"connector_instance"`
	IngestedAt        time.Time       `json:"ingested_at"`
	RawPayload        json.RawMessage `json:"raw_payload"`
}

// Universal is the canonical in-memory record consumed by every stage (C1).
type Universal struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`

	AccountID       string `json:"account_id,omitempty"`
	ExternalRef     string `json:"external_ref,omitempty"`
	CategoryTag     string `json:"category_tag,omitempty"`

	ConnectorKind ConnectorKind `json:"connector_kind"`
	Metadata      Metadata      `json:"-"`

	Provenance Provenance `json:"provenance"`
	Hints      Hints      `json:"hints,omitempty"`
}

// universalWire is the JSON wire shape: identical to Universal except
// Metadata is carried through its discriminated envelope.
type universalWire struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenant_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency"`
	Timestamp     time.Time        `json:"timestamp"`
	Description   string           `json:"description"`
	AccountID     string           `json:"account_id,omitempty"`
	ExternalRef   string           `json:"external_ref,omitempty"`
	CategoryTag   string           `json:"category_tag,omitempty"`
	ConnectorKind ConnectorKind    `json:"connector_kind"`
	Metadata      metadataEnvelope `json:"metadata"`
	Provenance    Provenance       `json:"provenance"`
	Hints         Hints            `json:"hints,omitempty"`
}

func (u Universal) MarshalJSON() ([]byte, error) {
	env, err := marshalMetadata(u.Metadata)
	if err != nil {
		return nil, err
	}
	w := universalWire{
		ID: u.ID, TenantID: u.TenantID, Amount: u.Amount, Currency: u.Currency,
		Timestamp: u.Timestamp, Description: u.Description, AccountID: u.AccountID,
		ExternalRef: u.ExternalRef, CategoryTag: u.CategoryTag, ConnectorKind: u.ConnectorKind,
		Metadata: env, Provenance: u.Provenance, Hints: u.Hints,
	}
	return json.Marshal(w)
}

func (u *Universal) UnmarshalJSON(data []byte) error {
	var w universalWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	meta, err := unmarshalMetadata(w.Metadata)
	if err != nil {
		return err
	}
	*u = Universal{
		ID: w.ID, TenantID: w.TenantID, Amount: w.Amount, Currency: w.Currency,
		Timestamp: w.Timestamp, Description: w.Description, AccountID: w.AccountID,
		ExternalRef: w.ExternalRef, CategoryTag: w.CategoryTag, ConnectorKind: w.ConnectorKind,
		Metadata: meta, Provenance: w.Provenance, Hints: w.Hints,
	}
	return nil
}

// Validate checks the structural invariants from §3. It does not perform
// business-rule or connector-specific validation; that is stage 1's job
// (§4.3.1). Stage 1 runs its own checks and does not call Validate.
func (u Universal) Validate(now time.Time) error {
	if u.ID == "" {
		return apperror.New(apperror.KindValidation, "transaction identifier must not be empty")
	}
	if u.TenantID == "" {
		return apperror.New(apperror.KindValidation, "transaction must carry a tenant id")
	}
	if u.Currency != "" && u.Currency != upper(u.Currency) {
		return apperror.New(apperror.KindValidation, "currency must be uppercase ISO 4217")
	}
	if u.Timestamp.After(now.Add(FutureTolerance)) {
		return apperror.Newf(apperror.KindValidation, "timestamp %s is more than 24h in the future", u.Timestamp)
	}
	return nil
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

var _ fmt.Stringer = Universal{}

func (u Universal) String() string {
	return fmt.Sprintf("Universal{id=%s tenant=%s amount=%s %s kind=%s}", u.ID, u.TenantID, u.Amount.StringFixed(2), u.Currency, u.ConnectorKind)
}

package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// BankingAdapter converts bank-feed payloads (NIP, RTGS, USSD) into
// Universal Transactions. Banking is the financial-data profile's primary
// connector kind and carries the tightest validation (§4.3.1, §4.3.4).
type BankingAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *BankingAdapter) Kind() transaction.ConnectorKind { return transaction.KindBanking }

func (a *BankingAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *BankingAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "transaction_reference", "bank_reference", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("banking payload missing a transaction reference")
	}

	amount, _ := PickAmount(f, "amount", "amount_minor")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "value_date", "timestamp")

	description := PickString(f, "narration", "description")
	if description == "" {
		description = DefaultDescription("banking", id)
	}

	var notes []string
	if fellBack {
		notes = append(notes, "timestamp fallback to ingestion time: source field unparseable")
	}

	return transaction.Universal{
		ID:          id,
		Amount:      amount,
		Currency:    PickCurrency(f, "currency"),
		Timestamp:   ts,
		Description: description,
		AccountID:   PickString(f, "account_number"),
		ConnectorKind: transaction.KindBanking,
		Metadata: &BankingMetadata{
			BankReference: PickString(f, "bank_reference", "transaction_reference"),
			AccountNumber: PickString(f, "account_number"),
			BankCode:      PickString(f, "bank_code"),
			Channel:       PickString(f, "channel"),
		},
		Provenance: transaction.Provenance{
			SourceSystem:      a.SourceSystem,
			ConnectorInstance: a.ConnectorInstance,
			IngestedAt:        now,
			RawPayload:        native.Raw,
		},
		Hints: transaction.Hints{Notes: notes},
	}, nil
}

func (a *BankingAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"banking_channel": PickString(native.Fields, "channel"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

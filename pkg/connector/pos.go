package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// POSAdapter converts point-of-sale terminal payloads (e.g. Square,
// retail POS) into Universal Transactions.
type POSAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *POSAdapter) Kind() transaction.ConnectorKind { return transaction.KindPOS }

func (a *POSAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *POSAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "transaction_id", "receipt_number", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("pos payload missing a transaction identifier")
	}

	amount, _ := PickAmount(f, "total", "amount", "amount_minor")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "sale_timestamp", "timestamp")

	description := PickString(f, "description", "basket_summary")
	if description == "" {
		description = DefaultDescription("pos", id)
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
		ConnectorKind: transaction.KindPOS,
		Metadata: &POSMetadata{
			ReceiptNumber: PickString(f, "receipt_number"),
			TerminalID:    PickString(f, "terminal_id"),
			CashierID:     PickString(f, "cashier_id"),
			StoreLocation: PickString(f, "store_location"),
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

func (a *POSAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"pos_store_location": PickString(native.Fields, "store_location"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

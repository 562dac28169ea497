package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// EcommerceAdapter converts e-commerce order payloads into Universal
// Transactions.
type EcommerceAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *EcommerceAdapter) Kind() transaction.ConnectorKind { return transaction.KindEcommerce }

func (a *EcommerceAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *EcommerceAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "order_id", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("ecommerce payload missing an order identifier")
	}

	amount, _ := PickAmount(f, "total", "grand_total", "amount_minor")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "order_date", "timestamp")

	description := PickString(f, "description", "line_items_summary")
	if description == "" {
		description = DefaultDescription("ecommerce", id)
	}

	var notes []string
	if fellBack {
		notes = append(notes, "timestamp fallback to ingestion time: source field unparseable")
	}

	isPhysical, _ := f["is_physical_goods"].(bool)

	return transaction.Universal{
		ID:          id,
		Amount:      amount,
		Currency:    PickCurrency(f, "currency"),
		Timestamp:   ts,
		Description: description,
		ConnectorKind: transaction.KindEcommerce,
		Metadata: &EcommerceMetadata{
			OrderID:         id,
			IsPhysicalGoods: isPhysical,
			ShippingAddress: PickString(f, "shipping_address"),
			Marketplace:     PickString(f, "marketplace", "channel"),
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

func (a *EcommerceAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"ecommerce_marketplace": PickString(native.Fields, "marketplace", "channel"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

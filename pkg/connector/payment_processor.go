package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// PaymentProcessorAdapter converts payment-gateway settlement payloads
// (e.g. Paystack, Flutterwave) into Universal Transactions.
type PaymentProcessorAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *PaymentProcessorAdapter) Kind() transaction.ConnectorKind {
	return transaction.KindPaymentProcessor
}

func (a *PaymentProcessorAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *PaymentProcessorAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "processor_reference", "transaction_id", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("payment processor payload missing a reference")
	}

	amount, _ := PickAmount(f, "amount", "amount_minor")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "settled_at", "timestamp")

	description := PickString(f, "description", "narration")
	if description == "" {
		description = DefaultDescription("payment_processor", id)
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
		ConnectorKind: transaction.KindPaymentProcessor,
		Metadata: &transaction.PaymentProcessorMetadata{
			ProcessorRef:  id,
			PaymentMethod: PickString(f, "payment_method", "channel"),
			SettlementID:  PickString(f, "settlement_id"),
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

func (a *PaymentProcessorAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"payment_method": PickString(native.Fields, "payment_method", "channel"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

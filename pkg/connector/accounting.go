package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// AccountingAdapter converts general-ledger journal-entry payloads (e.g.
// QuickBooks, Xero) into Universal Transactions.
type AccountingAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *AccountingAdapter) Kind() transaction.ConnectorKind { return transaction.KindAccounting }

func (a *AccountingAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *AccountingAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "journal_ref", "entry_id", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("accounting payload missing a journal reference")
	}

	amount, _ := PickAmount(f, "amount", "amount_minor")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "entry_date", "timestamp")

	description := PickString(f, "memo", "description")
	if description == "" {
		description = DefaultDescription("accounting", id)
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
		ConnectorKind: transaction.KindAccounting,
		Metadata: &transaction.AccountingMetadata{
			DebitAccount:  PickString(f, "debit_account"),
			CreditAccount: PickString(f, "credit_account"),
			JournalRef:    id,
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

func (a *AccountingAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"accounting_debit_account":  PickString(native.Fields, "debit_account"),
		"accounting_credit_account": PickString(native.Fields, "credit_account"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

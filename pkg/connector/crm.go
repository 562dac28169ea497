package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// CRMAdapter converts CRM payloads (e.g. Salesforce, HubSpot) into
// Universal Transactions, typically for closed-won opportunities.
type CRMAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *CRMAdapter) Kind() transaction.ConnectorKind { return transaction.KindCRM }

func (a *CRMAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *CRMAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "opportunity_id", "deal_id", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("crm payload missing an opportunity identifier")
	}

	amount, _ := PickAmount(f, "amount", "deal_value")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "close_date", "timestamp")

	description := PickString(f, "description", "deal_name")
	if description == "" {
		description = DefaultDescription("crm", id)
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
		ConnectorKind: transaction.KindCRM,
		Metadata: &CRMMetadata{
			OpportunityID: id,
			AccountName:   PickString(f, "account_name", "company_name"),
			ContactEmail:  PickString(f, "contact_email", "email"),
			ContactPhone:  PickString(f, "contact_phone", "phone"),
			Pipeline:      PickString(f, "pipeline", "stage"),
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

func (a *CRMAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"crm_pipeline": PickString(native.Fields, "pipeline", "stage"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

package connector

import (
	"context"
	"fmt"

	"github.com/taxpoynt/core/pkg/transaction"
)

// ERPAdapter converts ERP vendor payloads (e.g. SAP, Oracle, Odoo) into
// Universal Transactions.
type ERPAdapter struct {
	Client            VendorClient
	SourceSystem      string
	ConnectorInstance string
}

func (a *ERPAdapter) Kind() transaction.ConnectorKind { return transaction.KindERP }

func (a *ERPAdapter) Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error) {
	return a.Client.Fetch(ctx, filters, paging)
}

func (a *ERPAdapter) ToUniversal(native NativePayload) (transaction.Universal, error) {
	f := native.Fields
	id := PickString(f, "invoice_number", "document_number", "id")
	if id == "" {
		return transaction.Universal{}, fmt.Errorf("erp payload missing an invoice/document identifier")
	}

	amount, _ := PickAmount(f, "total_amount", "amount", "amount_minor")
	now := nowUTC()
	ts, fellBack := PickTimestamp(f, now, "posting_date", "document_date", "timestamp")

	description := PickString(f, "description", "memo", "line_item_description")
	if description == "" {
		description = DefaultDescription("erp", id)
	}

	var notes []string
	if fellBack {
		notes = append(notes, "timestamp fallback to ingestion time: source field unparseable")
	}

	meta := &ERPMetadata{
		InvoiceNumber:    id,
		PurchaseOrder:    PickString(f, "purchase_order", "po_number"),
		CostCenter:       PickString(f, "cost_center"),
		VendorOrCustomer: PickString(f, "customer_name", "vendor_name"),
	}
	if subtotal, ok := PickAmount(f, "subtotal", "net_amount"); ok {
		s := subtotal.StringFixed(2)
		meta.Subtotal = &s
	}
	if vat, ok := PickAmount(f, "vat_amount", "tax_amount"); ok {
		v := vat.StringFixed(2)
		meta.VAT = &v
	}

	return transaction.Universal{
		ID:            id,
		Amount:        amount,
		Currency:      PickCurrency(f, "currency"),
		Timestamp:     ts,
		Description:   description,
		AccountID:     PickString(f, "account_id", "gl_account"),
		ExternalRef:   PickString(f, "external_reference"),
		ConnectorKind: transaction.KindERP,
		Metadata:      meta,
		Provenance: transaction.Provenance{
			SourceSystem:      a.SourceSystem,
			ConnectorInstance: a.ConnectorInstance,
			IngestedAt:        now,
			RawPayload:        native.Raw,
		},
		Hints: transaction.Hints{Notes: notes},
	}, nil
}

func (a *ERPAdapter) EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error) {
	insight := map[string]any{
		"erp_cost_center": PickString(native.Fields, "cost_center"),
		"erp_po_number":   PickString(native.Fields, "purchase_order", "po_number"),
	}
	return EnrichedResult{Processed: processed, VendorInsight: insight}, nil
}

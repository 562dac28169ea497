package transaction

import (
	"encoding/json"
	"fmt"
)

// ConnectorKind enumerates the closed set of external systems this core
// ingests from. It is a closed sum type, not an open string bag, so every
// connector payload dispatches statically instead of by runtime lookup.
type ConnectorKind string

const (
	KindERP             ConnectorKind = "erp"
	KindPOS             ConnectorKind = "pos"
	KindCRM             ConnectorKind = "crm"
	KindEcommerce       ConnectorKind = "ecommerce"
	KindBanking         ConnectorKind = "banking"
	KindAccounting      ConnectorKind = "accounting"
	KindPaymentProcessor ConnectorKind = "payment_processor"
)

// Metadata is the per-kind connector payload carried alongside the shared
// Universal Transaction header. Exactly one concrete type is populated per
// transaction, matching its ConnectorKind.
type Metadata interface {
	Kind() ConnectorKind
}

type ERPMetadata struct {
	InvoiceNumber    string  `json:"invoice_number"`
	PurchaseOrder    string  `json:"purchase_order,omitempty"`
	Subtotal         *string `json:"subtotal,omitempty"` // decimal string, parsed by caller
	VAT              *string `json:"vat,omitempty"`
	CostCenter       string  `json:"cost_center,omitempty"`
	VendorOrCustomer string  `json:"vendor_or_customer,omitempty"`
}

func (ERPMetadata) Kind() ConnectorKind { return KindERP }

type POSMetadata struct {
	ReceiptNumber string `json:"receipt_number"`
	TerminalID    string `json:"terminal_id"`
	CashierID     string `json:"cashier_id,omitempty"`
	StoreLocation string `json:"store_location,omitempty"`
}

func (POSMetadata) Kind() ConnectorKind { return KindPOS }

type CRMMetadata struct {
	OpportunityID string `json:"opportunity_id,omitempty"`
	AccountName   string `json:"account_name"`
	ContactEmail  string `json:"contact_email,omitempty"`
	ContactPhone  string `json:"contact_phone,omitempty"`
	Pipeline      string `json:"pipeline,omitempty"`
}

func (CRMMetadata) Kind() ConnectorKind { return KindCRM }

type EcommerceMetadata struct {
	OrderID         string `json:"order_id"`
	IsPhysicalGoods bool   `json:"is_physical_goods"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	Marketplace     string `json:"marketplace,omitempty"`
}

func (EcommerceMetadata) Kind() ConnectorKind { return KindEcommerce }

type BankingMetadata struct {
	BankReference string `json:"bank_reference"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code,omitempty"`
	Channel       string `json:"channel,omitempty"` // e.g. NIP, RTGS, USSD
}

func (BankingMetadata) Kind() ConnectorKind { return KindBanking }

type AccountingMetadata struct {
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	JournalRef    string `json:"journal_ref,omitempty"`
}

func (AccountingMetadata) Kind() ConnectorKind { return KindAccounting }

type PaymentProcessorMetadata struct {
	ProcessorRef string `json:"processor_ref"`
	PaymentMethod string `json:"payment_method,omitempty"`
	SettlementID string `json:"settlement_id,omitempty"`
}

func (PaymentProcessorMetadata) Kind() ConnectorKind { return KindPaymentProcessor }

// metadataEnvelope is the wire shape used to round-trip the Metadata
// interface through JSON: a kind discriminator plus the raw payload.
type metadataEnvelope struct {
	Kind    ConnectorKind   `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func marshalMetadata(m Metadata) (metadataEnvelope, error) {
	if m == nil {
		return metadataEnvelope{}, nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return metadataEnvelope{}, fmt.Errorf("marshal connector metadata: %w", err)
	}
	return metadataEnvelope{Kind: m.Kind(), Payload: payload}, nil
}

func unmarshalMetadata(env metadataEnvelope) (Metadata, error) {
	if env.Kind == "" {
		return nil, nil
	}
	var m Metadata
	switch env.Kind {
	case KindERP:
		m = &ERPMetadata{}
	case KindPOS:
		m = &POSMetadata{}
	case KindCRM:
		m = &CRMMetadata{}
	case KindEcommerce:
		m = &EcommerceMetadata{}
	case KindBanking:
		m = &BankingMetadata{}
	case KindAccounting:
		m = &AccountingMetadata{}
	case KindPaymentProcessor:
		m = &PaymentProcessorMetadata{}
	default:
		return nil, fmt.Errorf("unknown connector kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, m); err != nil {
		return nil, fmt.Errorf("unmarshal connector metadata: %w", err)
	}
	return m, nil
}

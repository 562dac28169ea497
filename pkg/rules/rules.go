// Package rules implements the static Nigerian business-rule table and
// evaluation engine (§4.3.4). The rule set is data, not code: each rule is
// a table row with an applicability predicate, keeping it extensible
// without touching the evaluator, per DESIGN NOTES §9 ("ad-hoc
// configuration dictionaries" -> typed, table-driven instead).
package rules

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/pkg/transaction"
)

// VATRate is Nigeria's value-added tax rate at spec time (spec §9 Open
// Question: should become configurable with effective-date windows; left
// as a named constant until that decision is made).
var VATRate = decimal.RequireFromString("0.075")

// vatTolerance is the absolute deviation §4.3.4's VAT rule allows.
var vatTolerance = decimal.RequireFromString("0.01")

// TINThreshold is the amount at or above which a TIN becomes mandatory.
var TINThreshold = decimal.RequireFromString("10000.00")

// LargeCashThreshold triggers the large-cash warning rule.
var LargeCashThreshold = decimal.RequireFromString("500000.00")

var invoiceNumberPattern = regexp.MustCompile(`^[A-Z]*-?\d{4}[-/]?\d{3,6}$`)
var accountNumberPattern = regexp.MustCompile(`^\d{10}$`)

// Category is a rule's domain classification.
type Category string

const (
	CategoryTax                Category = "tax"
	CategoryAccounting         Category = "accounting"
	CategoryDataQuality        Category = "data-quality"
	CategoryConsumerProtection Category = "consumer-protection"
	CategoryFinancialRegs      Category = "financial-regs"
	CategorySector             Category = "sector"
	CategoryAntiFraud          Category = "anti-fraud"
)

// Input is the evaluation context a rule's predicate and check run
// against: the transaction plus the tenant's default currency and enabled
// compliance regimes, since some rules (sector levies) are regime-gated.
type Input struct {
	Now              time.Time
	TenantCurrency   string
	EnabledRegimes   map[string]bool
}

// Rule is one static table entry. Applicable reports whether the rule
// pertains to this transaction's connector kind; Check runs only when
// Applicable returns true and returns the violation(s) it finds, if any.
type Rule struct {
	ID          string
	Category    Category
	Severity    transaction.Severity
	Description string
	Applicable  func(u transaction.Universal) bool
	Check       func(u transaction.Universal, in Input) []transaction.Violation
}

func violation(ruleID string, cat Category, sev transaction.Severity, field, current, expected, hint string) transaction.Violation {
	return transaction.Violation{
		RuleID: ruleID, Category: string(cat), Severity: sev,
		Field: field, CurrentValue: current, ExpectedValue: expected, RemediationHint: hint,
	}
}

// Table is the static rule set evaluated by Evaluate. Order matters only
// for Violations slice ordering, not for correctness.
var Table = []Rule{
	{
		ID: "VAT_RATE_VALIDATION", Category: CategoryTax, Severity: transaction.SeverityError,
		Description: "VAT must equal subtotal * 7.5% within a cent",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindERP },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.ERPMetadata)
			if !ok || meta.Subtotal == nil || meta.VAT == nil {
				return nil
			}
			subtotal, err1 := decimal.NewFromString(*meta.Subtotal)
			vat, err2 := decimal.NewFromString(*meta.VAT)
			if err1 != nil || err2 != nil {
				return nil
			}
			expected := subtotal.Mul(VATRate)
			if vat.Sub(expected).Abs().GreaterThan(vatTolerance) {
				return []transaction.Violation{violation(
					"VAT_RATE_VALIDATION", CategoryTax, transaction.SeverityError,
					"vat", vat.StringFixed(2), expected.StringFixed(2),
					"recompute VAT as 7.5% of the subtotal",
				)}
			}
			return nil
		},
	},
	{
		ID: "TIN_PRESENCE", Category: CategoryTax, Severity: transaction.SeverityCritical,
		Description: "TIN required for transactions at or above NGN 10,000",
		Applicable:  func(u transaction.Universal) bool { return true },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			if u.Amount.LessThan(TINThreshold) {
				return nil
			}
			var tin string
			switch meta := u.Metadata.(type) {
			case *transaction.ERPMetadata:
				tin = meta.VendorOrCustomer
			}
			if tin != "" {
				return nil
			}
			return []transaction.Violation{violation(
				"TIN_PRESENCE", CategoryTax, transaction.SeverityCritical,
				"tin", "", "non-empty",
				"attach the counterparty's TIN before invoicing",
			)}
		},
	},
	{
		ID: "ERP_INVOICE_NUMBERING", Category: CategoryDataQuality, Severity: transaction.SeverityError,
		Description: "ERP invoice numbers must match the canonical numbering pattern",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindERP },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.ERPMetadata)
			if !ok || invoiceNumberPattern.MatchString(meta.InvoiceNumber) {
				return nil
			}
			return []transaction.Violation{violation(
				"ERP_INVOICE_NUMBERING", CategoryDataQuality, transaction.SeverityError,
				"invoice_number", meta.InvoiceNumber, `^[A-Z]*-?\d{4}[-/]?\d{3,6}$`,
				"reissue the invoice number in the canonical format",
			)}
		},
	},
	{
		ID: "POS_RECEIPT_REQUIRED", Category: CategoryDataQuality, Severity: transaction.SeverityError,
		Description: "POS transactions must carry a receipt number",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindPOS },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.POSMetadata)
			if !ok || meta.ReceiptNumber != "" {
				return nil
			}
			return []transaction.Violation{violation(
				"POS_RECEIPT_REQUIRED", CategoryDataQuality, transaction.SeverityError,
				"receipt_number", "", "non-empty",
				"attach the POS receipt number",
			)}
		},
	},
	{
		ID: "POS_TERMINAL_ID_REQUIRED", Category: CategoryDataQuality, Severity: transaction.SeverityError,
		Description: "POS transactions must carry a terminal id",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindPOS },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.POSMetadata)
			if !ok || meta.TerminalID != "" {
				return nil
			}
			return []transaction.Violation{violation(
				"POS_TERMINAL_ID_REQUIRED", CategoryDataQuality, transaction.SeverityError,
				"terminal_id", "", "non-empty",
				"attach the POS terminal id",
			)}
		},
	},
	{
		ID: "ECOMMERCE_SHIPPING_ADDRESS", Category: CategoryConsumerProtection, Severity: transaction.SeverityError,
		Description: "physical-goods e-commerce orders must carry a shipping address",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindEcommerce },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.EcommerceMetadata)
			if !ok || !meta.IsPhysicalGoods || meta.ShippingAddress != "" {
				return nil
			}
			return []transaction.Violation{violation(
				"ECOMMERCE_SHIPPING_ADDRESS", CategoryConsumerProtection, transaction.SeverityError,
				"shipping_address", "", "non-empty",
				"attach the shipping address for physical goods",
			)}
		},
	},
	{
		ID: "ACCOUNTING_DOUBLE_ENTRY", Category: CategoryAccounting, Severity: transaction.SeverityError,
		Description: "accounting journal entries must set both debit and credit accounts",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindAccounting },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.AccountingMetadata)
			if !ok || (meta.DebitAccount != "" && meta.CreditAccount != "") {
				return nil
			}
			return []transaction.Violation{violation(
				"ACCOUNTING_DOUBLE_ENTRY", CategoryAccounting, transaction.SeverityError,
				"debit_account/credit_account", "", "both non-empty",
				"post both sides of the journal entry",
			)}
		},
	},
	{
		ID: "BANKING_REFERENCE_AND_ACCOUNT", Category: CategoryFinancialRegs, Severity: transaction.SeverityError,
		Description: "banking transactions must carry a reference and a 10-digit account number",
		Applicable:  func(u transaction.Universal) bool { return u.ConnectorKind == transaction.KindBanking },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			meta, ok := u.Metadata.(*transaction.BankingMetadata)
			if !ok {
				return nil
			}
			var out []transaction.Violation
			if meta.BankReference == "" {
				out = append(out, violation(
					"BANKING_REFERENCE_AND_ACCOUNT", CategoryFinancialRegs, transaction.SeverityError,
					"bank_reference", "", "non-empty", "attach the bank reference",
				))
			}
			if !accountNumberPattern.MatchString(meta.AccountNumber) {
				out = append(out, violation(
					"BANKING_REFERENCE_AND_ACCOUNT", CategoryFinancialRegs, transaction.SeverityError,
					"account_number", meta.AccountNumber, "10 digits", "correct the account number format",
				))
			}
			return out
		},
	},
	{
		ID: "TIMESTAMP_NOT_FUTURE", Category: CategoryDataQuality, Severity: transaction.SeverityError,
		Description: "transaction timestamp must not be in the future",
		Applicable:  func(u transaction.Universal) bool { return true },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			if !u.Timestamp.After(in.Now) {
				return nil
			}
			return []transaction.Violation{violation(
				"TIMESTAMP_NOT_FUTURE", CategoryDataQuality, transaction.SeverityError,
				"timestamp", u.Timestamp.String(), in.Now.String(),
				"correct the source timestamp",
			)}
		},
	},
	{
		ID: "FOREIGN_CURRENCY_REVIEW", Category: CategoryFinancialRegs, Severity: transaction.SeverityWarning,
		Description: "non-NGN transactions are flagged for CBN-compliance review",
		Applicable:  func(u transaction.Universal) bool { return true },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			base := in.TenantCurrency
			if base == "" {
				base = transaction.DefaultCurrency
			}
			if u.Currency == base {
				return nil
			}
			return []transaction.Violation{violation(
				"FOREIGN_CURRENCY_REVIEW", CategoryFinancialRegs, transaction.SeverityWarning,
				"currency", u.Currency, base,
				"mark for CBN-compliance review",
			)}
		},
	},
	{
		ID: "LARGE_CASH_WARNING", Category: CategoryAntiFraud, Severity: transaction.SeverityWarning,
		Description: "cash transactions above NGN 500,000 are flagged for review",
		Applicable:  func(u transaction.Universal) bool { return true },
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			if u.Amount.LessThanOrEqual(LargeCashThreshold) {
				return nil
			}
			return []transaction.Violation{violation(
				"LARGE_CASH_WARNING", CategoryAntiFraud, transaction.SeverityWarning,
				"amount", u.Amount.StringFixed(2), LargeCashThreshold.StringFixed(2),
				"review for structuring/AML concerns",
			)}
		},
	},
	{
		ID: "TELECOM_EXCISE_LEVY", Category: CategorySector, Severity: transaction.SeverityWarning,
		Description: "telecom sector excise duty applies when the tenant's regime list enables it",
		Applicable: func(u transaction.Universal) bool {
			return u.ConnectorKind == transaction.KindPaymentProcessor
		},
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			if !in.EnabledRegimes["telecom-excise"] {
				return nil
			}
			return []transaction.Violation{violation(
				"TELECOM_EXCISE_LEVY", CategorySector, transaction.SeverityWarning,
				"", "", "",
				"apply telecom sector excise duty per tenant regime configuration",
			)}
		},
	},
	{
		ID: "INSURANCE_PREMIUM_LEVY", Category: CategorySector, Severity: transaction.SeverityWarning,
		Description: "insurance premium levy applies when the tenant's regime list enables it",
		Applicable: func(u transaction.Universal) bool {
			return u.ConnectorKind == transaction.KindAccounting || u.ConnectorKind == transaction.KindERP
		},
		Check: func(u transaction.Universal, in Input) []transaction.Violation {
			if !in.EnabledRegimes["insurance-premium-levy"] {
				return nil
			}
			return []transaction.Violation{violation(
				"INSURANCE_PREMIUM_LEVY", CategorySector, transaction.SeverityWarning,
				"", "", "",
				"apply insurance premium levy per tenant regime configuration",
			)}
		},
	},
}

// Evaluate runs every applicable rule in Table against u and returns the
// accumulated violations (§4.3.4).
func Evaluate(u transaction.Universal, in Input) []transaction.Violation {
	var out []transaction.Violation
	for _, r := range Table {
		if !r.Applicable(u) {
			continue
		}
		out = append(out, r.Check(u, in)...)
	}
	return out
}

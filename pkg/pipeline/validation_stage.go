package pipeline

import (
	"context"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/pkg/transaction"
)

var bankAccountDigits = regexp.MustCompile(`^\d{10}$`)

// ValidationStage implements §4.3.1: structural checks on the Universal
// Transaction plus, for the financial-data profile, bank-reference and
// account-number format checks.
type ValidationStage struct{}

func (ValidationStage) Stage() Stage { return StageValidation }

func (ValidationStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	var violations []transaction.Violation

	if p.ID == "" {
		violations = append(violations, errViolation("IDENTIFIER_REQUIRED", "id", "", "non-empty"))
	}
	if !p.Amount.GreaterThan(decimal.Zero) {
		violations = append(violations, errViolation("AMOUNT_POSITIVE", "amount", p.Amount.StringFixed(2), "> 0"))
	}
	if p.Currency == "" {
		violations = append(violations, errViolation("CURRENCY_REQUIRED", "currency", "", transaction.DefaultCurrency))
	}
	if p.Description == "" {
		violations = append(violations, warnViolation("DESCRIPTION_RECOMMENDED", "description", "", "non-empty"))
	}
	if p.Timestamp.After(sc.Now.Add(transaction.FutureTolerance)) {
		violations = append(violations, errViolation("TIMESTAMP_FUTURE", "timestamp", p.Timestamp.String(), sc.Now.String()))
	} else if p.Timestamp.After(sc.Now) {
		violations = append(violations, warnViolation("TIMESTAMP_NEAR_FUTURE", "timestamp", p.Timestamp.String(), sc.Now.String()))
	}

	if sc.Profile.Tag == ProfileFinancialData {
		meta, ok := p.Metadata.(*transaction.BankingMetadata)
		if !ok {
			violations = append(violations, errViolation("BANK_METADATA_REQUIRED", "metadata", "", "banking metadata"))
		} else {
			if meta.BankReference == "" {
				violations = append(violations, errViolation("BANK_REFERENCE_REQUIRED", "bank_reference", "", "non-empty"))
			}
			if !bankAccountDigits.MatchString(meta.AccountNumber) {
				violations = append(violations, errViolation("BANK_ACCOUNT_FORMAT", "account_number", meta.AccountNumber, "10 digits"))
			}
		}
	}

	success := !hasAtLeast(violations, transaction.SeverityError)
	return StageResult{
		Success:    success,
		Duration:   0,
		Violations: violations,
		SubScore:   subScoreFor(violations),
	}, nil
}

func hasAtLeast(violations []transaction.Violation, sev transaction.Severity) bool {
	for _, v := range violations {
		if v.Severity.AtLeast(sev) {
			return true
		}
	}
	return false
}

// subScoreFor implements §4.3.7's per-stage sub-score rule: 1 for clean, 0.5
// for warnings, 0 for a stage with error-or-worse violations.
func subScoreFor(violations []transaction.Violation) float64 {
	if len(violations) == 0 {
		return 1.0
	}
	if hasAtLeast(violations, transaction.SeverityError) {
		return 0.0
	}
	return 0.5
}

func errViolation(ruleID, field, current, expected string) transaction.Violation {
	return transaction.Violation{RuleID: ruleID, Category: "data-quality", Severity: transaction.SeverityError, Field: field, CurrentValue: current, ExpectedValue: expected}
}

func warnViolation(ruleID, field, current, expected string) transaction.Violation {
	return transaction.Violation{RuleID: ruleID, Category: "data-quality", Severity: transaction.SeverityWarning, Field: field, CurrentValue: current, ExpectedValue: expected}
}

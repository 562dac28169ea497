package pipeline

import (
	"context"
	"time"

	"github.com/taxpoynt/core/pkg/transaction"
)

// fuzzyWindowFor returns the profile-dependent fuzzy duplicate window
// (§4.3.2).
func fuzzyWindowFor(tag ProfileTag) time.Duration {
	switch tag {
	case ProfileEnterpriseERP:
		return 24 * time.Hour
	case ProfileSmallBusiness:
		return 12 * time.Hour
	case ProfileCustomerFacing:
		return 4 * time.Hour
	case ProfileFinancialData:
		return 72 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// DuplicateDetectionStage implements §4.3.2. It delegates the actual index
// lookup to sc.IsDuplicate, which is backed by the persisted
// processed-transaction index (C10); this package stays free of a direct
// database dependency.
type DuplicateDetectionStage struct{}

func (DuplicateDetectionStage) Stage() Stage { return StageDuplicateDetect }

func (DuplicateDetectionStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	if p.Hints.SkipDuplicateCheck {
		return StageResult{Success: true, SubScore: 1.0, Notes: []string{"duplicate check skipped by adapter hint"}}, nil
	}
	if sc.IsDuplicate == nil {
		return StageResult{Success: true, SubScore: 1.0, Notes: []string{"no duplicate index configured"}}, nil
	}

	matchID, exact, err := sc.IsDuplicate(ctx, p.Universal, fuzzyWindowFor(sc.Profile.Tag))
	if err != nil {
		return StageResult{}, err
	}
	if matchID == "" {
		return StageResult{Success: true, SubScore: 1.0}, nil
	}

	kind := "fuzzy"
	if exact {
		kind = "exact"
	}
	isFinancial := sc.Profile.Tag == ProfileFinancialData
	sev := transaction.SeverityWarning
	if isFinancial {
		sev = transaction.SeverityError
	}
	return StageResult{
		Success:     !isFinancial,
		DuplicateOf: matchID,
		SubScore:    0.5,
		Notes:       []string{"duplicate (" + kind + ") match against " + matchID},
		Violations: []transaction.Violation{{
			RuleID: "DUPLICATE_TRANSACTION", Category: "data-quality", Severity: sev,
			Field: "id", CurrentValue: p.ID, ExpectedValue: "unique per (source-system, tenant)",
			RemediationHint: "prior match: " + matchID,
		}},
	}, nil
}

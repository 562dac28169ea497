package pipeline

import (
	"context"

	"github.com/taxpoynt/core/pkg/pattern"
	"github.com/taxpoynt/core/pkg/transaction"
)

// PatternMatchingStage implements §4.3.5: a deterministic description
// classifier with no network or ML calls.
type PatternMatchingStage struct{}

func (PatternMatchingStage) Stage() Stage { return StagePatternMatching }

func (PatternMatchingStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	if p.Hints.SkipPatternMatch {
		return StageResult{Success: true, SubScore: 1.0, Notes: []string{"pattern match skipped by adapter hint"}}, nil
	}

	m := pattern.Classify(p.Description)
	if !m.Matched {
		return StageResult{
			Success:  true,
			SubScore: 0.5,
			Notes:    []string{"no confident category match for description"},
		}, nil
	}

	return StageResult{
		Success:  true,
		SubScore: 1.0,
		Enrichment: transaction.Enrichment{
			PrimaryCategory:  m.Category,
			BusinessPurpose:  m.BusinessPurpose,
			MerchantIdentity: m.MerchantIdentity,
		},
	}, nil
}

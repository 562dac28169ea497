package pipeline

import (
	"context"

	"github.com/taxpoynt/core/pkg/rules"
	"github.com/taxpoynt/core/pkg/transaction"
)

// BusinessRulesStage implements §4.3.4 by evaluating the static Nigerian
// compliance rule table against the transaction. Sector-regime gating and
// tenant currency come from the per-run StageContext, since both are
// tenant configuration, not stage configuration.
type BusinessRulesStage struct{}

func (BusinessRulesStage) Stage() Stage { return StageBusinessRules }

func (BusinessRulesStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	violations := rules.Evaluate(p.Universal, rules.Input{
		Now:            sc.Now,
		TenantCurrency: sc.TenantCurrency,
		EnabledRegimes: sc.EnabledRegimes,
	})
	success := !hasAtLeast(violations, transaction.SeverityError)
	return StageResult{
		Success:    success,
		Violations: violations,
		SubScore:   subScoreFor(violations),
	}, nil
}

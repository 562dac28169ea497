package pipeline

import (
	"context"

	"github.com/taxpoynt/core/pkg/transaction"
)

// FinalizationStage implements §4.3.7: aggregates confidence, sets the
// overall risk level, and decides ready-for-invoice. The terminal status
// itself is set by Orchestrator.Run after the last stage.
type FinalizationStage struct{}

func (FinalizationStage) Stage() Stage { return StageFinalization }

func (FinalizationStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	weights := sc.Profile.ConfidenceWeights
	validationScore := p.ProcessingMeta.StageScores[string(StageValidation)]
	amountScore := p.ProcessingMeta.StageScores[string(StageAmountValidation)]
	patternScore := p.ProcessingMeta.StageScores[string(StagePatternMatching)]

	confidence := weights[0]*validationScore + weights[1]*amountScore + weights[2]*patternScore
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	riskLevel := transaction.MaxRisk(p.ProcessingMeta.RiskLevel, ruleRiskLevel(p.Validation))

	hasCritical := p.Validation.HasAtLeast(transaction.SeverityCritical)
	readyForInvoice := confidence >= sc.Profile.MinConfidence && !hasCritical

	return StageResult{
		Success:  true,
		SubScore: 1.0,
		Notes:    []string{"finalized"},
	}, finalizeResult(p, confidence, riskLevel, readyForInvoice)
}

func ruleRiskLevel(v transaction.ValidationResult) transaction.RiskLevel {
	if v.HasAtLeast(transaction.SeverityCritical) {
		return transaction.RiskCritical
	}
	if v.HasAtLeast(transaction.SeverityError) {
		return transaction.RiskHigh
	}
	if v.HasAtLeast(transaction.SeverityWarning) {
		return transaction.RiskMedium
	}
	return transaction.RiskLow
}

// finalizeResult writes the aggregated confidence, risk level and
// ready-for-invoice decision onto p; it never returns an error itself.
func finalizeResult(p *transaction.Processed, confidence float64, riskLevel transaction.RiskLevel, readyForInvoice bool) error {
	p.ProcessingMeta.Confidence = confidence
	p.ProcessingMeta.RiskLevel = riskLevel
	p.ReadyForInvoice = readyForInvoice
	return nil
}

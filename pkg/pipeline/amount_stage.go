package pipeline

import (
	"context"
	"math"

	"github.com/taxpoynt/core/pkg/transaction"
)

// roundAmountFloorNaira is the amount above which a perfectly round figure
// (no kobo, divisible by 1,000,000) is treated as a roundness fraud signal
// (§4.3.3).
const roundAmountFloorNaira = 1_000_000

// AmountValidationStage implements §4.3.3's fraud signal scoring:
// z-score against the tenant's rolling mean, roundness, velocity,
// time-of-day anomaly, and currency mismatch.
type AmountValidationStage struct{}

func (AmountValidationStage) Stage() Stage { return StageAmountValidation }

func (AmountValidationStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	amountFloat, _ := p.Amount.Float64()
	lowValueThreshold, _ := sc.Profile.LowValueSkipThreshold.Float64()

	if lowValueThreshold > 0 && amountFloat < lowValueThreshold {
		return StageResult{
			Success:        true,
			SubScore:       1.0,
			RiskAssessment: transaction.RiskAssessment{Score: 0, Reasons: []string{"below low-value threshold, skipped"}},
		}, nil
	}

	var reasons []string
	score := 0.0

	mean, stddev, hourlyCount, hourlyMean := 0.0, 0.0, 0, 0.0
	if sc.RollingStats != nil {
		var err error
		mean, stddev, hourlyCount, hourlyMean, err = sc.RollingStats(ctx, sc.TenantID, p.AccountID)
		if err != nil {
			return StageResult{}, err
		}
	}

	if stddev > 0 {
		z := math.Abs(amountFloat-mean) / stddev
		if z >= 3 {
			score += 0.4
			reasons = append(reasons, "amount is a significant outlier versus the tenant's rolling mean")
		} else if z >= 2 {
			score += 0.2
			reasons = append(reasons, "amount deviates from the tenant's rolling mean")
		}
	}

	if amountFloat > roundAmountFloorNaira && math.Mod(amountFloat, 1_000_000) == 0 {
		score += 0.2
		reasons = append(reasons, "amount is a suspiciously round figure above NGN 1,000,000")
	}

	if hourlyMean > 0 && float64(hourlyCount) > hourlyMean*3 {
		score += 0.25
		reasons = append(reasons, "transaction velocity for this account exceeds 3x its historic hourly mean")
	}

	hour := p.Timestamp.UTC().Hour()
	if hour < 5 || hour > 22 {
		score += 0.1
		reasons = append(reasons, "transaction occurred outside typical business hours")
	}

	if p.Currency != "" && p.Currency != transaction.DefaultCurrency {
		score += 0.1
		reasons = append(reasons, "currency differs from the tenant's default")
	}

	if score > 1.0 {
		score = 1.0
	}

	level := transaction.RiskLevelFromScore(score)
	success := true
	if level == transaction.RiskHigh || level == transaction.RiskCritical {
		success = false
	}

	return StageResult{
		Success:        success,
		SubScore:       subScoreForRisk(level),
		RiskAssessment: transaction.RiskAssessment{Score: score, Reasons: reasons},
	}, nil
}

func subScoreForRisk(level transaction.RiskLevel) float64 {
	switch level {
	case transaction.RiskLow:
		return 1.0
	case transaction.RiskMedium:
		return 0.75
	case transaction.RiskHigh:
		return 0.25
	default:
		return 0.0
	}
}

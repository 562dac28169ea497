package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/transaction"
)

// ProfileTag is the closed set of named processing profiles (§3).
type ProfileTag string

const (
	ProfileEnterpriseERP  ProfileTag = "enterprise-erp"
	ProfileSmallBusiness  ProfileTag = "small-business"
	ProfileCustomerFacing ProfileTag = "customer-facing"
	ProfileFinancialData  ProfileTag = "financial-data"
)

// defaultStageTimeout bounds a single stage when a profile does not
// override it. Individual stage builders may set a tighter timeout.
const defaultStageTimeout = 5 * time.Second

// StageConfig is one stage's entry in a Profile's DAG (§3 "Processing
// Profile").
type StageConfig struct {
	Mode          ExecutionMode
	FailureAction FailureAction
	Timeout       time.Duration
	Retries       int
	DependsOn     []Stage
}

// Profile is the per-connector-kind processing configuration (§4.2).
type Profile struct {
	Tag ProfileTag

	Stages map[Stage]StageConfig

	// ConfidenceWeights are [validation, amount, pattern], summing to 1±0.01.
	ConfidenceWeights [3]float64

	MaxTotalTime          time.Duration
	MinConfidence         float64
	MaxRiskTolerance      transaction.RiskLevel
	LowValueSkipThreshold decimal.Decimal
	ComplianceRegimes     []string
	DetailedLogging       bool
}

// Validate checks the invariants a Profile must hold before it is used: the
// confidence weights sum to 1±0.01 (§4.2, testable property 3) and the
// configured stage dependency graph is acyclic (§4.2's "a cycle is a
// configuration error").
func (p Profile) Validate() error {
	sum := p.ConfidenceWeights[0] + p.ConfidenceWeights[1] + p.ConfidenceWeights[2]
	if sum < 0.99 || sum > 1.01 {
		return apperror.Newf(apperror.KindConfig, "profile %s confidence weights sum to %.4f, want 1.0±0.01", p.Tag, sum)
	}
	if _, err := TopoSort(p.Stages); err != nil {
		return apperror.Wrapf(err, apperror.KindConfig, "profile %s has an invalid stage DAG", p.Tag)
	}
	return nil
}

// EnterpriseERP builds the enterprise-erp canonical profile (§4.2).
func EnterpriseERP() Profile {
	return Profile{
		Tag: ProfileEnterpriseERP,
		Stages: map[Stage]StageConfig{
			StageValidation: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout,
			},
			StageDuplicateDetect: {
				Mode: ModeOptional, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageAmountValidation: {
				Mode: ModeSkip, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageBusinessRules: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StagePatternMatching: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageEnrichment: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageBusinessRules, StagePatternMatching},
			},
			StageFinalization: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout,
				DependsOn: []Stage{StageEnrichment, StageAmountValidation, StageDuplicateDetect},
			},
		},
		ConfidenceWeights:     [3]float64{0.3, 0.1, 0.6},
		MaxTotalTime:          180 * time.Second,
		MinConfidence:         0.75,
		MaxRiskTolerance:      transaction.RiskHigh,
		LowValueSkipThreshold: decimal.RequireFromString("50000.00"),
		ComplianceRegimes:     []string{"firs-vat", "firs-wht"},
	}
}

// SmallBusiness builds the small-business canonical profile (§4.2).
func SmallBusiness() Profile {
	return Profile{
		Tag: ProfileSmallBusiness,
		Stages: map[Stage]StageConfig{
			StageValidation: {
				Mode: ModeRequired, FailureAction: ActionRetryWithDefaults,
				Timeout: defaultStageTimeout, Retries: 1,
			},
			StageDuplicateDetect: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageAmountValidation: {
				Mode: ModeOptional, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageBusinessRules: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StagePatternMatching: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageEnrichment: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageBusinessRules, StagePatternMatching},
			},
			StageFinalization: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout,
				DependsOn: []Stage{StageEnrichment, StageAmountValidation, StageDuplicateDetect},
			},
		},
		ConfidenceWeights:     [3]float64{0.4, 0.2, 0.4},
		MaxTotalTime:          90 * time.Second,
		MinConfidence:         0.5,
		MaxRiskTolerance:      transaction.RiskHigh,
		LowValueSkipThreshold: decimal.RequireFromString("20000.00"),
		ComplianceRegimes:     []string{"firs-vat"},
	}
}

// CustomerFacing builds the customer-facing canonical profile (§4.2).
func CustomerFacing() Profile {
	return Profile{
		Tag: ProfileCustomerFacing,
		Stages: map[Stage]StageConfig{
			StageValidation: {
				Mode: ModeRequired, FailureAction: ActionRetryWithDefaults,
				Timeout: defaultStageTimeout, Retries: 2,
			},
			StageDuplicateDetect: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageAmountValidation: {
				Mode: ModeRequired, FailureAction: ActionManualReview,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageBusinessRules: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StagePatternMatching: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageEnrichment: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageBusinessRules, StagePatternMatching},
			},
			StageFinalization: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout,
				DependsOn: []Stage{StageEnrichment, StageAmountValidation, StageDuplicateDetect},
			},
		},
		ConfidenceWeights:     [3]float64{0.4, 0.4, 0.2},
		MaxTotalTime:          60 * time.Second,
		MinConfidence:         0.55,
		MaxRiskTolerance:      transaction.RiskMedium,
		LowValueSkipThreshold: decimal.RequireFromString("5000.00"),
		ComplianceRegimes:     []string{"firs-vat", "consumer-protection"},
	}
}

// FinancialData builds the financial-data canonical profile (§4.2).
func FinancialData() Profile {
	return Profile{
		Tag: ProfileFinancialData,
		Stages: map[Stage]StageConfig{
			StageValidation: {
				Mode: ModeRequired, FailureAction: ActionRetryWithDefaults,
				Timeout: defaultStageTimeout, Retries: 2,
			},
			StageDuplicateDetect: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageAmountValidation: {
				Mode: ModeRequired, FailureAction: ActionManualReview,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageBusinessRules: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StagePatternMatching: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageValidation},
			},
			StageEnrichment: {
				Mode: ModeRequired, FailureAction: ActionContinueWithWarning,
				Timeout: defaultStageTimeout, DependsOn: []Stage{StageBusinessRules, StagePatternMatching},
			},
			StageFinalization: {
				Mode: ModeRequired, FailureAction: ActionFailPipeline,
				Timeout: defaultStageTimeout,
				DependsOn: []Stage{StageEnrichment, StageAmountValidation, StageDuplicateDetect},
			},
		},
		ConfidenceWeights:     [3]float64{0.3, 0.5, 0.2},
		MaxTotalTime:          150 * time.Second,
		MinConfidence:         0.7,
		MaxRiskTolerance:      transaction.RiskMedium,
		LowValueSkipThreshold: decimal.Zero,
		ComplianceRegimes:     []string{"cbn-aml", "firs-vat"},
	}
}

// ByTag returns the canonical profile builder for the given tag.
func ByTag(tag ProfileTag) (Profile, bool) {
	switch tag {
	case ProfileEnterpriseERP:
		return EnterpriseERP(), true
	case ProfileSmallBusiness:
		return SmallBusiness(), true
	case ProfileCustomerFacing:
		return CustomerFacing(), true
	case ProfileFinancialData:
		return FinancialData(), true
	default:
		return Profile{}, false
	}
}

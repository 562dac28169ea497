// Package pipeline implements the staged processing pipeline (C3-C5): the
// canonical processing profiles, the stage dependency DAG, the seven stage
// executors, and the orchestrator that walks the DAG for one transaction.
package pipeline

import (
	"context"
	"time"

	"github.com/taxpoynt/core/pkg/transaction"
)

// Stage identifies one node in the processing DAG. StageRawInput is the
// implicit stage 0 performed by the orchestrator itself (wrapping the
// Universal Transaction into a pending Processed Transaction) and never
// appears as a DAG node with an executor.
type Stage string

const (
	StageRawInput          Stage = "raw-input"
	StageValidation        Stage = "validation"
	StageDuplicateDetect   Stage = "duplicate-detection"
	StageAmountValidation  Stage = "amount-validation"
	StageBusinessRules     Stage = "business-rules"
	StagePatternMatching   Stage = "pattern-matching"
	StageEnrichment        Stage = "enrichment"
	StageFinalization      Stage = "finalization"
)

// CanonicalOrder is the stage enumeration order used to break topological
// sort ties (§4.2).
var CanonicalOrder = []Stage{
	StageValidation,
	StageDuplicateDetect,
	StageAmountValidation,
	StageBusinessRules,
	StagePatternMatching,
	StageEnrichment,
	StageFinalization,
}

// ExecutionMode governs whether a stage's absence or skip affects the DAG.
type ExecutionMode string

const (
	ModeRequired    ExecutionMode = "required"
	ModeOptional    ExecutionMode = "optional"
	ModeConditional ExecutionMode = "conditional"
	ModeSkip        ExecutionMode = "skip"
)

// FailureAction is applied when a stage fails or times out (§4.3).
type FailureAction string

const (
	ActionFailPipeline        FailureAction = "fail-pipeline"
	ActionContinueWithWarning FailureAction = "continue-with-warning"
	ActionRetryWithDefaults   FailureAction = "retry-with-defaults"
	ActionManualReview        FailureAction = "manual-review"
)

// StageResult is what an executor returns per §3's "Stage Result" record.
type StageResult struct {
	Success    bool
	Duration   time.Duration
	Violations []transaction.Violation
	Enrichment transaction.Enrichment
	Notes      []string

	// RiskAssessment is populated only by the amount-validation stage.
	RiskAssessment transaction.RiskAssessment
	// DuplicateOf is populated only by the duplicate-detection stage.
	DuplicateOf string
	// SubScore is the [0,1] contribution finalization aggregates from this
	// stage: 1 for clean, 0.5 for warnings, 0 for skipped/failed (§4.3.7).
	SubScore float64
}

// StageContext is per-invocation state threaded through one stage's
// Execute call: the tenant-scoped collaborators a stage may need (customer
// matching, cache, database) without this package importing them directly,
// keeping pkg/pipeline free of a dependency on pkg/customer/pkg/cache/pkg/store.
type StageContext struct {
	Now            time.Time
	TenantID       string
	TenantCurrency string
	EnabledRegimes map[string]bool
	Profile        Profile

	CustomerMatch func(ctx context.Context, u transaction.Universal) (customerID string, name string, err error)
	IsDuplicate   func(ctx context.Context, u transaction.Universal, fuzzyWindow time.Duration) (matchID string, exact bool, err error)
	RollingStats  func(ctx context.Context, tenantID, accountID string) (mean, stddev float64, hourlyCount int, hourlyMean float64, err error)
}

// Executor is the common contract every stage implements (§4.3):
// execute(transaction-in-progress, context) -> stage-result.
type Executor interface {
	Stage() Stage
	Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error)
}

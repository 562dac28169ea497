package pipeline

import (
	"context"
	"time"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/transaction"
)

// Orchestrator runs the configured stage DAG for one transaction at a time
// (C5). Stages within a transaction run sequentially in dependency order
// (§5: "parallel-within-transaction is permitted by config but OFF by
// default"); this implementation only offers the sequential mode.
type Orchestrator struct {
	Executors       map[Stage]Executor
	PipelineVersion string
}

// DefaultExecutors wires the seven stage executors this package ships.
func DefaultExecutors() map[Stage]Executor {
	return map[Stage]Executor{
		StageValidation:       ValidationStage{},
		StageDuplicateDetect:  DuplicateDetectionStage{},
		StageAmountValidation: AmountValidationStage{},
		StageBusinessRules:    BusinessRulesStage{},
		StagePatternMatching:  PatternMatchingStage{},
		StageEnrichment:       EnrichmentStage{},
		StageFinalization:     FinalizationStage{},
	}
}

// NewOrchestrator builds an Orchestrator with the default executor set.
func NewOrchestrator(pipelineVersion string) *Orchestrator {
	return &Orchestrator{Executors: DefaultExecutors(), PipelineVersion: pipelineVersion}
}

// Run walks profile's DAG for one Universal Transaction, applying each
// stage's timeout/retry/failure-action policy, and returns the terminal
// Processed Transaction (§4.3, §4.3.7). Run never panics on a stage
// failure; an infrastructure error returned by a stage (for example from
// sc.IsDuplicate, sc.CustomerMatch or sc.RollingStats) is recorded as a
// failed result for that stage, and the stage's failure action applies.
// Run returns an error only for an invalid profile, a cyclic stage DAG, or
// a stage with no registered executor.
func (o *Orchestrator) Run(ctx context.Context, u transaction.Universal, profile Profile, sc StageContext) (*transaction.Processed, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	sc.Profile = profile

	order, err := TopoSort(profile.Stages)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindConfig, "cannot run an invalid stage DAG")
	}

	p := transaction.NewProcessed(u, o.PipelineVersion)
	p.ProcessingMeta.StageScores = map[string]float64{}

	deadline := sc.Now.Add(profile.MaxTotalTime)
	failed := false

	for _, stage := range order {
		if failed {
			break
		}
		if sc.Now.After(deadline) {
			p.ProcessingMeta.Notes = append(p.ProcessingMeta.Notes, "pipeline deadline exceeded before "+string(stage)+" started")
			failed = true
			break
		}

		cfg := profile.Stages[stage]
		executor, ok := o.Executors[stage]
		if !ok {
			return nil, apperror.Newf(apperror.KindConfig, "no executor registered for stage %s", stage)
		}

		result, execErr := o.runStageWithPolicy(ctx, executor, cfg, p, sc)
		if execErr != nil {
			result = StageResult{
				Success: false,
				Notes:   []string{"stage " + string(stage) + " failed on an infrastructure error: " + execErr.Error()},
			}
		}

		o.applyResult(p, stage, cfg, result)

		if !result.Success {
			switch cfg.FailureAction {
			case ActionFailPipeline:
				failed = true
			case ActionManualReview:
				p.RequiresManualReview = true
			case ActionContinueWithWarning, ActionRetryWithDefaults:
				// already retried inside runStageWithPolicy; proceed
			}
		}
	}

	if failed {
		p.Status = transaction.StatusFailed
	} else if p.RequiresManualReview {
		p.Status = transaction.StatusRequiresReview
	} else {
		p.Status = transaction.StatusCompleted
	}
	p.CompletedAt = sc.Now
	return p, nil
}

// runStageWithPolicy enforces the stage's timeout and retry-with-defaults
// semantics (§4.3): a hard per-stage timeout counts as failure; a
// retry-with-defaults failure action re-runs the stage up to cfg.Retries
// times (at least once), and a result that still fails is treated as
// continue-with-warning.
func (o *Orchestrator) runStageWithPolicy(ctx context.Context, executor Executor, cfg StageConfig, p *transaction.Processed, sc StageContext) (StageResult, error) {
	result, err := o.runOnce(ctx, executor, cfg, p, sc)
	if err != nil {
		return StageResult{}, err
	}
	if result.Success || cfg.FailureAction != ActionRetryWithDefaults {
		return result, nil
	}

	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		result, err = o.runOnce(ctx, executor, cfg, p, sc)
		if err != nil {
			return StageResult{}, err
		}
		if result.Success {
			return result, nil
		}
	}
	return result, nil
}

func (o *Orchestrator) runOnce(ctx context.Context, executor Executor, cfg StageConfig, p *transaction.Processed, sc StageContext) (StageResult, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		result StageResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := executor.Execute(stageCtx, p, sc)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		o.result.Duration = time.Since(start)
		return o.result, o.err
	case <-stageCtx.Done():
		return StageResult{Success: false, Duration: timeout, Notes: []string{"stage timed out"}}, nil
	}
}

// applyResult folds one stage's result into the accumulating Processed
// Transaction: violations into Validation, enrichment fields merged,
// risk assessment combined via max, stage latency recorded, and the
// sub-score stashed for finalization's confidence aggregation.
func (o *Orchestrator) applyResult(p *transaction.Processed, stage Stage, cfg StageConfig, result StageResult) {
	for _, v := range result.Violations {
		p.Validation.AddViolation(v)
	}
	if len(result.Violations) == 0 && p.Validation.IssuesBySeverity == nil {
		p.Validation.Valid = true
	}

	mergeEnrichment(&p.Enrichment, result.Enrichment)

	if result.RiskAssessment.Score > 0 || len(result.RiskAssessment.Reasons) > 0 {
		if result.RiskAssessment.Score > p.RiskAssessment.Score {
			p.RiskAssessment = result.RiskAssessment
		} else {
			p.RiskAssessment.Reasons = append(p.RiskAssessment.Reasons, result.RiskAssessment.Reasons...)
		}
		p.ProcessingMeta.RiskLevel = transaction.MaxRisk(p.ProcessingMeta.RiskLevel, transaction.RiskLevelFromScore(result.RiskAssessment.Score))
	}

	if result.DuplicateOf != "" {
		p.DuplicateMatch = result.DuplicateOf
	}

	p.ProcessingMeta.Notes = append(p.ProcessingMeta.Notes, result.Notes...)
	p.ProcessingMeta.StageLatencies = append(p.ProcessingMeta.StageLatencies, transaction.StageLatency{
		Stage: string(stage), Duration: result.Duration, Success: result.Success,
	})
	p.ProcessingMeta.StageScores[string(stage)] = result.SubScore
}

func mergeEnrichment(dst *transaction.Enrichment, src transaction.Enrichment) {
	if src.CustomerID != "" {
		dst.CustomerID = src.CustomerID
	}
	if src.CustomerName != "" {
		dst.CustomerName = src.CustomerName
	}
	if src.MerchantIdentity != "" {
		dst.MerchantIdentity = src.MerchantIdentity
	}
	if src.PrimaryCategory != "" {
		dst.PrimaryCategory = src.PrimaryCategory
	}
	if src.BusinessPurpose != "" {
		dst.BusinessPurpose = src.BusinessPurpose
	}
	if src.ComplianceLevel != "" {
		dst.ComplianceLevel = src.ComplianceLevel
	}
	if len(src.RegulatoryFlags) > 0 {
		dst.RegulatoryFlags = src.RegulatoryFlags
	}
	if src.CompanyRegistrationVerified {
		dst.CompanyRegistrationVerified = true
	}
	if src.TaxComplianceVerified {
		dst.TaxComplianceVerified = true
	}
}

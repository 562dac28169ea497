package transaction

import "time"

// RiskLevel is the bucket a transaction's fraud/anomaly score falls into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFromScore buckets a [0,1] score per §4.3.3.
func RiskLevelFromScore(score float64) RiskLevel {
	switch {
	case score >= 0.85:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}

func maxRisk(a, b RiskLevel) RiskLevel {
	order := map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}
	if order[a] >= order[b] {
		return a
	}
	return b
}

// MaxRisk is exported so the orchestrator and tests can combine a
// stage-derived and a rule-derived risk level (§4.3.7).
func MaxRisk(a, b RiskLevel) RiskLevel { return maxRisk(a, b) }

// ComplianceLevel is the aggregate Nigerian-compliance outcome (§3).
type ComplianceLevel string

const (
	ComplianceCompliant    ComplianceLevel = "compliant"
	CompliancePartial      ComplianceLevel = "partial"
	ComplianceNonCompliant ComplianceLevel = "non_compliant"
)

// Status is the terminal lifecycle state of a Processed Transaction (§3, §7).
type Status string

const (
	StatusPending         Status = "pending"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRequiresReview  Status = "requires_review"
)

// StageLatency records how long one stage took within one orchestrator run.
type StageLatency struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
}

// ProcessingMetadata is populated incrementally by stage executors.
type ProcessingMetadata struct {
	StageLatencies   []StageLatency     `json:"stage_latencies"`
	Confidence       float64            `json:"confidence"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	PipelineVersion  string             `json:"pipeline_version"`
	Notes            []string           `json:"notes,omitempty"`
	FraudIndicators  []string           `json:"fraud_indicators,omitempty"`
	// StageScores is each ran stage's [0,1] sub-score, keyed by stage name,
	// consumed by finalization's confidence aggregation (§4.3.7).
	StageScores      map[string]float64 `json:"-"`
}

// Enrichment is the output of the enrichment stage (§4.3.6).
type Enrichment struct {
	CustomerID                 string          `json:"customer_id,omitempty"`
	CustomerName               string          `json:"customer_name,omitempty"`
	MerchantIdentity           string          `json:"merchant_identity,omitempty"`
	PrimaryCategory            string          `json:"primary_category,omitempty"`
	BusinessPurpose            string          `json:"business_purpose,omitempty"`
	ComplianceLevel            ComplianceLevel `json:"compliance_level,omitempty"`
	RegulatoryFlags            []string        `json:"regulatory_flags,omitempty"`
	CompanyRegistrationVerified bool           `json:"company_registration_verified"`
	TaxComplianceVerified       bool           `json:"tax_compliance_verified"`
}

// Severity is a rule/validation violation's severity level (§3, §4.3.4).
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{SeverityInfo: 0, SeverityWarning: 1, SeverityError: 2, SeverityCritical: 3}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool { return severityOrder[s] >= severityOrder[other] }

// Violation is one rule or validation finding (§3).
type Violation struct {
	RuleID          string   `json:"rule_id"`
	Category        string   `json:"category"`
	Severity        Severity `json:"severity"`
	Field           string   `json:"field,omitempty"`
	CurrentValue    string   `json:"current_value,omitempty"`
	ExpectedValue   string   `json:"expected_value,omitempty"`
	RemediationHint string   `json:"remediation_hint,omitempty"`
}

// ValidationResult summarizes the violations produced across all stages.
type ValidationResult struct {
	Valid           bool           `json:"valid"`
	IssuesBySeverity map[Severity]int `json:"issues_by_severity,omitempty"`
	Violations      []Violation    `json:"violations,omitempty"`
}

// AddViolation folds one violation into the result, keeping Valid and the
// per-severity counts consistent.
func (v *ValidationResult) AddViolation(violation Violation) {
	if v.IssuesBySeverity == nil {
		v.IssuesBySeverity = map[Severity]int{}
	}
	v.Violations = append(v.Violations, violation)
	v.IssuesBySeverity[violation.Severity]++
	if violation.Severity.AtLeast(SeverityError) {
		v.Valid = false
	}
}

// HasAtLeast reports whether any violation meets or exceeds the given
// severity.
func (v ValidationResult) HasAtLeast(sev Severity) bool {
	for s, n := range v.IssuesBySeverity {
		if n > 0 && s.AtLeast(sev) {
			return true
		}
	}
	return false
}

// RiskAssessment is the amount-validation stage's fraud-signal output
// (§4.3.3).
type RiskAssessment struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Processed embeds the Universal Transaction plus everything the pipeline
// accumulates while processing it (§3). It becomes immutable once Status
// reaches StatusCompleted, StatusFailed, or StatusRequiresReview-and-done;
// the orchestrator enforces that by never handing out a *Processed for
// further mutation after finalization runs.
type Processed struct {
	Universal

	Status           Status             `json:"status"`
	ProcessingMeta   ProcessingMetadata `json:"processing_metadata"`
	Enrichment       Enrichment         `json:"enrichment"`
	Validation       ValidationResult   `json:"validation"`
	DuplicateMatch   string             `json:"duplicate_match,omitempty"`
	RiskAssessment   RiskAssessment     `json:"risk_assessment"`
	ReadyForInvoice  bool               `json:"ready_for_invoice"`
	RequiresManualReview bool           `json:"requires_manual_review"`
	CompletedAt      time.Time          `json:"completed_at,omitempty"`
}

// NewProcessed creates stage 0's (raw-input) output: a pending Processed
// Transaction wrapping the freshly-ingested Universal Transaction.
func NewProcessed(u Universal, pipelineVersion string) *Processed {
	return &Processed{
		Universal: u,
		Status:    StatusPending,
		ProcessingMeta: ProcessingMetadata{
			RiskLevel:       RiskLow,
			PipelineVersion: pipelineVersion,
		},
	}
}

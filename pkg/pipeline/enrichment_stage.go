package pipeline

import (
	"context"
	"sort"

	"github.com/taxpoynt/core/pkg/connector"
	"github.com/taxpoynt/core/pkg/transaction"
)

// EnrichmentStage implements §4.3.6: resolves customer identity (via
// sc.CustomerMatch, backed by C7), carries forward the merchant identity
// the pattern-match stage produced, and aggregates the Nigerian-compliance
// level and regulatory flags from the business-rules outcome.
type EnrichmentStage struct{}

func (EnrichmentStage) Stage() Stage { return StageEnrichment }

func (EnrichmentStage) Execute(ctx context.Context, p *transaction.Processed, sc StageContext) (StageResult, error) {
	enrichment := p.Enrichment // carry forward pattern-match's category/purpose/merchant

	if sc.CustomerMatch != nil {
		custID, custName, err := sc.CustomerMatch(ctx, p.Universal)
		if err != nil {
			return StageResult{}, err
		}
		enrichment.CustomerID = custID
		enrichment.CustomerName = custName
	}

	hasError := p.Validation.HasAtLeast(transaction.SeverityError)
	hasWarning := p.Validation.HasAtLeast(transaction.SeverityWarning)
	switch {
	case hasError:
		enrichment.ComplianceLevel = transaction.ComplianceNonCompliant
	case hasWarning:
		enrichment.ComplianceLevel = transaction.CompliancePartial
	default:
		enrichment.ComplianceLevel = transaction.ComplianceCompliant
	}

	flags := map[string]bool{}
	if chars, ok := connector.Lookup(p.ConnectorKind); ok {
		for _, regime := range chars.ComplianceRegimes {
			flags[regime] = true
		}
	}
	for _, v := range p.Validation.Violations {
		if v.Severity.AtLeast(transaction.SeverityWarning) {
			flags[v.RuleID] = true
		}
	}
	regulatoryFlags := make([]string, 0, len(flags))
	for f := range flags {
		regulatoryFlags = append(regulatoryFlags, f)
	}
	sort.Strings(regulatoryFlags)
	enrichment.RegulatoryFlags = regulatoryFlags

	return StageResult{
		Success:    true,
		SubScore:   1.0,
		Enrichment: enrichment,
	}, nil
}

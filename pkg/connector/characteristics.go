// Package connector converts vendor-native payloads into the Universal
// Transaction (C6) and carries the static taxonomy of connector kinds (C2).
package connector

import "github.com/taxpoynt/core/pkg/transaction"

// VolumeBucket is a coarse expected-throughput classification used to size
// worker pools and cache TTLs per connector.
type VolumeBucket string

const (
	VolumeLow    VolumeBucket = "low"
	VolumeMedium VolumeBucket = "medium"
	VolumeHigh   VolumeBucket = "high"
)

// DataQualityBand is the expected cleanliness of a connector's payloads,
// used to decide whether retry-with-defaults is a sane failure action.
type DataQualityBand string

const (
	QualityHigh   DataQualityBand = "high"
	QualityMedium DataQualityBand = "medium"
	QualityLow    DataQualityBand = "low"
)

// Characteristics is the static per-kind taxonomy entry (C2).
type Characteristics struct {
	Kind                     transaction.ConnectorKind
	Category                 string
	DataStructureLevel       int // 1 (flat) .. 5 (deeply nested/relational)
	DefaultRiskProfile       transaction.RiskLevel
	RequiresFraudDetection   bool
	RequiresCustomerMatching bool
	SupportsBatch            bool
	TypicalVolume            VolumeBucket
	ComplianceRegimes        []string
	DataQuality              DataQualityBand
}

// Registry is the static connector-characteristics table. It is built once
// at process start and never mutated; concurrent reads need no lock.
var Registry = map[transaction.ConnectorKind]Characteristics{
	transaction.KindERP: {
		Kind: transaction.KindERP, Category: "enterprise-resource-planning", DataStructureLevel: 5,
		DefaultRiskProfile: transaction.RiskLow, RequiresFraudDetection: false, RequiresCustomerMatching: true,
		SupportsBatch: true, TypicalVolume: VolumeHigh,
		ComplianceRegimes: []string{"firs-vat", "firs-wht"}, DataQuality: QualityHigh,
	},
	transaction.KindPOS: {
		Kind: transaction.KindPOS, Category: "point-of-sale", DataStructureLevel: 2,
		DefaultRiskProfile: transaction.RiskMedium, RequiresFraudDetection: true, RequiresCustomerMatching: true,
		SupportsBatch: true, TypicalVolume: VolumeHigh,
		ComplianceRegimes: []string{"firs-vat"}, DataQuality: QualityMedium,
	},
	transaction.KindCRM: {
		Kind: transaction.KindCRM, Category: "customer-relationship-management", DataStructureLevel: 4,
		DefaultRiskProfile: transaction.RiskLow, RequiresFraudDetection: false, RequiresCustomerMatching: true,
		SupportsBatch: true, TypicalVolume: VolumeMedium,
		ComplianceRegimes: []string{"firs-vat"}, DataQuality: QualityMedium,
	},
	transaction.KindEcommerce: {
		Kind: transaction.KindEcommerce, Category: "customer-facing-commerce", DataStructureLevel: 3,
		DefaultRiskProfile: transaction.RiskMedium, RequiresFraudDetection: true, RequiresCustomerMatching: true,
		SupportsBatch: true, TypicalVolume: VolumeHigh,
		ComplianceRegimes: []string{"firs-vat", "consumer-protection"}, DataQuality: QualityMedium,
	},
	transaction.KindBanking: {
		Kind: transaction.KindBanking, Category: "financial-data", DataStructureLevel: 3,
		DefaultRiskProfile: transaction.RiskHigh, RequiresFraudDetection: true, RequiresCustomerMatching: false,
		SupportsBatch: true, TypicalVolume: VolumeHigh,
		ComplianceRegimes: []string{"cbn-aml", "firs-vat"}, DataQuality: QualityHigh,
	},
	transaction.KindAccounting: {
		Kind: transaction.KindAccounting, Category: "enterprise-resource-planning", DataStructureLevel: 5,
		DefaultRiskProfile: transaction.RiskLow, RequiresFraudDetection: false, RequiresCustomerMatching: false,
		SupportsBatch: true, TypicalVolume: VolumeMedium,
		ComplianceRegimes: []string{"firs-vat"}, DataQuality: QualityHigh,
	},
	transaction.KindPaymentProcessor: {
		Kind: transaction.KindPaymentProcessor, Category: "financial-data", DataStructureLevel: 2,
		DefaultRiskProfile: transaction.RiskHigh, RequiresFraudDetection: true, RequiresCustomerMatching: false,
		SupportsBatch: true, TypicalVolume: VolumeHigh,
		ComplianceRegimes: []string{"cbn-aml", "firs-vat"}, DataQuality: QualityMedium,
	},
}

// Lookup returns the static characteristics for kind, or false if kind is
// not a recognized connector.
func Lookup(kind transaction.ConnectorKind) (Characteristics, bool) {
	c, ok := Registry[kind]
	return c, ok
}

package connector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taxpoynt/core/pkg/transaction"
)

// Filters and Paging are opaque, connector-specific request shapes; the
// vendor wire protocol behind VendorClient.Fetch is out of scope (§1).
type Filters map[string]any

type Paging struct {
	Cursor   string
	PageSize int
}

// NativePayload is one fetched vendor record: its probed fields plus the
// verbatim raw bytes, which adapters must preserve untouched (§4.1).
type NativePayload struct {
	Fields NativeFields
	Raw    json.RawMessage
}

// VendorClient performs the actual vendor I/O. It is the only place an
// adapter is allowed to do network or filesystem access (§4.1); the rest
// of Adapter is required to be pure.
type VendorClient interface {
	Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error)
}

// EnrichedResult is the adapter's enhanceResult output: the processed
// result merged with vendor-specific insight the adapter alone can supply.
type EnrichedResult struct {
	Processed     *transaction.Processed `json:"processed"`
	VendorInsight map[string]any         `json:"vendor_insight,omitempty"`
}

// Adapter is the per-connector contract (§4.1, §6): fetch native payloads,
// convert them to the Universal Transaction (pure, deterministic), and
// merge processing output back with vendor-specific insight.
type Adapter interface {
	Kind() transaction.ConnectorKind
	Fetch(ctx context.Context, filters Filters, paging Paging) ([]NativePayload, error)
	ToUniversal(native NativePayload) (transaction.Universal, error)
	EnhanceResult(processed *transaction.Processed, native NativePayload) (EnrichedResult, error)
}

// BatchStats summarizes one fetchAndProcess call (§6).
type BatchStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// BatchResult is the host-facing fetchAndProcess return shape (§6).
type BatchResult struct {
	Raw       []NativePayload   `json:"-"`
	Processed []EnrichedResult  `json:"processed"`
	Errors    []error           `json:"-"`
	Stats     BatchStats        `json:"stats"`
}

// ProcessFunc runs one Universal Transaction through the staged pipeline
// (C5). It is injected rather than imported directly so this package does
// not depend on pkg/pipeline.
type ProcessFunc func(ctx context.Context, u transaction.Universal) (*transaction.Processed, error)

// FetchAndProcess implements the host-facing collaborator contract (§6):
// fetch native payloads, convert and run each through the pipeline, then
// hand the result back through the adapter's EnhanceResult. Adapters must
// be idempotent for the same (source-id, tenant); FetchAndProcess itself
// adds no deduplication beyond what the pipeline's duplicate-detection
// stage already provides.
func FetchAndProcess(ctx context.Context, a Adapter, filters Filters, paging Paging, process ProcessFunc) (BatchResult, error) {
	natives, err := a.Fetch(ctx, filters, paging)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Raw: natives, Stats: BatchStats{Total: len(natives)}}
	for _, native := range natives {
		u, err := a.ToUniversal(native)
		if err != nil {
			result.Errors = append(result.Errors, err)
			result.Stats.Failed++
			continue
		}

		processed, err := process(ctx, u)
		if err != nil {
			result.Errors = append(result.Errors, err)
			result.Stats.Failed++
			continue
		}

		enriched, err := a.EnhanceResult(processed, native)
		if err != nil {
			result.Errors = append(result.Errors, err)
			result.Stats.Failed++
			continue
		}

		result.Processed = append(result.Processed, enriched)
		result.Stats.Processed++
	}
	return result, nil
}

// nowUTC is overridable in tests that need a fixed clock for timestamp
// fallback assertions.
var nowUTC = func() time.Time { return time.Now().UTC() }

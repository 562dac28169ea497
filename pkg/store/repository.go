package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/customer"
	sharedmath "github.com/taxpoynt/core/pkg/shared/math"
	"github.com/taxpoynt/core/pkg/transaction"
)

// ProcessedTransactionRepo persists Processed Transactions to the
// processed_transactions table (§6) and serves the two read paths the
// pipeline's collaborator-injection seams need: exact/fuzzy duplicate
// lookup and the rolling amount statistics the fraud signal scores against
// (§4.3.2, §4.3.3).
type ProcessedTransactionRepo struct {
	engine *Engine
}

// NewProcessedTransactionRepo constructs a ProcessedTransactionRepo over engine.
func NewProcessedTransactionRepo(engine *Engine) *ProcessedTransactionRepo {
	return &ProcessedTransactionRepo{engine: engine}
}

// Save upserts a processed transaction by (tenant_id, source_system,
// source_id), matching the on-conflict behavior a re-delivered transaction
// needs (§4.3.2).
func (r *ProcessedTransactionRepo) Save(ctx context.Context, p *transaction.Processed) error {
	violations, err := json.Marshal(p.Validation.Violations)
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal violations")
	}
	enrichment, err := json.Marshal(p.Enrichment)
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal enrichment")
	}
	raw, err := json.Marshal(p.Universal)
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal universal transaction")
	}

	const q = `
		INSERT INTO processed_transactions
			(id, tenant_id, source_system, source_id, account_id, fingerprint,
			 amount, currency, ts, confidence, risk_level, ready_for_invoice,
			 violations_json, enrichment_json, raw_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		ON CONFLICT (tenant_id, source_system, source_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			fingerprint = EXCLUDED.fingerprint,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			ts = EXCLUDED.ts,
			confidence = EXCLUDED.confidence,
			risk_level = EXCLUDED.risk_level,
			ready_for_invoice = EXCLUDED.ready_for_invoice,
			violations_json = EXCLUDED.violations_json,
			enrichment_json = EXCLUDED.enrichment_json,
			raw_json = EXCLUDED.raw_json,
			updated_at = EXCLUDED.updated_at`

	now := time.Now()
	_, err = r.engine.Exec(ctx, q,
		p.ID, p.TenantID, p.Provenance.SourceSystem, p.ID, p.AccountID,
		p.ExactFingerprint(),
		p.Amount.String(), p.Currency, p.Timestamp,
		p.ProcessingMeta.Confidence, string(p.ProcessingMeta.RiskLevel), p.ReadyForInvoice,
		string(violations), string(enrichment), string(raw), now,
	)
	if err != nil {
		return apperror.Database(err, apperror.DatabaseSubkindQuery, "save processed transaction")
	}
	return nil
}

// IsDuplicate matches pkg/pipeline/stage.go's StageContext.IsDuplicate
// signature: an exact fingerprint hit is authoritative; absent that, a
// fuzzy fingerprint computed over fuzzyWindow-wide time buckets is tried,
// scoped to transactions timestamped within two windows either side of the
// incoming transaction's own timestamp so an unrelated transaction months
// apart never fuzzy-matches (§4.3.2).
func (r *ProcessedTransactionRepo) IsDuplicate(ctx context.Context, u transaction.Universal, fuzzyWindow time.Duration) (string, bool, error) {
	exact := u.ExactFingerprint()
	rows, err := r.engine.Query(ctx, `SELECT id FROM processed_transactions WHERE tenant_id = $1 AND fingerprint = $2 LIMIT 1`, u.TenantID, exact)
	if err != nil {
		return "", false, err
	}
	if len(rows) > 0 {
		return stringField(rows[0], "id"), true, nil
	}

	if fuzzyWindow <= 0 {
		return "", false, nil
	}
	fuzzy := u.FuzzyFingerprint(fuzzyWindow)
	since := u.Timestamp.Add(-2 * fuzzyWindow)
	until := u.Timestamp.Add(2 * fuzzyWindow)
	rows, err = r.engine.Query(ctx,
		`SELECT id, raw_json FROM processed_transactions WHERE tenant_id = $1 AND ts BETWEEN $2 AND $3`,
		u.TenantID, since, until)
	if err != nil {
		return "", false, err
	}
	for _, row := range rows {
		var candidate transaction.Universal
		if err := json.Unmarshal([]byte(stringField(row, "raw_json")), &candidate); err != nil {
			continue
		}
		if candidate.FuzzyFingerprint(fuzzyWindow) == fuzzy {
			return stringField(row, "id"), false, nil
		}
	}
	return "", false, nil
}

// RollingStats matches pkg/pipeline/stage.go's StageContext.RollingStats
// signature: the tenant+account's historical amount mean/stddev over the
// full retained window, plus the current hour's count and mean, feeding
// the amount-validation stage's z-score fraud signal (§4.3.3).
func (r *ProcessedTransactionRepo) RollingStats(ctx context.Context, tenantID, accountID string) (mean, stddev float64, hourlyCount int, hourlyMean float64, err error) {
	rows, qerr := r.engine.Query(ctx,
		`SELECT amount FROM processed_transactions WHERE tenant_id = $1 AND account_id = $2`, tenantID, accountID)
	if qerr != nil {
		err = qerr
		return
	}
	amounts := make([]float64, 0, len(rows))
	for _, row := range rows {
		amounts = append(amounts, floatField(row, "amount"))
	}
	mean = sharedmath.Mean(amounts)
	stddev = sharedmath.StandardDeviation(amounts)

	hourAgo := time.Now().Add(-1 * time.Hour)
	hourRows, qerr := r.engine.Query(ctx,
		`SELECT amount FROM processed_transactions WHERE tenant_id = $1 AND account_id = $2 AND ts >= $3`, tenantID, accountID, hourAgo)
	if qerr != nil {
		err = qerr
		return
	}
	hourly := make([]float64, 0, len(hourRows))
	for _, row := range hourRows {
		hourly = append(hourly, floatField(row, "amount"))
	}
	hourlyCount = len(hourly)
	hourlyMean = sharedmath.Mean(hourly)
	return
}

func stringField(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func floatField(row map[string]any, key string) float64 {
	v, ok := row[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case []byte:
		var f float64
		_, _ = fmt.Sscanf(string(t), "%f", &f)
		return f
	case string:
		var f float64
		_, _ = fmt.Sscanf(t, "%f", &f)
		return f
	default:
		return 0
	}
}

// CustomerIdentityRepo persists Customer Identities to the
// customer_identities table (§6) and implements pkg/customer.Store, the
// only collaborator seam that package depends on.
type CustomerIdentityRepo struct {
	engine *Engine
}

// NewCustomerIdentityRepo constructs a CustomerIdentityRepo over engine.
func NewCustomerIdentityRepo(engine *Engine) *CustomerIdentityRepo {
	return &CustomerIdentityRepo{engine: engine}
}

// LoadIdentity implements pkg/customer.Store.
func (r *CustomerIdentityRepo) LoadIdentity(tenantID, id string) (*customer.Identity, bool, error) {
	ctx := context.Background()
	rows, err := r.engine.Query(ctx, `SELECT * FROM customer_identities WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	identity, err := rowToIdentity(rows[0])
	if err != nil {
		return nil, false, err
	}
	return identity, true, nil
}

// SaveIdentity implements pkg/customer.Store.
func (r *CustomerIdentityRepo) SaveIdentity(identity *customer.Identity) error {
	names, err := json.Marshal(identity.NameSet())
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal identity names")
	}
	phones, err := json.Marshal(identity.PhoneSet())
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal identity phones")
	}
	emails, err := json.Marshal(identity.EmailSet())
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal identity emails")
	}
	addresses, err := json.Marshal(identity.AddressSet())
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal identity addresses")
	}
	businessIDs, err := json.Marshal(identity.BusinessIDs)
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal identity business ids")
	}
	sources, err := json.Marshal(identity.Sources)
	if err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "marshal identity sources")
	}

	const q = `
		INSERT INTO customer_identities
			(id, tenant_id, primary_name, names_json, phones_json, emails_json, addresses_json,
			 business_ids_json, sources_json, aggregate_confidence, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			primary_name = EXCLUDED.primary_name,
			names_json = EXCLUDED.names_json,
			phones_json = EXCLUDED.phones_json,
			emails_json = EXCLUDED.emails_json,
			addresses_json = EXCLUDED.addresses_json,
			business_ids_json = EXCLUDED.business_ids_json,
			sources_json = EXCLUDED.sources_json,
			aggregate_confidence = EXCLUDED.aggregate_confidence,
			last_updated = EXCLUDED.last_updated`

	_, err = r.engine.Exec(context.Background(), q,
		identity.ID, identity.TenantID, identity.PrimaryName,
		string(names), string(phones), string(emails), string(addresses),
		string(businessIDs), string(sources), identity.AggregateConfidence, identity.LastUpdated,
	)
	if err != nil {
		return apperror.Database(err, apperror.DatabaseSubkindQuery, "save customer identity")
	}
	return nil
}

// AllIdentities implements pkg/customer.Store, used by Engine.Rebuild to
// repopulate the in-memory indexes from durable storage.
func (r *CustomerIdentityRepo) AllIdentities(tenantID string) ([]*customer.Identity, error) {
	rows, err := r.engine.Query(context.Background(), `SELECT * FROM customer_identities WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*customer.Identity, 0, len(rows))
	for _, row := range rows {
		identity, err := rowToIdentity(row)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, nil
}

func rowToIdentity(row map[string]any) (*customer.Identity, error) {
	identity := &customer.Identity{
		ID:          stringField(row, "id"),
		TenantID:    stringField(row, "tenant_id"),
		PrimaryName: stringField(row, "primary_name"),
		Names:       map[string]struct{}{},
		Phones:      map[string]struct{}{},
		Emails:      map[string]struct{}{},
		Addresses:   map[string]struct{}{},
		BusinessIDs: map[string]string{},
		Sources:     map[string]string{},
	}
	if err := unmarshalSet(row, "names_json", identity.Names); err != nil {
		return nil, err
	}
	if err := unmarshalSet(row, "phones_json", identity.Phones); err != nil {
		return nil, err
	}
	if err := unmarshalSet(row, "emails_json", identity.Emails); err != nil {
		return nil, err
	}
	if err := unmarshalSet(row, "addresses_json", identity.Addresses); err != nil {
		return nil, err
	}
	if raw := stringField(row, "business_ids_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity.BusinessIDs); err != nil {
			return nil, apperror.Wrap(err, apperror.KindValidation, "unmarshal identity business ids")
		}
	}
	if raw := stringField(row, "sources_json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &identity.Sources); err != nil {
			return nil, apperror.Wrap(err, apperror.KindValidation, "unmarshal identity sources")
		}
	}
	identity.AggregateConfidence = floatField(row, "aggregate_confidence")
	if ts, ok := row["last_updated"].(time.Time); ok {
		identity.LastUpdated = ts
	}
	return identity, nil
}

func unmarshalSet(row map[string]any, key string, into map[string]struct{}) error {
	raw := stringField(row, key)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return apperror.Wrap(err, apperror.KindValidation, "unmarshal identity set "+key)
	}
	for _, v := range list {
		into[v] = struct{}{}
	}
	return nil
}

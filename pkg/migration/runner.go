package migration

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/metrics"
	"github.com/taxpoynt/core/pkg/shared/logging"
	"github.com/taxpoynt/core/pkg/store"
)

// Runner applies and rolls back migration units against a pkg/store
// engine, in dependency order, persisting a Record for every attempt
// regardless of outcome (§4.8).
type Runner struct {
	engine     *store.Engine
	migrations map[string]Migration
	logger     logr.Logger
	now        func() time.Time
}

// NewRunner constructs a Runner over the discovered/registered migrations.
func NewRunner(engine *store.Engine, migrations []Migration, logger logr.Logger) *Runner {
	index := make(map[string]Migration, len(migrations))
	for _, m := range migrations {
		index[m.Metadata.ID] = m
	}
	return &Runner{engine: engine, migrations: index, logger: logger, now: time.Now}
}

// Plan is the ordered list of migration ids Apply would run, computed by
// topologically sorting on Dependencies (§4.8 "topologically sort by
// dependencies").
func (r *Runner) Plan(ctx context.Context, tenantID string) ([]string, error) {
	applied, err := r.appliedSet(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, m := range r.migrations {
		if applied[m.Metadata.ID] {
			continue
		}
		if tenantID == "" && m.Metadata.TenantSpecific {
			continue
		}
		if tenantID != "" && !m.Metadata.TenantSpecific {
			continue
		}
		pending = append(pending, m)
	}
	return topoSort(pending)
}

// topoSort runs Kahn's algorithm over pending's Dependencies edges,
// breaking ties lexically by id so Plan's output is deterministic. An
// unresolved cycle is a MigrationError (§7).
func topoSort(pending []Migration) ([]string, error) {
	byID := make(map[string]Migration, len(pending))
	inDegree := make(map[string]int, len(pending))
	dependents := make(map[string][]string)

	for _, m := range pending {
		byID[m.Metadata.ID] = m
		if _, ok := inDegree[m.Metadata.ID]; !ok {
			inDegree[m.Metadata.ID] = 0
		}
	}
	for _, m := range pending {
		for _, dep := range m.Metadata.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue // dependency already applied or out of this run's scope
			}
			inDegree[m.Metadata.ID]++
			dependents[dep] = append(dependents[dep], m.Metadata.ID)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(byID) {
		return nil, apperror.New(apperror.KindMigration, "cyclic migration dependency graph")
	}
	return order, nil
}

func (r *Runner) appliedSet(ctx context.Context, tenantID string) (map[string]bool, error) {
	rows, err := r.engine.Query(ctx,
		`SELECT migration_id FROM schema_migrations WHERE status = $1 AND COALESCE(tenant_id, '') = $2`,
		string(StatusApplied), tenantID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, row := range rows {
		out[stringCell(row, "migration_id")] = true
	}
	return out, nil
}

func stringCell(row map[string]any, key string) string {
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

// ApplyOptions configures one Apply run.
type ApplyOptions struct {
	TenantID string
	DryRun   bool
}

// ApplyResult summarizes one Apply run (§4.8 "reports the plan").
type ApplyResult struct {
	Plan    []string
	Records []Record
}

// Apply computes the pending set for tenantID (empty for global scope),
// topologically sorts it, and — unless DryRun is set — executes each
// migration's UP body in its own transaction, persisting a Record
// regardless of outcome. A failed migration stops the run; prior
// migrations in the same run remain applied (§4.8, §7).
func (r *Runner) Apply(ctx context.Context, opts ApplyOptions) (ApplyResult, error) {
	plan, err := r.Plan(ctx, opts.TenantID)
	if err != nil {
		return ApplyResult{}, err
	}
	result := ApplyResult{Plan: plan}
	if opts.DryRun {
		return result, nil
	}

	for _, id := range plan {
		m := r.migrations[id]
		record := r.runOne(ctx, m, DirectionUp, opts.TenantID)
		result.Records = append(result.Records, record)
		if record.Status == StatusFailed {
			return result, apperror.Newf(apperror.KindMigration, "migration %s failed: %s", id, record.ErrorMessage)
		}
	}
	return result, nil
}

// Rollback reverses one applied, rollback-safe migration (§4.8 "Rollback
// is allowed only for units flagged rollback-safe and only against units
// that are currently applied").
func (r *Runner) Rollback(ctx context.Context, migrationID, tenantID string) (Record, error) {
	m, ok := r.migrations[migrationID]
	if !ok {
		return Record{}, apperror.Newf(apperror.KindMigration, "unknown migration %s", migrationID)
	}
	if !m.Metadata.RollbackSafe {
		return Record{}, apperror.Newf(apperror.KindMigration, "migration %s is not rollback-safe", migrationID)
	}
	applied, err := r.appliedSet(ctx, tenantID)
	if err != nil {
		return Record{}, err
	}
	if !applied[migrationID] {
		return Record{}, apperror.Newf(apperror.KindMigration, "migration %s is not currently applied", migrationID)
	}

	record := r.runOne(ctx, m, DirectionDown, tenantID)
	if record.Status == StatusFailed {
		return record, apperror.Newf(apperror.KindMigration, "rollback of %s failed: %s", migrationID, record.ErrorMessage)
	}
	return record, nil
}

// runOne executes one migration's body in its own transaction and persists
// a Record regardless of outcome, matching §4.8's "execute each in its own
// transaction; persist a record regardless of outcome".
func (r *Runner) runOne(ctx context.Context, m Migration, direction Direction, tenantID string) Record {
	start := r.now()
	record := Record{
		ID:          uuid.NewString(),
		MigrationID: m.Metadata.ID,
		Direction:   direction,
		TenantID:    tenantID,
		StartedAt:   start,
		Metadata:    m.Metadata,
	}

	executor := m.Up
	if direction == DirectionDown {
		executor = m.Down
	}

	runErr := store.WithSession(ctx, r.engine, func(ctx context.Context, s *store.Session) error {
		affected, err := executor(ctx, s)
		record.AffectedRows = affected
		return err
	})

	record.CompletedAt = r.now()
	record.ExecutionTimeSeconds = record.CompletedAt.Sub(record.StartedAt).Seconds()
	if runErr != nil {
		record.Status = StatusFailed
		record.ErrorMessage = runErr.Error()
	} else if direction == DirectionDown {
		record.Status = StatusRolledBack
	} else {
		record.Status = StatusApplied
	}

	r.persist(ctx, record)
	status := "success"
	if record.Status == StatusFailed {
		status = "failed"
	}
	metrics.RecordMigration(string(direction), status)
	r.logger.Info("migration run completed",
		logging.NewFields().Component("migration").Operation(string(direction)).TenantID(tenantID).
			Duration(record.CompletedAt.Sub(record.StartedAt)).KeysAndValues()...)
	return record
}

func (r *Runner) persist(ctx context.Context, record Record) {
	metaJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	var tenantID any
	if record.TenantID != "" {
		tenantID = record.TenantID
	}

	const q = `
		INSERT INTO schema_migrations
			(id, migration_id, direction, status, tenant_id, started_at, completed_at,
			 execution_time_seconds, affected_rows, error_message, metadata_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.engine.Exec(ctx, q,
		record.ID, record.MigrationID, string(record.Direction), string(record.Status), tenantID,
		record.StartedAt, record.CompletedAt, record.ExecutionTimeSeconds, record.AffectedRows,
		record.ErrorMessage, string(metaJSON), r.now(),
	)
	if err != nil {
		r.logger.Error(err, "failed to persist schema_migrations record",
			logging.NewFields().Component("migration").Operation("persist").KeysAndValues()...)
	}
}

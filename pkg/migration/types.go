// Package migration implements the ordered, dependency-aware, tenant-aware
// schema migration engine (C11): discovery of declarative and code-based
// migration units, a Kahn's-algorithm dependency sort, and a runner that
// applies or rolls back each unit in its own transaction against
// pkg/store's engine-neutral database handle, persisting a
// schema_migrations record regardless of outcome (§4.8).
package migration

import (
	"context"
	"time"
)

// Tx is the minimal transactional surface a migration unit's body runs
// against: pkg/store's Session satisfies this without pkg/migration
// importing sqlx or pkg/store's concrete types directly into the executor
// signature.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// Direction is a migration run's applied direction.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Status is a migration run's terminal outcome.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplied   Status = "applied"
	StatusFailed    Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// Metadata describes one migration unit, parsed from a declarative file's
// header comments or supplied directly by a code-based unit (§4.8).
type Metadata struct {
	ID                      string
	Name                    string
	Description             string
	Author                  string
	Dependencies            []string
	BreakingChanges         bool
	EstimatedDurationMinutes int
	RequiresMaintenanceMode bool
	TenantSpecific          bool
	RollbackSafe            bool
	Checksum                string
}

// Record is one row of the schema_migrations table (§6): the outcome of
// running one migration unit in one direction, for one scope (global or a
// specific tenant).
type Record struct {
	ID                   string
	MigrationID          string
	Direction             Direction
	Status                Status
	TenantID              string // empty for a global migration
	StartedAt             time.Time
	CompletedAt           time.Time
	ExecutionTimeSeconds  float64
	AffectedRows          int64
	ErrorMessage          string
	Metadata              Metadata
}

// Executor runs one migration unit's UP or DOWN body against an active
// transaction-scoped session, returning the number of rows the statement(s)
// affected. Declarative units run their SQL text verbatim; code-based units
// run their Up/Down callables.
type Executor func(ctx context.Context, tx Tx) (affectedRows int64, err error)

// Migration is one discovered migration unit: its metadata plus the two
// directions' executors.
type Migration struct {
	Metadata Metadata
	Up       Executor
	Down     Executor
}

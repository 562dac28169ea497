package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taxpoynt/core/internal/apperror"
)

// Session wraps one transaction, acquired for the lifetime of one
// WithSession call. A Session is never shared across goroutines — each
// task owns the session it acquired (§5 "Database sessions are owned
// exclusively by the task that acquired them; never shared").
//
// Tenant scoping is explicit, not implicit: Query and Exec pass the given
// SQL through verbatim, and every repository built on Session threads
// tenant_id as a bound parameter in its own WHERE clause (see
// ProcessedTransactionRepo, CustomerIdentityRepo, TenantRepo). There is no
// ambient tenant context a Session consults on its own.
type Session struct {
	tx     *sqlx.Tx
	engine *Engine
}

// WithSession acquires a transaction-scoped Session, guaranteeing
// commit-on-success, rollback-on-failure (including a panic, which is
// re-raised after rollback), and close-on-all-exits (§4.7). fn's returned
// error is propagated to the caller after the rollback completes.
func WithSession(ctx context.Context, engine *Engine, fn func(ctx context.Context, s *Session) error) (err error) {
	tx, beginErr := engine.db.BeginTxx(ctx, nil)
	if beginErr != nil {
		return apperror.Database(beginErr, apperror.DatabaseSubkindConnection, "begin transaction")
	}

	session := &Session{tx: tx, engine: engine}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = apperror.Database(commitErr, apperror.DatabaseSubkindQuery, "commit transaction")
		}
	}()

	err = fn(ctx, session)
	return err
}

// Query runs a parameterized SELECT and returns each row as a string-keyed
// map (§4.7 "Raw parameterised query ... entry points returning row
// maps"), with slow-query telemetry applied.
func (s *Session) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return queryRows(ctx, s.tx, s.engine, query, args...)
}

// Exec runs a parameterized DML statement and returns the affected row
// count, with slow-query telemetry applied.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execStatement(ctx, s.tx, s.engine, query, args...)
}

// Tx exposes the underlying *sqlx.Tx for repositories that need sqlx's
// typed Get/Select helpers directly.
func (s *Session) Tx() *sqlx.Tx { return s.tx }

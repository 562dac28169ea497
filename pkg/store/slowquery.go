package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/metrics"
	"github.com/taxpoynt/core/pkg/shared/logging"
)

// slowQueryPrefixLen bounds how much of a statement's text is logged when
// it exceeds the threshold (§4.7: "a truncated SQL prefix").
const slowQueryPrefixLen = 200

func truncateSQL(query string) string {
	if len(query) <= slowQueryPrefixLen {
		return query
	}
	return query[:slowQueryPrefixLen] + "..."
}

// sqlExecer is the subset of *sqlx.DB / *sqlx.Tx this package drives
// queries and statements through, so every helper here works unchanged
// whether called inside or outside a Session's transaction.
type sqlExecer interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryRows runs query against ext (either the pooled *sqlx.DB or a
// transaction's *sqlx.Tx), timing it against engine's configured slow-query
// threshold. Parameters are positional ($1, $2, ... or ?, matching the
// driver in use).
func queryRows(ctx context.Context, ext sqlExecer, engine *Engine, query string, args ...any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := ext.QueryxContext(ctx, query, args...)
	elapsed := time.Since(start)
	recordSlowQuery(engine, query, elapsed)

	if err != nil {
		return nil, apperror.Database(err, apperror.DatabaseSubkindQuery, "execute query")
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, apperror.Database(err, apperror.DatabaseSubkindQuery, "scan row")
		}
		out = append(out, row)
	}
	return out, nil
}

// execStatement runs a DML statement against ext, returning the affected
// row count, with the same slow-query telemetry as queryRows.
func execStatement(ctx context.Context, ext sqlExecer, engine *Engine, query string, args ...any) (int64, error) {
	start := time.Now()
	result, err := ext.ExecContext(ctx, rebindPositional(query), args...)
	elapsed := time.Since(start)
	recordSlowQuery(engine, query, elapsed)

	if err != nil {
		return 0, apperror.Database(err, apperror.DatabaseSubkindQuery, "execute statement")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperror.Database(err, apperror.DatabaseSubkindQuery, "read affected row count")
	}
	return affected, nil
}

// rebindPositional passes query through unchanged; kept as a named seam so
// a future cross-engine placeholder rebind (sqlx.Rebind) has one call site.
func rebindPositional(query string) string { return query }

func recordSlowQuery(engine *Engine, query string, elapsed time.Duration) {
	if engine == nil {
		return
	}
	if elapsed < engine.cfg.SlowQueryThreshold {
		return
	}
	metrics.RecordSlowQuery(string(engine.cfg.Kind))
	fields := logging.NewFields().Component("store").Operation("slow_query").Duration(elapsed)
	engine.logger.Info("slow query detected", append(fields.KeysAndValues(), "sql", truncateSQL(query))...)
}

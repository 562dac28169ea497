package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/lib/pq"              // registers the "postgres" database/sql driver, used only for the ancillary health probe
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" database/sql driver

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/shared/logging"
)

func driverName(kind EngineKind) string {
	if kind == EngineSQLite {
		return "sqlite3"
	}
	return "pgx"
}

// Engine is the engine-neutral database handle (C10). It owns the
// connection pool and applies §4.7's per-environment startup
// optimizations; everything above it (Session, the repositories) only
// ever sees sqlx's driver-agnostic API.
type Engine struct {
	db     *sqlx.DB
	health *sql.DB // lib/pq-backed secondary handle, postgres only; nil for sqlite
	cfg    Config
	logger logr.Logger
}

// NewEngineWithDB wraps an already-open *sqlx.DB in an Engine, skipping
// connection establishment and startup optimizations. Exported for
// collaborators (migration, backup) and tests that wire a sqlmock- or
// sqlite-in-memory-backed handle directly.
func NewEngineWithDB(db *sqlx.DB, cfg Config, logger logr.Logger) *Engine {
	return &Engine{db: db, cfg: cfg, logger: logger}
}

// NewEngine opens a pooled connection per cfg and applies startup
// optimizations. The returned Engine is ready for session acquisition.
func NewEngine(cfg Config, logger logr.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName(cfg.Kind), cfg.DSN)
	if err != nil {
		return nil, apperror.Database(err, apperror.DatabaseSubkindConnection, "open database connection")
	}

	db.SetMaxOpenConns(cfg.PoolSize + cfg.PoolOverflow)
	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetConnMaxLifetime(cfg.PoolRecycle)
	db.SetConnMaxIdleTime(cfg.PoolRecycle)

	e := &Engine{db: db, cfg: cfg, logger: logger}

	if cfg.Kind == EnginePostgres {
		health, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, apperror.Database(err, apperror.DatabaseSubkindConnection, "open health-check connection")
		}
		e.health = health
	}

	if err := e.applyOptimizations(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// applyOptimizations runs the engine-appropriate startup tuning statements
// (§4.7: "statement timeout, work-mem tuning on server engine; WAL
// journaling and tuned cache on file engine").
func (e *Engine) applyOptimizations(ctx context.Context) error {
	switch e.cfg.Kind {
	case EnginePostgres:
		stmts := []string{
			"SET statement_timeout = " + sqlIntervalMillis(e.cfg.StatementTimeout),
			"SET work_mem = '16MB'",
		}
		for _, stmt := range stmts {
			if _, err := e.db.ExecContext(ctx, stmt); err != nil {
				return apperror.Database(err, apperror.DatabaseSubkindQuery, "apply postgres startup optimization")
			}
		}
	case EngineSQLite:
		stmts := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA cache_size=-16000",
		}
		for _, stmt := range stmts {
			if _, err := e.db.ExecContext(ctx, stmt); err != nil {
				return apperror.Database(err, apperror.DatabaseSubkindQuery, "apply sqlite startup optimization")
			}
		}
	}
	return nil
}

func sqlIntervalMillis(d time.Duration) string {
	if d <= 0 {
		d = 30 * time.Second
	}
	return "'" + strconv.FormatInt(d.Milliseconds(), 10) + "'"
}

// HealthStatus is HealthCheck's result (§4.7).
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

// HealthCheck runs the engine-appropriate keep-alive query and reports
// round-trip latency. Postgres uses the lib/pq-backed secondary handle;
// SQLite probes the primary handle directly.
func (e *Engine) HealthCheck(ctx context.Context) HealthStatus {
	start := time.Now()

	var err error
	if e.health != nil {
		_, err = e.health.ExecContext(ctx, "SELECT 1")
	} else {
		_, err = e.db.ExecContext(ctx, "SELECT 1")
	}

	latency := time.Since(start)
	if err != nil {
		e.logger.Error(err, "database health check failed", logging.NewFields().Component("store").Operation("health_check").KeysAndValues()...)
		return HealthStatus{Healthy: false, Latency: latency, Error: err.Error()}
	}
	return HealthStatus{Healthy: true, Latency: latency}
}

// DB exposes the underlying *sqlx.DB for Session and the repositories.
// Nothing outside this package should hold onto it past a single call.
func (e *Engine) DB() *sqlx.DB { return e.db }

// Config returns the Engine's configuration, for collaborators (backup's
// pg_dump/sqlite-copy path) that need the DSN or engine kind without
// holding a reference to the pooled connection itself.
func (e *Engine) Config() Config { return e.cfg }

// Query runs a parameterized SELECT outside any explicit Session, for
// read-only collaborators (e.g. the rolling-stats fraud signal) that don't
// need transactional isolation.
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return queryRows(ctx, e.db, e, query, args...)
}

// Exec runs a parameterized DML statement outside any explicit Session.
func (e *Engine) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execStatement(ctx, e.db, e, query, args...)
}

// Close releases both the primary pool and the ancillary health-check
// handle.
func (e *Engine) Close() error {
	if e.health != nil {
		_ = e.health.Close()
	}
	return e.db.Close()
}

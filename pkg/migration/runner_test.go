package migration

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"

	"github.com/taxpoynt/core/pkg/store"
)

func newMockRunner(t *testing.T, migrations []Migration) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	db := sqlx.NewDb(mockDB, "sqlmock")
	engine := store.NewEngineWithDB(db, store.DefaultConfig(), logr.Discard())
	runner := NewRunner(engine, migrations, logr.Discard())
	runner.now = func() time.Time { return time.Unix(0, 0).UTC() }
	return runner, mock
}

func noopExecutor(context.Context, Tx) (int64, error) { return 0, nil }

func TestTopoSortOrdersByDependency(t *testing.T) {
	migrations := []Migration{
		NewCodeMigration(Metadata{ID: "c", Dependencies: []string{"b"}}, noopExecutor, noopExecutor),
		NewCodeMigration(Metadata{ID: "a"}, noopExecutor, noopExecutor),
		NewCodeMigration(Metadata{ID: "b", Dependencies: []string{"a"}}, noopExecutor, noopExecutor),
	}
	order, err := topoSort(migrations)
	if err != nil {
		t.Fatalf("topoSort returned error: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected order [a b c], got %v", order)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	migrations := []Migration{
		NewCodeMigration(Metadata{ID: "x", Dependencies: []string{"y"}}, noopExecutor, noopExecutor),
		NewCodeMigration(Metadata{ID: "y", Dependencies: []string{"x"}}, noopExecutor, noopExecutor),
	}
	if _, err := topoSort(migrations); err == nil {
		t.Fatalf("expected cycle detection error")
	}
}

func TestRunnerApplyRunsPendingInOrderAndPersists(t *testing.T) {
	applied := 0
	up := func(ctx context.Context, tx Tx) (int64, error) {
		applied++
		return 1, nil
	}
	migrations := []Migration{
		NewCodeMigration(Metadata{ID: "0001_init", RollbackSafe: true}, up, noopExecutor),
	}
	runner, mock := newMockRunner(t, migrations)

	mock.ExpectQuery("SELECT migration_id FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"migration_id"}))
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO schema_migrations").WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := runner.Apply(context.Background(), ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(result.Plan) != 1 || result.Plan[0] != "0001_init" {
		t.Fatalf("unexpected plan: %v", result.Plan)
	}
	if applied != 1 {
		t.Fatalf("expected migration to run once, ran %d times", applied)
	}
	if result.Records[0].Status != StatusApplied {
		t.Fatalf("expected applied status, got %v", result.Records[0].Status)
	}
}

func TestRunnerApplyDryRunDoesNotExecute(t *testing.T) {
	ran := false
	up := func(ctx context.Context, tx Tx) (int64, error) {
		ran = true
		return 0, nil
	}
	migrations := []Migration{
		NewCodeMigration(Metadata{ID: "0001_init"}, up, noopExecutor),
	}
	runner, mock := newMockRunner(t, migrations)
	mock.ExpectQuery("SELECT migration_id FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"migration_id"}))

	result, err := runner.Apply(context.Background(), ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if ran {
		t.Fatalf("expected dry run to skip execution")
	}
	if len(result.Plan) != 1 {
		t.Fatalf("expected plan to still be reported, got %v", result.Plan)
	}
}

func TestRunnerRollbackRejectsNonRollbackSafe(t *testing.T) {
	migrations := []Migration{
		NewCodeMigration(Metadata{ID: "0001_init", RollbackSafe: false}, noopExecutor, noopExecutor),
	}
	runner, _ := newMockRunner(t, migrations)

	if _, err := runner.Rollback(context.Background(), "0001_init", ""); err == nil {
		t.Fatalf("expected rollback to be rejected for a non-rollback-safe migration")
	}
}

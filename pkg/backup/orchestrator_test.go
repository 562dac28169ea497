package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-logr/logr"
	"github.com/jmoiron/sqlx"

	"github.com/taxpoynt/core/pkg/backup"
	"github.com/taxpoynt/core/pkg/store"
)

func newSQLiteEngine(t *testing.T, dsn string) (*store.Engine, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	cfg := store.DefaultConfig()
	cfg.Kind = store.EngineSQLite
	cfg.DSN = dsn
	db := sqlx.NewDb(mockDB, "sqlmock")
	return store.NewEngineWithDB(db, cfg, logr.Discard()), mock
}

func waitForTerminal(t *testing.T, orch *backup.Orchestrator, id string) backup.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := orch.Job(id)
		if !ok {
			t.Fatalf("job %s not tracked", id)
		}
		switch job.Status {
		case backup.StatusCompleted, backup.StatusFailed, backup.StatusCancelled:
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state in time", id)
	return backup.Job{}
}

func TestOrchestratorFullBackupCompletesAndPersists(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "taxpoynt.db")
	if err := os.WriteFile(dbFile, []byte("fake-sqlite-contents"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	engine, mock := newSQLiteEngine(t, dbFile)
	mock.ExpectExec("INSERT INTO backup_jobs").WillReturnResult(sqlmock.NewResult(0, 1))

	cfg := backup.Config{
		LocalRoot:     filepath.Join(dir, "backups"),
		Concurrency:   1,
		RetentionDays: 30,
		Compression:   backup.CompressionNone,
	}
	orch := backup.NewOrchestrator(cfg, engine, nil, logr.Discard())

	id, err := orch.Schedule(context.Background(), backup.JobTypeFull, "")
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	job := waitForTerminal(t, orch, id)
	if job.Status != backup.StatusCompleted {
		t.Fatalf("expected job to complete, got status=%s error=%s", job.Status, job.Error)
	}
	if job.Checksum == "" {
		t.Fatal("expected a non-empty checksum on a completed job")
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		t.Fatalf("expected artifact at %s, stat err=%v", job.FilePath, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrchestratorScheduleAfterShutdownIsRejected(t *testing.T) {
	engine, mock := newSQLiteEngine(t, filepath.Join(t.TempDir(), "taxpoynt.db"))
	_ = mock

	orch := backup.NewOrchestrator(backup.DefaultConfig(), engine, nil, logr.Discard())
	if err := orch.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}

	if _, err := orch.Schedule(context.Background(), backup.JobTypeFull, ""); err == nil {
		t.Fatal("expected Schedule to reject work after Shutdown")
	}
}

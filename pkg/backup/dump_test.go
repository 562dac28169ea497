package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSqliteCopyCopiesFileContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "taxpoynt.db")
	content := []byte("sqlite-file-bytes")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := filepath.Join(dir, "backup.sql")

	if err := sqliteCopy(src, dst); err != nil {
		t.Fatalf("sqliteCopy returned error: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("copied content mismatch: got %q want %q", got, content)
	}
}

func TestSqliteCopyStripsFileURIAndQuery(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "taxpoynt.db")
	if err := os.WriteFile(src, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := filepath.Join(dir, "backup.sql")

	dsn := "file:" + src + "?cache=shared&mode=rwc"
	if err := sqliteCopy(dsn, dst); err != nil {
		t.Fatalf("sqliteCopy returned error: %v", err)
	}
}

func TestArtifactPathGlobalVsTenantScoped(t *testing.T) {
	at := time.Date(2026, 3, 5, 13, 30, 0, 0, time.UTC)

	global := artifactPath("/backups", JobTypeFull, "", at)
	want := filepath.Join("/backups", "full", "full_20260305_133000.sql")
	if global != want {
		t.Fatalf("global path: got %s want %s", global, want)
	}

	scoped := artifactPath("/backups", JobTypeTenantSpecific, "tenant-a", at)
	wantScoped := filepath.Join("/backups", "tenant_specific", "tenant_tenant-a_tenant_specific_20260305_133000.sql")
	if scoped != wantScoped {
		t.Fatalf("tenant-scoped path: got %s want %s", scoped, wantScoped)
	}
}

func TestSQLLiteralEscapesQuotes(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"O'Brien", "'O''Brien'"},
		{int64(42), "42"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := sqlLiteral(c.in); got != c.want {
			t.Errorf("sqlLiteral(%v) = %s, want %s", c.in, got, c.want)
		}
	}
}

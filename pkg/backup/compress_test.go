package backup

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestCompressGzipRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dump.sql")
	content := []byte("INSERT INTO organizations VALUES (1);\n")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dst, err := compressGzip(src)
	if err != nil {
		t.Fatalf("compressGzip returned error: %v", err)
	}
	if dst != src+".gz" {
		t.Fatalf("expected dst %s, got %s", src+".gz", dst)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source to be removed after compression, stat err=%v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("Open compressed file: %v", err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gr.Close()
	got, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read decompressed content: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("decompressed content mismatch: got %q want %q", got, content)
	}
}

func TestCompressNoneLeavesSourceInPlace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dump.sql")
	if err := os.WriteFile(src, []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dst, err := compress(context.Background(), src, CompressionNone)
	if err != nil {
		t.Fatalf("compress returned error: %v", err)
	}
	if dst != src {
		t.Fatalf("expected CompressionNone to return src unchanged, got %s", dst)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected source to remain, stat err=%v", err)
	}
}

package backup

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/klauspost/compress/gzip"

	"github.com/taxpoynt/core/internal/apperror"
)

// compress compresses srcPath per kind, writing the result alongside it
// with the conventional suffix, and removes the uncompressed source on
// success (§4.9, §6 "`.sql[.gz|.bz2]`"). CompressionNone returns srcPath
// unchanged.
func compress(ctx context.Context, srcPath string, kind Compression) (string, error) {
	switch kind {
	case CompressionGzip:
		return compressGzip(srcPath)
	case CompressionBzip2:
		return compressBzip2(ctx, srcPath)
	default:
		return srcPath, nil
	}
}

// compressGzip uses klauspost/compress/gzip, the faster drop-in gzip
// implementation, streaming the artifact rather than loading it whole
// into memory.
func compressGzip(srcPath string) (string, error) {
	dstPath := srcPath + ".gz"
	in, err := os.Open(srcPath)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindConfig, "open backup artifact for compression")
	}
	defer in.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindConfig, "create compressed backup artifact")
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return "", apperror.Wrap(err, apperror.KindConfig, "gzip-compress backup artifact")
	}
	if err := gw.Close(); err != nil {
		return "", apperror.Wrap(err, apperror.KindConfig, "finalize gzip stream")
	}
	_ = os.Remove(srcPath)
	return dstPath, nil
}

// compressBzip2 shells out to the system `bzip2` binary — Go's standard
// library only reads bzip2, it cannot write it, and the examples carry no
// pure-Go bzip2 encoder (§4.9 domain-stack: "external bzip2 binary via
// os/exec for the bzip2 option").
func compressBzip2(ctx context.Context, srcPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "bzip2", "-f", "-k", srcPath)
	if err := cmd.Run(); err != nil {
		return "", apperror.Wrap(err, apperror.KindConfig, "invoke bzip2 for backup compression")
	}
	_ = os.Remove(srcPath)
	return srcPath + ".bz2", nil
}

package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/taxpoynt/core/internal/apperror"
)

// checksumBlockSize is the streaming read size for checksum computation
// (§4.9 "streaming hash over 4 KiB blocks").
const checksumBlockSize = 4096

// checksumFile computes path's SHA-256 checksum, reading it in
// checksumBlockSize chunks so an arbitrarily large backup artifact never
// needs to be held in memory at once.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindConfig, "open backup artifact for checksum")
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, checksumBlockSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", apperror.Wrap(readErr, apperror.KindConfig, "read backup artifact for checksum")
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// fileSize returns path's size in bytes.
func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.KindConfig, "stat backup artifact")
	}
	return info.Size(), nil
}

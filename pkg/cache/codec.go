package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/taxpoynt/core/internal/apperror"
)

// Format selects the wire representation L2 values are stored in (§4.6's
// "serialized (JSON or binary, per config)").
type Format string

const (
	FormatJSON   Format = "json"
	FormatBinary Format = "binary"
)

// DefaultCompressionThreshold is the byte size above which Set compresses
// the serialized value (§4.6: "compressed when > 1 KiB").
const DefaultCompressionThreshold = 1024

// compressedMarker prefixes a value that has been gzip-compressed, so
// Decode can tell compressed payloads from raw ones without a side-channel
// flag field.
var compressedMarker = []byte("\x1fGZ\x00")

// Encode serializes v per format and gzip-compresses the result when it
// exceeds threshold bytes (0 disables compression).
func Encode[T any](v T, format Format, threshold int) ([]byte, error) {
	var raw []byte
	var err error
	switch format {
	case FormatBinary:
		var buf bytes.Buffer
		if err = gob.NewEncoder(&buf).Encode(v); err != nil {
			return nil, apperror.Wrap(err, apperror.KindCache, "encode binary cache value")
		}
		raw = buf.Bytes()
	default:
		raw, err = json.Marshal(v)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.KindCache, "encode json cache value")
		}
	}

	if threshold > 0 && len(raw) > threshold {
		var buf bytes.Buffer
		buf.Write(compressedMarker)
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(raw); err != nil {
			return nil, apperror.Wrap(err, apperror.KindCache, "compress cache value")
		}
		if err := gw.Close(); err != nil {
			return nil, apperror.Wrap(err, apperror.KindCache, "close gzip writer")
		}
		return buf.Bytes(), nil
	}
	return raw, nil
}

// Decode reverses Encode: transparently decompresses if the marker is
// present, then deserializes per format.
func Decode[T any](data []byte, format Format) (T, error) {
	var zero T
	raw := data
	if bytes.HasPrefix(data, compressedMarker) {
		gr, err := gzip.NewReader(bytes.NewReader(data[len(compressedMarker):]))
		if err != nil {
			return zero, apperror.Wrap(err, apperror.KindCache, "open gzip reader")
		}
		defer gr.Close()
		decompressed, err := io.ReadAll(gr)
		if err != nil {
			return zero, apperror.Wrap(err, apperror.KindCache, "decompress cache value")
		}
		raw = decompressed
	}

	var out T
	switch format {
	case FormatBinary:
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&out); err != nil {
			return zero, apperror.Wrap(err, apperror.KindCache, "decode binary cache value")
		}
	default:
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, apperror.Wrap(err, apperror.KindCache, "decode json cache value")
		}
	}
	return out, nil
}

package acquire

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/hrygo/automl/ai/core/errclass"
)

const defaultMaxExtractBytes = 256 << 20

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// ExtractCSV returns CSV text from a downloaded payload. Zip archives yield their first
// .csv entry in archive order; gzip streams and plain text are decoded directly.
// At most limit bytes are decompressed.
func ExtractCSV(data []byte, limit int64) (string, error) {
	if limit <= 0 {
		limit = defaultMaxExtractBytes
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", errclass.ErrEmptyResult)
	}

	var raw []byte
	var err error
	switch {
	case bytes.HasPrefix(data, zipMagic):
		raw, err = firstCSVInZip(data, limit)
	case bytes.HasPrefix(data, gzipMagic):
		raw, err = gunzip(data, limit)
	default:
		raw = data
	}
	if err != nil {
		return "", err
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: payload is not UTF-8 text", errclass.ErrParse)
	}
	return string(raw), nil
}

func firstCSVInZip(data []byte, limit int64) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", errclass.ErrParse, err)
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", errclass.ErrParse, f.Name, err)
		}
		defer func() { _ = rc.Close() }() //nolint:errcheck // cleanup
		return readLimited(rc, limit, f.Name)
	}
	return nil, fmt.Errorf("%w: archive contains no csv file", errclass.ErrEmptyResult)
}

func gunzip(data []byte, limit int64) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open gzip: %v", errclass.ErrParse, err)
	}
	defer func() { _ = gz.Close() }() //nolint:errcheck // cleanup
	return readLimited(gz, limit, "gzip stream")
}

func readLimited(r io.Reader, limit int64, name string) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errclass.ErrParse, name, err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes once decompressed", name, limit)
	}
	return out, nil
}

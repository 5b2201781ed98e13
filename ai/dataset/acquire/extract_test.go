package acquire

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/core/errclass"
)

func TestExtractCSV(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(titanicCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name    string
		payload []byte
		want    string
		wantErr error
	}{
		{"plain", []byte(titanicCSV), titanicCSV, nil},
		{"gzip", gz.Bytes(), titanicCSV, nil},
		{
			"zip takes first csv in archive order",
			zipOf(t, map[string]string{"a/notes.txt": "x", "b.CSV": "b\n2\n", "a.csv": "a\n1\n"}, "a/notes.txt", "b.CSV", "a.csv"),
			"b\n2\n", nil,
		},
		{"zip without csv", zipOf(t, map[string]string{"readme.txt": "x"}, "readme.txt"), "", errclass.ErrEmptyResult},
		{"empty", nil, "", errclass.ErrEmptyResult},
		{"corrupt zip", []byte("PK\x03\x04garbage"), "", errclass.ErrParse},
		{"binary", []byte{0xff, 0xfe, 0xfd}, "", errclass.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCSV(tt.payload, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCSV_Limit(t *testing.T) {
	_, err := ExtractCSV(zipOf(t, map[string]string{"big.csv": "0123456789\n0123456789\n"}, "big.csv"), 8)
	assert.ErrorContains(t, err, "exceeds 8 bytes")
}

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/core/errclass"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		header  []string
		rows    int
		wantErr error
	}{
		{"simple", "a,b\n1,2\n3,4\n", []string{"a", "b"}, 2, nil},
		{"bom and no final newline", "\ufeffa, b\n1,2", []string{"a", "b"}, 1, nil},
		{"quoted comma", "name,city\n\"Smith, J\",Paris\n", []string{"name", "city"}, 1, nil},
		{"blank lines skipped", "a\n\n1\n\n", []string{"a"}, 1, nil},
		{"empty", "  \n", nil, 0, errclass.ErrEmptyResult},
		{"header only", "a,b\n", nil, 0, errclass.ErrEmptyResult},
		{"ragged", "a,b\n1\n", nil, 0, errclass.ErrParse},
		{"bad quote", "a\n\"x\n", nil, 0, errclass.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows, err := ParseCSV(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.header, header)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestNewRecord(t *testing.T) {
	rec, err := NewRecord("x,y,label\n1,2,a\n3,4,b\n", TierLiveDownload, Metadata{Title: "t"})
	require.NoError(t, err)

	assert.Equal(t, 2, rec.RowCount)
	assert.Equal(t, 3, rec.ColumnCount)
	assert.Equal(t, TierLiveDownload, rec.SourceTier)
	assert.True(t, rec.HasColumn("LABEL"))
	assert.False(t, rec.HasColumn("target"))
	require.NoError(t, rec.Validate())

	rec.RowCount = 5
	assert.Error(t, rec.Validate())

	_, err = NewRecord("x,y\n", TierSynthetic, Metadata{})
	assert.ErrorIs(t, err, errclass.ErrEmptyResult)

	var nilRecord *Record
	assert.Error(t, nilRecord.Validate())
}

func TestTruncateRows(t *testing.T) {
	content := "a,b\n1,2\n3,4\n5,6\n"

	got, err := TruncateRows(content, 2)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n3,4\n", got)

	_, rows, err := ParseCSV(got)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	unchanged, err := TruncateRows(content, 3)
	require.NoError(t, err)
	assert.Equal(t, content, unchanged)

	unchanged, err = TruncateRows(content, 0)
	require.NoError(t, err)
	assert.Equal(t, content, unchanged)

	unchanged, err = TruncateRows(content, 10)
	require.NoError(t, err)
	assert.Equal(t, content, unchanged)
}

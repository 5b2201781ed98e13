package generation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/configloader"
	"github.com/hrygo/automl/ai/core/errclass"
)

func TestFallbackTable_Match(t *testing.T) {
	table := DefaultFallbackTable()

	text, ok := table.Match("Explain CROSS-VALIDATION to me")
	require.True(t, ok)
	assert.Contains(t, text, "folds")

	_, ok = table.Match("Create a classification model for the Titanic dataset")
	assert.False(t, ok)

	var nilTable *FallbackTable
	_, ok = nilTable.Match("overfitting")
	assert.False(t, ok)
}

func TestFallbackTable_FirstEntryWins(t *testing.T) {
	table := NewFallbackTable([]FallbackEntry{
		{Keyword: "  ", Response: "dropped"},
		{Keyword: "Model", Response: "first"},
		{Keyword: "model tuning", Response: "second"},
		{Keyword: "empty", Response: ""},
	})

	assert.Equal(t, 2, table.Len())
	text, ok := table.Match("model tuning please")
	require.True(t, ok)
	assert.Equal(t, "first", text)
}

func TestLoadFallbackTable(t *testing.T) {
	dir := t.TempDir()
	yaml := "- keyword: churn\n  response: look at tenure first\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fallback.yaml"), []byte(yaml), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), []byte("[]\n"), 0o600))

	loader := configloader.NewLoader(dir)
	table, err := LoadFallbackTable(loader, "fallback.yaml")
	require.NoError(t, err)

	text, ok := table.Match("customer churn")
	require.True(t, ok)
	assert.Equal(t, "look at tenure first", text)

	_, err = LoadFallbackTable(loader, "empty.yaml")
	assert.Error(t, err)
}

func TestGenericResponse_Code(t *testing.T) {
	prompt := "Write a complete Python script.\nTask type: regression\nTarget column: charges\nDataset file: insurance.csv"
	text := GenericResponse(prompt)

	code := ExtractCode(text)
	assert.Contains(t, code, "RandomForestRegressor")
	assert.Contains(t, code, `target = "charges"`)
	assert.Contains(t, code, `pd.read_csv("insurance.csv")`)
}

func TestGenericResponse_Text(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		contains []string
		excludes []string
	}{
		{
			name:     "pipeline outline",
			prompt:   "Describe a classification pipeline",
			contains: []string{"Task family: classification", "Pipeline outline"},
		},
		{
			name:     "clustering has no target",
			prompt:   "Explain clustering of customers",
			contains: []string{"KMeans"},
			excludes: []string{"target column"},
		},
		{
			name:     "forecast",
			prompt:   "Forecast demand, target is units",
			contains: []string{"time-series", `"units"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := GenericResponse(tt.prompt)
			for _, s := range tt.contains {
				assert.Contains(t, text, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, text, s)
			}
		})
	}
}

func TestExtractCode(t *testing.T) {
	assert.Equal(t, "x = 1", ExtractCode("Here:\n```python\nx = 1\n```\nDone"))
	assert.Equal(t, "x = 1", ExtractCode("  x = 1  "))
	assert.Equal(t, "y = 2", ExtractCode("```\ny = 2"))
}

func TestParseJSON(t *testing.T) {
	type plan struct {
		Steps []string `json:"steps"`
	}

	got, err := ParseJSON[plan]("Sure!\n```json\n{\"steps\": [\"load\", \"train\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "train"}, got.Steps)

	list, err := ParseJSON[[]int]("values: [1, 2, 3]")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, list)

	for _, bad := range []string{"no json here", "{\"steps\": [", "{\"steps\": 5}"} {
		_, err := ParseJSON[plan](bad)
		assert.ErrorIs(t, err, errclass.ErrParse, bad)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/dataset"
	"github.com/hrygo/automl/ai/pipeline"
	"github.com/hrygo/automl/internal/profile"
	"github.com/hrygo/automl/internal/version"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSynthCommand(t *testing.T) {
	out := execute(t, "synth", "iris", "--rows", "150", "--seed", "1")

	header, rows, err := dataset.ParseCSV(out)
	require.NoError(t, err)
	assert.Equal(t, 150, rows)
	assert.Contains(t, header, "species")

	assert.Equal(t, out, execute(t, "synth", "iris", "--rows", "150", "--seed", "1"))
}

func TestVersionCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(execute(t, "version"), "automl "))
}

func TestVersionCommand_Require(t *testing.T) {
	old := version.Version
	t.Cleanup(func() {
		version.Version = old
		_ = versionCmd.Flags().Set("require", "")
	})
	version.Version = "0.4.2"

	execute(t, "version", "--require", "0.4.0")

	for _, args := range [][]string{
		{"version", "--require", "0.5.0"},
		{"version", "--require", "1.x"},
	} {
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetArgs(args)
		assert.Error(t, rootCmd.Execute(), args)
	}
}

func TestBuildApp_Offline(t *testing.T) {
	p := &profile.Profile{
		Port:               28090,
		MaxRetriesPerModel: 1,
		MaxTokens:          256,
		CatalogUsername:    "u",
		CatalogKey:         "k",
		EnableLiveDownload: true,
	}
	require.NoError(t, p.Validate())

	app, err := buildApp(p, true)
	require.NoError(t, err)

	b, err := app.orchestrator.Run(context.Background(), pipeline.Request{Prompt: "Predict wine quality", Rows: 100})
	require.NoError(t, err)
	assert.Equal(t, dataset.TierSynthetic, b.Dataset.SourceTier)
	assert.True(t, b.Dataset.HasColumn("quality"))

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source_tier":"fallback-generic"`)
}

func TestBuildApp_BadBackend(t *testing.T) {
	p := &profile.Profile{Backends: []profile.Backend{{ID: "x", Provider: "deepseek", Model: "deepseek-chat"}}}
	_, err := buildApp(p, true)
	assert.Error(t, err)
}

func TestTerminationSignals(t *testing.T) {
	assert.Contains(t, terminationSignals, os.Signal(os.Interrupt))
}

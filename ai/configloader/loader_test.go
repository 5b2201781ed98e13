package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/core/errclass"
)

type entry struct {
	Keyword  string `yaml:"keyword"`
	Response string `yaml:"response"`
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	content := "- keyword: overfitting\n  response: use regularization\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fallback.yaml"), []byte(content), 0o600))

	var got []entry
	require.NoError(t, NewLoader(dir).Load("fallback.yaml", &got))

	require.Len(t, got, 1)
	assert.Equal(t, "overfitting", got[0].Keyword)
	assert.Equal(t, "use regularization", got[0].Response)
}

func TestLoader_AbsolutePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- keyword: help\n  response: hi\n"), 0o600))

	var got []entry
	require.NoError(t, NewLoader("unrelated").Load(path, &got))
	assert.Equal(t, "help", got[0].Keyword)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("keyword: [unterminated"), 0o600))

	var got []entry
	err := NewLoader(dir).Load("missing.yaml", &got)
	assert.ErrorContains(t, err, "read file missing.yaml")

	err = NewLoader(dir).Load("bad.yaml", &got)
	assert.ErrorContains(t, err, "unmarshal YAML bad.yaml")
}

func TestLoader_RejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typo.yaml"), []byte("- keyword: help\n  respnse: hi\n"), 0o600))

	var got []entry
	err := NewLoader(dir).Load("typo.yaml", &got)
	require.Error(t, err)
	assert.ErrorIs(t, err, errclass.ErrConfiguration)
}

func TestLoader_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), nil, 0o600))

	var got []entry
	require.NoError(t, NewLoader(dir).Load("empty.yaml", &got))
	assert.Empty(t, got)
}

func TestLoader_Resolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("[]"), 0o600))

	p, err := NewLoader(dir).Resolve("a.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.yaml"), p)

	_, err = NewLoader(dir).Resolve("b.yaml")
	assert.True(t, os.IsNotExist(err))
}

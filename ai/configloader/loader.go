// Package configloader reads optional YAML tables (such as canned fallback responses)
// that operators can ship next to the binary.
package configloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hrygo/automl/ai/core/errclass"
)

// Loader resolves YAML files against a search path: the configured directory first,
// then the same directory next to the executable.
type Loader struct {
	dirs []string
}

// NewLoader creates a loader rooted at dir. An empty dir means the working directory.
func NewLoader(dir string) *Loader {
	dirs := []string{dir}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), dir))
	}
	return &Loader{dirs: dirs}
}

// Load decodes the file at name into target. Unknown keys are rejected so a typo in
// an operator table fails at startup instead of silently dropping entries. Every
// failure is classified as a configuration error.
func (l *Loader) Load(name string, target any) error {
	data, err := l.read(name)
	if err != nil {
		return fmt.Errorf("%w: read file %s: %w", errclass.ErrConfiguration, name, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unmarshal YAML %s: %w", errclass.ErrConfiguration, name, err)
	}
	return nil
}

// Resolve returns the first existing path for name.
func (l *Loader) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	var firstErr error
	for _, dir := range l.dirs {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

func (l *Loader) read(name string) ([]byte, error) {
	p, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

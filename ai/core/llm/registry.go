package llm

import (
	"fmt"
	"log/slog"
)

// Registry resolves backend identifiers. It is built once at process start and only read
// afterwards, so it is safe to share between concurrent requests.
type Registry struct {
	backends map[string]Backend
	order    []string
}

// NewRegistry creates a backend for every config, preserving configuration order.
func NewRegistry(cfgs []Config) (*Registry, error) {
	backends := make([]Backend, 0, len(cfgs))
	for i := range cfgs {
		b, err := NewBackend(&cfgs[i])
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return NewRegistryFromBackends(backends...)
}

// NewRegistryFromBackends wraps already constructed backends.
func NewRegistryFromBackends(backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend, len(backends))}
	for _, b := range backends {
		if _, dup := r.backends[b.ID()]; dup {
			return nil, fmt.Errorf("duplicate backend id %q", b.ID())
		}
		r.backends[b.ID()] = b
		r.order = append(r.order, b.ID())
	}
	slog.Debug("LLM: backend registry built", "backends", r.order)
	return r, nil
}

// Get returns the backend registered under id.
func (r *Registry) Get(id string) (Backend, bool) {
	if r == nil {
		return nil, false
	}
	b, ok := r.backends[id]
	return b, ok
}

// IDs returns backend identifiers in configuration order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

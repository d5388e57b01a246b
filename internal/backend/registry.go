// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrUnknownBackend is wrapped by UnknownBackendError.
var ErrUnknownBackend = errors.New("unknown backend")

type (
	// Registry holds the backends a controller may select by name, in
	// registration order.
	Registry struct {
		mu       sync.RWMutex
		names    []string
		backends map[string]Backend
	}

	// UnknownBackendError is returned when a name is not registered.
	UnknownBackendError struct {
		Name      string
		Available []string
	}
)

// Error implements the error interface.
func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("backend %q not registered (registered: %s)", e.Name, strings.Join(e.Available, ", "))
}

// Unwrap returns ErrUnknownBackend for errors.Is() compatibility.
func (e *UnknownBackendError) Unwrap() error { return ErrUnknownBackend }

// NewRegistry creates a registry holding the given backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds b, replacing any backend with the same name.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := b.Name()
	if _, exists := r.backends[name]; !exists {
		r.names = append(r.names, name)
	}
	r.backends[name] = b
}

// Get returns the backend registered under name. An empty name selects
// Default.
func (r *Registry) Get(name string) (Backend, error) {
	if name == "" {
		return r.Default()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	if !ok {
		return nil, &UnknownBackendError{Name: name, Available: slices.Clone(r.names)}
	}
	return b, nil
}

// Default returns the first registered backend that is available.
func (r *Registry) Default() (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.names {
		if b := r.backends[name]; b.Available() {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no available backend among [%s]: %w", strings.Join(r.names, ", "), ErrUnavailable)
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

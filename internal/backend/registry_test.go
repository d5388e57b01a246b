// SPDX-License-Identifier: MPL-2.0

package backend

import (
	"errors"
	"slices"
	"testing"
)

type stubBackend struct {
	name      string
	available bool
}

func (s stubBackend) Name() string                      { return s.name }
func (s stubBackend) Available() bool                   { return s.available }
func (s stubBackend) Open(WindowConfig) (Window, error) { return nil, ErrUnavailable }

func TestRegistryGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry(
		stubBackend{name: "native", available: false},
		stubBackend{name: "headless", available: true},
	)

	if got := r.Names(); !slices.Equal(got, []string{"native", "headless"}) {
		t.Errorf("Names() = %v", got)
	}

	b, err := r.Get("")
	if err != nil {
		t.Fatalf("Get(\"\") failed: %v", err)
	}
	if b.Name() != "headless" {
		t.Errorf("default backend = %s, want the first available (headless)", b.Name())
	}

	b, err = r.Get("native")
	if err != nil || b.Name() != "native" {
		t.Errorf("Get(native) = (%v, %v)", b, err)
	}

	_, err = r.Get("qt")
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	var ube *UnknownBackendError
	if !errors.As(err, &ube) || ube.Name != "qt" || len(ube.Available) != 2 {
		t.Errorf("unexpected error detail: %#v", err)
	}
}

func TestRegistryReplace(t *testing.T) {
	t.Parallel()

	r := NewRegistry(stubBackend{name: "headless"})
	r.Register(stubBackend{name: "headless", available: true})

	if got := r.Names(); len(got) != 1 {
		t.Errorf("re-registering should not duplicate names, got %v", got)
	}
	if b, err := r.Default(); err != nil || !b.Available() {
		t.Errorf("replacement backend not used: (%v, %v)", b, err)
	}
}

func TestRegistryNoneAvailable(t *testing.T) {
	t.Parallel()

	r := NewRegistry(stubBackend{name: "native"})
	if _, err := r.Default(); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestWindowConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := WindowConfig{Title: "A", Width: 1024}.WithDefaults()
	if cfg.Title != "A" || cfg.Width != 1024 || cfg.Height != DefaultHeight {
		t.Errorf("WithDefaults() = %+v", cfg)
	}

	cfg = WindowConfig{}.WithDefaults()
	if cfg.Title != DefaultTitle || cfg.Width != DefaultWidth {
		t.Errorf("WithDefaults() = %+v", cfg)
	}
}

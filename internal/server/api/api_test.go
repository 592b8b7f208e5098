package api

import (
	"errors"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/natya/internal/gesture"
	"github.com/ayusman/natya/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// fakeRecognizer applies gesture settings to an in-memory registry.
type fakeRecognizer struct {
	base     *gesture.Registry
	registry *gesture.Registry
	enabled  map[gesture.Type]bool
	applied  []store.GestureSetting
	err      error
}

func newFakeRecognizer() *fakeRecognizer {
	f := &fakeRecognizer{
		base:     gesture.DefaultRegistry(),
		registry: gesture.DefaultRegistry(),
		enabled:  make(map[gesture.Type]bool),
	}
	for _, t := range f.registry.Types() {
		f.enabled[t] = true
	}
	return f
}

func (f *fakeRecognizer) Registry() *gesture.Registry {
	return f.registry
}

func (f *fakeRecognizer) Enabled() []gesture.Type {
	var types []gesture.Type
	for _, t := range f.registry.Types() {
		if f.enabled[t] {
			types = append(types, t)
		}
	}
	return types
}

func (f *fakeRecognizer) ApplyGestureSetting(s *store.GestureSetting) error {
	if f.err != nil {
		return f.err
	}
	t := gesture.Type(s.Type)
	def, ok := f.base.Lookup(t)
	if !ok {
		return errors.New("unknown gesture")
	}
	registry, err := f.registry.Replace(def.WithLimits(s.WindowSize, s.MaxPauseCount))
	if err != nil {
		return err
	}
	f.registry = registry
	f.enabled[t] = s.Enabled
	f.applied = append(f.applied, *s)
	return nil
}

// serve routes a single request through a router with routes mounted at prefix.
func serve(routes func(chi.Router), prefix, method, path string, body io.Reader) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route(prefix, routes)

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

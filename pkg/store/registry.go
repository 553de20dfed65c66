package store

import (
	"fmt"
	"sort"
	"sync"
)

// Registry owns at most one store per name. Construct one at startup and pass
// it to whatever needs store access.
type Registry struct {
	mu     sync.Mutex
	stores map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]any)}
}

// Use returns the store registered under name, creating it from factory on
// first use. Later calls return the same store and never call factory.
// Returns ErrTypeMismatch if name holds a store of another state type.
func Use[T State[T]](r *Registry, name string, factory func() T) (*Store[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.stores[name]; ok {
		s, ok := existing.(*Store[T])
		if !ok {
			return nil, fmt.Errorf("%w: %q holds %T", ErrTypeMismatch, name, existing)
		}
		return s, nil
	}

	s := New(name, factory)
	r.stores[name] = s
	return s, nil
}

// Lookup returns the store registered under name if it exists and holds T.
func Lookup[T State[T]](r *Registry, name string) (*Store[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[name].(*Store[T])
	return s, ok
}

// Names returns the registered store names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package modifiers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/otsync/pkg/ports"
)

// Factory builds a modifier from its configuration arguments.
type Factory func(args ...string) (ports.Modifier, error)

// Registry maps modifier names to factories so modifiers can be picked from
// configuration files.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in modifiers registered as
// "strip_empty_attributes", "drop_attributes" and "stamp_author".
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}
	r.Register("strip_empty_attributes", func(...string) (ports.Modifier, error) {
		return StripEmptyAttributes, nil
	})
	r.Register("drop_attributes", func(args ...string) (ports.Modifier, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("drop_attributes needs at least one key")
		}
		return DropAttributes(args...), nil
	})
	r.Register("stamp_author", func(args ...string) (ports.Modifier, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("stamp_author needs exactly one author id, got %d", len(args))
		}
		return StampAuthor(args[0]), nil
	})
	return r
}

// Register adds a factory to the registry.
// If a factory with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// Build looks up a factory by name and builds the modifier.
// Returns an error if the name is not registered.
func (r *Registry) Build(name string, args ...string) (ports.Modifier, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("modifier not found: %s", name)
	}
	return fn(args...)
}

// Names returns the registered modifier names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package flow

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrComponentNotFound is matched by ComponentNotFoundError.
var ErrComponentNotFound = errors.New("component not found")

// ComponentNotFoundError reports a stage component name that is not
// registered.
type ComponentNotFoundError struct {
	Name string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component not found: %q", e.Name)
}

// Is matches ErrComponentNotFound.
func (e *ComponentNotFoundError) Is(target error) bool {
	return target == ErrComponentNotFound
}

// Registry holds named stage components for flows built from
// configuration. Components are stored as given and resolved by the stage
// that uses them, so one name may hold a predicate, a processor or any other
// endpoint shape.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]any)}
}

// Register adds or replaces a component.
func (r *Registry) Register(name string, component any) error {
	if name == "" {
		return errors.New("component name cannot be empty")
	}
	if component == nil {
		return fmt.Errorf("component %q cannot be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[name] = component
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, component any) *Registry {
	if err := r.Register(name, component); err != nil {
		panic("flow: " + err.Error())
	}
	return r
}

// Get returns the component registered under name.
func (r *Registry) Get(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	if !ok {
		return nil, &ComponentNotFoundError{Name: name}
	}
	return c, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[name]
	return ok
}

// Delete removes a component.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.components, name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

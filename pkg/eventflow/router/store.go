package router

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/channel"
	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// StoreConfig configures a RouteStore.
type StoreConfig struct {
	// Decider maps an event to route names. Required.
	Decider any

	// Routes are registered at construction.
	Routes map[string]any

	// Default is returned when no decided name is registered. Defaults to a
	// Null channel unless Strict is set.
	Default any

	// Strict disables the implicit Null default: with no Default configured,
	// a lookup that matches nothing fails with *errors.NoRouteFoundError.
	Strict bool
}

// RouteStore maps route names to endpoints.
type RouteStore struct {
	*lifecycle.Service
	decider endpoint.DeciderFunc
	def     endpoint.Func

	mu     sync.RWMutex
	routes map[string]endpoint.Func
}

// NewRouteStore creates a RouteStore.
func NewRouteStore(cfg StoreConfig, opts ...Option) (*RouteStore, error) {
	s := newSettings(opts)

	decider, err := endpoint.ResolveDecider(cfg.Decider, nil)
	if err != nil {
		return nil, err
	}

	var def endpoint.Func
	switch {
	case cfg.Default != nil:
		if def, err = endpoint.Resolve(cfg.Default, nil); err != nil {
			return nil, fmt.Errorf("default route: %w", err)
		}
	case !cfg.Strict:
		def, _ = endpoint.Resolve(channel.NewNull(), nil)
	}

	rs := &RouteStore{
		Service: lifecycle.NewService("route-store", s.service...),
		decider: decider,
		def:     def,
		routes:  make(map[string]endpoint.Func, len(cfg.Routes)),
	}
	for name, route := range cfg.Routes {
		if err := rs.Add(name, route); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// Add registers route under name, replacing any existing route.
func (rs *RouteStore) Add(name string, route any) error {
	fn, err := endpoint.Resolve(route, nil)
	if err != nil {
		return fmt.Errorf("route %q: %w", name, err)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.routes[name] = fn
	return nil
}

// Remove unregisters names. Unknown names are ignored.
func (rs *RouteStore) Remove(names ...string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, name := range names {
		delete(rs.routes, name)
	}
}

// Has reports whether name is registered.
func (rs *RouteStore) Has(name string) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	_, ok := rs.routes[name]
	return ok
}

// Names returns the registered route names, sorted.
func (rs *RouteStore) Names() []string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	names := make([]string, 0, len(rs.routes))
	for name := range rs.routes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Routes implements Provider.
func (rs *RouteStore) Routes(ctx context.Context, e *event.Event) ([]endpoint.Func, error) {
	names, err := rs.decider(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("decide routes for event %s: %w", e.ID, err)
	}

	rs.mu.RLock()
	found := rs.lookup(names)
	rs.mu.RUnlock()

	return rs.orDefault(e, names, found)
}

// lookup resolves names in order, dropping unknown ones. Caller holds mu.
func (rs *RouteStore) lookup(names []string) []endpoint.Func {
	found := make([]endpoint.Func, 0, len(names))
	for _, name := range names {
		if fn, ok := rs.routes[name]; ok {
			found = append(found, fn)
		}
	}
	return found
}

func (rs *RouteStore) orDefault(e *event.Event, names []string, found []endpoint.Func) ([]endpoint.Func, error) {
	if len(found) > 0 {
		return found, nil
	}
	if rs.def == nil {
		return nil, &eferrors.NoRouteFoundError{EventID: e.ID, Names: names}
	}
	return []endpoint.Func{rs.def}, nil
}

// SingleUseRouteStore is a RouteStore whose routes are handed out once:
// every name resolved by a lookup is removed in the same critical section.
type SingleUseRouteStore struct {
	*RouteStore
}

// NewSingleUseRouteStore creates a SingleUseRouteStore.
func NewSingleUseRouteStore(cfg StoreConfig, opts ...Option) (*SingleUseRouteStore, error) {
	rs, err := NewRouteStore(cfg, append([]Option{WithName("single-use-route-store")}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &SingleUseRouteStore{RouteStore: rs}, nil
}

// Routes implements Provider.
func (s *SingleUseRouteStore) Routes(ctx context.Context, e *event.Event) ([]endpoint.Func, error) {
	names, err := s.decider(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("decide routes for event %s: %w", e.ID, err)
	}

	s.mu.Lock()
	found := s.lookup(names)
	for _, name := range names {
		delete(s.routes, name)
	}
	s.mu.Unlock()

	return s.orDefault(e, names, found)
}

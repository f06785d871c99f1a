package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/endpoint"
	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// Provider returns the endpoints an event should be sent to.
type Provider interface {
	Routes(ctx context.Context, e *event.Event) ([]endpoint.Func, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, e *event.Event) ([]endpoint.Func, error)

// Routes calls f.
func (f ProviderFunc) Routes(ctx context.Context, e *event.Event) ([]endpoint.Func, error) {
	return f(ctx, e)
}

// ResolveProvider binds obj to a Provider.
func ResolveProvider(obj any) (Provider, error) {
	switch v := obj.(type) {
	case Provider:
		if v != nil {
			return v, nil
		}
	case func(context.Context, *event.Event) ([]endpoint.Func, error):
		if v != nil {
			return ProviderFunc(v), nil
		}
	}
	return nil, &eferrors.InvalidEndpointError{Roles: []string{"routes", endpoint.RoleFunction}, Value: fmt.Sprintf("%T", obj)}
}

// ErrNoRoutes is returned by NewDispatchRouteProvider when given no routes.
var ErrNoRoutes = errors.New("dispatch route provider requires at least one route")

// DispatchRouteProvider returns the same fixed routes for every event.
type DispatchRouteProvider struct {
	routes []endpoint.Func
}

// NewDispatchRouteProvider resolves routes once. At least one is required.
func NewDispatchRouteProvider(routes ...any) (*DispatchRouteProvider, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	fns, err := endpoint.ResolveAll(routes...)
	if err != nil {
		return nil, err
	}
	return &DispatchRouteProvider{routes: fns}, nil
}

// Routes implements Provider.
func (d *DispatchRouteProvider) Routes(context.Context, *event.Event) ([]endpoint.Func, error) {
	return d.routes, nil
}

package endpoint

import (
	"context"

	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

var endpointRoles = []string{RoleSend, RoleProcess, RoleHandle, RoleFunction}

// Resolve binds obj to a Func. Capabilities are probed in order: Channel,
// Processor, Handler, then function shapes. When obj is nil (including a
// typed nil) and fallback is not, fallback is resolved the same way.
func Resolve(obj, fallback any) (Func, error) {
	if isNil(obj) {
		if isNil(fallback) {
			return nil, &eferrors.InvalidEndpointError{Roles: endpointRoles, Value: typeName(obj)}
		}
		return Resolve(fallback, nil)
	}

	switch v := obj.(type) {
	case Channel:
		return func(ctx context.Context, e *event.Event) (*event.Event, error) {
			return nil, v.Send(ctx, e)
		}, nil
	case Processor:
		return v.Process, nil
	case Handler:
		return func(ctx context.Context, e *event.Event) (*event.Event, error) {
			return nil, v.Handle(ctx, e)
		}, nil
	case Func:
		return v, nil
	case func(context.Context, *event.Event) (*event.Event, error):
		return v, nil
	case func(context.Context, *event.Event) error:
		return func(ctx context.Context, e *event.Event) (*event.Event, error) {
			return nil, v(ctx, e)
		}, nil
	case func(*event.Event) error:
		return func(_ context.Context, e *event.Event) (*event.Event, error) {
			return nil, v(e)
		}, nil
	}

	if !isNil(fallback) {
		return Resolve(fallback, nil)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: endpointRoles, Value: typeName(obj)}
}

// MustResolve is like Resolve but panics on error. Use it for package level
// wiring where a bad endpoint is a programming error.
func MustResolve(obj, fallback any) Func {
	fn, err := Resolve(obj, fallback)
	if err != nil {
		panic(err)
	}
	return fn
}

// ResolveProcessor binds obj to a Func that must produce a result. Only the
// Processor capability and result-returning function shapes qualify.
func ResolveProcessor(obj, fallback any) (Func, error) {
	roles := []string{RoleProcess, RoleFunction}
	if isNil(obj) {
		if isNil(fallback) {
			return nil, &eferrors.InvalidEndpointError{Roles: roles, Value: typeName(obj)}
		}
		return ResolveProcessor(fallback, nil)
	}

	switch v := obj.(type) {
	case Processor:
		return v.Process, nil
	case Func:
		return v, nil
	case func(context.Context, *event.Event) (*event.Event, error):
		return v, nil
	case func(*event.Event) *event.Event:
		return func(_ context.Context, e *event.Event) (*event.Event, error) {
			return v(e), nil
		}, nil
	}

	if !isNil(fallback) {
		return ResolveProcessor(fallback, nil)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: roles, Value: typeName(obj)}
}

// ResolveAll resolves each object with no fallback.
func ResolveAll(objs ...any) ([]Func, error) {
	out := make([]Func, 0, len(objs))
	for _, obj := range objs {
		fn, err := Resolve(obj, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	return out, nil
}

// Noop is an endpoint that accepts and drops every event.
func Noop(context.Context, *event.Event) (*event.Event, error) {
	return nil, nil
}

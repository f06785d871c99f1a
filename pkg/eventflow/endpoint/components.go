package endpoint

import (
	"context"

	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// PredicateFunc decides whether an event passes a filter.
type PredicateFunc func(ctx context.Context, e *event.Event) (bool, error)

// Predicate is the capability form of PredicateFunc.
type Predicate interface {
	Test(ctx context.Context, e *event.Event) (bool, error)
}

// Test calls f.
func (f PredicateFunc) Test(ctx context.Context, e *event.Event) (bool, error) { return f(ctx, e) }

// AllowAll accepts every event.
var AllowAll PredicateFunc = func(context.Context, *event.Event) (bool, error) { return true, nil }

// DenyAll rejects every event.
var DenyAll PredicateFunc = func(context.Context, *event.Event) (bool, error) { return false, nil }

// ResolvePredicate binds obj to a PredicateFunc. A func(*event.Event) bool is
// accepted as well.
func ResolvePredicate(obj, fallback any) (PredicateFunc, error) {
	switch v := obj.(type) {
	case PredicateFunc:
		if v != nil {
			return v, nil
		}
	case Predicate:
		if !isNil(v) {
			return v.Test, nil
		}
	case func(context.Context, *event.Event) (bool, error):
		if v != nil {
			return v, nil
		}
	case func(*event.Event) bool:
		if v != nil {
			return func(_ context.Context, e *event.Event) (bool, error) { return v(e), nil }, nil
		}
	}
	if !isNil(fallback) {
		return ResolvePredicate(fallback, nil)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: []string{"test", RoleFunction}, Value: typeName(obj)}
}

// ErrorHandlerFunc receives a failure together with the event that caused it.
type ErrorHandlerFunc func(ctx context.Context, e *event.Event, err error) error

// ErrorHandler is the capability form of ErrorHandlerFunc.
type ErrorHandler interface {
	HandleError(ctx context.Context, e *event.Event, err error) error
}

// HandleError calls f.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, e *event.Event, err error) error {
	return f(ctx, e, err)
}

// IgnoreErrors is an ErrorHandlerFunc that drops every failure.
var IgnoreErrors ErrorHandlerFunc = func(context.Context, *event.Event, error) error { return nil }

// ResolveErrorHandler binds obj to an ErrorHandlerFunc.
func ResolveErrorHandler(obj, fallback any) (ErrorHandlerFunc, error) {
	switch v := obj.(type) {
	case ErrorHandlerFunc:
		if v != nil {
			return v, nil
		}
	case ErrorHandler:
		if !isNil(v) {
			return v.HandleError, nil
		}
	case func(context.Context, *event.Event, error) error:
		if v != nil {
			return v, nil
		}
	case func(context.Context, *event.Event, error):
		if v != nil {
			return func(ctx context.Context, e *event.Event, err error) error {
				v(ctx, e, err)
				return nil
			}, nil
		}
	}
	if !isNil(fallback) {
		return ResolveErrorHandler(fallback, nil)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: []string{"handleError", RoleFunction}, Value: typeName(obj)}
}

// DeciderFunc maps an event to zero or more route names.
type DeciderFunc func(ctx context.Context, e *event.Event) ([]string, error)

// Decider is the capability form of DeciderFunc.
type Decider interface {
	Decide(ctx context.Context, e *event.Event) ([]string, error)
}

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, e *event.Event) ([]string, error) {
	return f(ctx, e)
}

// ResolveDecider binds obj to a DeciderFunc. A decider returning a single
// name, func(ctx, e) (string, error) or func(*event.Event) string, is
// accepted as well.
func ResolveDecider(obj, fallback any) (DeciderFunc, error) {
	switch v := obj.(type) {
	case DeciderFunc:
		if v != nil {
			return v, nil
		}
	case Decider:
		if !isNil(v) {
			return v.Decide, nil
		}
	case func(context.Context, *event.Event) ([]string, error):
		if v != nil {
			return v, nil
		}
	case func(context.Context, *event.Event) (string, error):
		if v != nil {
			return func(ctx context.Context, e *event.Event) ([]string, error) {
				name, err := v(ctx, e)
				if err != nil || name == "" {
					return nil, err
				}
				return []string{name}, nil
			}, nil
		}
	case func(*event.Event) string:
		if v != nil {
			return func(_ context.Context, e *event.Event) ([]string, error) {
				if name := v(e); name != "" {
					return []string{name}, nil
				}
				return nil, nil
			}, nil
		}
	}
	if !isNil(fallback) {
		return ResolveDecider(fallback, nil)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: []string{"decide", RoleFunction}, Value: typeName(obj)}
}

// SplitterFunc expands one event into a finite sequence of events.
type SplitterFunc func(ctx context.Context, e *event.Event) (event.Iterator, error)

// Splitter is the capability form of SplitterFunc.
type Splitter interface {
	Split(ctx context.Context, e *event.Event) (event.Iterator, error)
}

// Split calls f.
func (f SplitterFunc) Split(ctx context.Context, e *event.Event) (event.Iterator, error) {
	return f(ctx, e)
}

// ResolveSplitter binds obj to a SplitterFunc. A function returning a slice
// of events is accepted as well.
func ResolveSplitter(obj, fallback any) (SplitterFunc, error) {
	switch v := obj.(type) {
	case SplitterFunc:
		if v != nil {
			return v, nil
		}
	case Splitter:
		if !isNil(v) {
			return v.Split, nil
		}
	case func(context.Context, *event.Event) (event.Iterator, error):
		if v != nil {
			return v, nil
		}
	case func(context.Context, *event.Event) ([]*event.Event, error):
		if v != nil {
			return func(ctx context.Context, e *event.Event) (event.Iterator, error) {
				items, err := v(ctx, e)
				if err != nil {
					return nil, err
				}
				return event.Slice(items...), nil
			}, nil
		}
	}
	if !isNil(fallback) {
		return ResolveSplitter(fallback, nil)
	}
	return nil, &eferrors.InvalidEndpointError{Roles: []string{"split", RoleFunction}, Value: typeName(obj)}
}

package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrInvalidEndpoint      = errors.New("invalid endpoint")
	ErrNoRouteFound         = errors.New("no route found")
	ErrCorrelationNotFound  = errors.New("correlation not found")
	ErrDuplicateCorrelation = errors.New("duplicate correlation id")
	ErrAlreadySettled       = errors.New("channel already settled")
	ErrTimeout              = errors.New("timeout")
	ErrNilResult            = errors.New("processor returned no event")
)

// InvalidEndpointError reports a value that exposes none of the requested
// capabilities.
type InvalidEndpointError struct {
	// Roles lists the capabilities that were probed, in order.
	Roles []string
	// Value is the rejected value's dynamic type.
	Value string
}

// Error implements the error interface.
func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint %s: expected one of [%s]",
		e.Value, strings.Join(e.Roles, ", "))
}

// Is matches ErrInvalidEndpoint.
func (e *InvalidEndpointError) Is(target error) bool {
	return target == ErrInvalidEndpoint
}

// NoRouteFoundError reports a route lookup that produced nothing and had no
// default to fall back on.
type NoRouteFoundError struct {
	EventID string
	Names   []string
}

// Error implements the error interface.
func (e *NoRouteFoundError) Error() string {
	if len(e.Names) > 0 {
		return fmt.Sprintf("no route found for event %s (names: %s)",
			e.EventID, strings.Join(e.Names, ", "))
	}
	return fmt.Sprintf("no route found for event %s", e.EventID)
}

// Is matches ErrNoRouteFound.
func (e *NoRouteFoundError) Is(target error) bool {
	return target == ErrNoRouteFound
}

// CorrelationNotFoundError reports a reply whose correlation id has no
// pending request. It covers late, duplicate, and mismatched replies.
type CorrelationNotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *CorrelationNotFoundError) Error() string {
	return fmt.Sprintf("no channel found for event with id: %s", e.ID)
}

// Is matches ErrCorrelationNotFound.
func (e *CorrelationNotFoundError) Is(target error) bool {
	return target == ErrCorrelationNotFound
}

// DuplicateCorrelationError reports an attempt to register a correlation id
// that is already pending.
type DuplicateCorrelationError struct {
	ID string
}

// Error implements the error interface.
func (e *DuplicateCorrelationError) Error() string {
	return fmt.Sprintf("correlation id %s is already pending", e.ID)
}

// Is matches ErrDuplicateCorrelation.
func (e *DuplicateCorrelationError) Is(target error) bool {
	return target == ErrDuplicateCorrelation
}

// AlreadySettledError reports a second settlement of a single-use channel.
type AlreadySettledError struct {
	Channel string
	State   string
}

// Error implements the error interface.
func (e *AlreadySettledError) Error() string {
	return fmt.Sprintf("channel %s already %s", e.Channel, e.State)
}

// Is matches ErrAlreadySettled.
func (e *AlreadySettledError) Is(target error) bool {
	return target == ErrAlreadySettled
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// HandlerFailure wraps an error returned by an endpoint a stage invoked.
type HandlerFailure struct {
	Stage   string
	EventID string
	Err     error
}

// Error implements the error interface.
func (e *HandlerFailure) Error() string {
	return fmt.Sprintf("stage %s: event %s: %v", e.Stage, e.EventID, e.Err)
}

// Unwrap returns the endpoint's error.
func (e *HandlerFailure) Unwrap() error {
	return e.Err
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// PanicError carries a recovered panic from an endpoint.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("endpoint panicked: %v", e.Value)
}

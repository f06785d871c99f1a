package httpx

import (
	"context"
	"net/http"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
)

// HeadersProvider returns the request headers for an event.
type HeadersProvider interface {
	Headers(ctx context.Context, e *event.Event) (http.Header, error)
}

// HeadersFunc adapts a function to HeadersProvider.
type HeadersFunc func(ctx context.Context, e *event.Event) (http.Header, error)

// Headers calls f.
func (f HeadersFunc) Headers(ctx context.Context, e *event.Event) (http.Header, error) {
	return f(ctx, e)
}

// StaticHeaders returns the same headers for every event.
func StaticHeaders(headers map[string]string) HeadersFunc {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return func(context.Context, *event.Event) (http.Header, error) {
		return h.Clone(), nil
	}
}

// ContentType sets the Content-Type header.
func ContentType(contentType string) HeadersFunc {
	return func(context.Context, *event.Event) (http.Header, error) {
		h := make(http.Header, 1)
		h.Set("Content-Type", contentType)
		return h, nil
	}
}

// CompositeHeaders merges the headers of several providers. Providers are
// consulted in order and a later provider replaces the values of a header
// an earlier one set.
type CompositeHeaders []HeadersProvider

// Headers implements HeadersProvider.
func (c CompositeHeaders) Headers(ctx context.Context, e *event.Event) (http.Header, error) {
	out := make(http.Header)
	for _, p := range c {
		h, err := p.Headers(ctx, e)
		if err != nil {
			return nil, err
		}
		for name, values := range h {
			out.Del(name)
			for _, v := range values {
				out.Add(name, v)
			}
		}
	}
	return out, nil
}

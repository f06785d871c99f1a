package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/codec"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// DefaultContentType is sent when no content type is configured.
const DefaultContentType = "application/json"

// DefaultTimeout bounds each request made with the default client.
const DefaultTimeout = 30 * time.Second

// ErrNoURL is returned when neither URL nor URLProvider is configured.
var ErrNoURL = errors.New("httpx: URL or URLProvider is required")

// URLProvider returns the request URL for an event.
type URLProvider func(ctx context.Context, e *event.Event) (string, error)

// Serializer renders an event into a request body. A nil body sends none.
type Serializer func(ctx context.Context, e *event.Event) ([]byte, error)

// Deserializer turns a successful response into an event.
type Deserializer func(ctx context.Context, resp *http.Response) (*event.Event, error)

// JSONSerializer encodes the event in its wire shape.
func JSONSerializer(_ context.Context, e *event.Event) ([]byte, error) {
	return codec.MarshalEvent(e)
}

// NoBody sends no request body.
func NoBody(context.Context, *event.Event) ([]byte, error) {
	return nil, nil
}

// JSONDeserializer decodes the response body as an event.
func JSONDeserializer(_ context.Context, resp *http.Response) (*event.Event, error) {
	return codec.DecodeEvent(resp.Body)
}

// Config configures a Service.
type Config struct {
	// URL is used when URLProvider is nil.
	URL         string
	URLProvider URLProvider

	// Method defaults to POST.
	Method string

	// ContentType defaults to DefaultContentType. When both Headers and
	// ContentType are set the content type is applied after Headers.
	ContentType string
	Headers     HeadersProvider

	// Serializer defaults to JSONSerializer for POST and PUT and to NoBody
	// otherwise.
	Serializer Serializer

	// Client defaults to an http.Client with DefaultTimeout.
	Client *http.Client
}

// Option configures lifecycle concerns of a Service, Channel or Processor.
type Option func(*settings)

type settings struct {
	service      []lifecycle.Option
	deserializer Deserializer
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithName sets the component name.
func WithName(name string) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithName(name)) }
}

// WithLogger sets the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithLogger(logger)) }
}

// WithListener registers a listener for every notification.
func WithListener(l lifecycle.Listener) Option {
	return func(s *settings) { s.service = append(s.service, lifecycle.WithListener(l)) }
}

// WithDeserializer sets the Processor response deserializer.
func WithDeserializer(d Deserializer) Option {
	return func(s *settings) { s.deserializer = d }
}

func (c Config) resolve() (Config, error) {
	if c.URLProvider == nil {
		if c.URL == "" {
			return c, ErrNoURL
		}
		url := c.URL
		c.URLProvider = func(context.Context, *event.Event) (string, error) { return url, nil }
	}

	c.Method = strings.ToUpper(c.Method)
	if c.Method == "" {
		c.Method = http.MethodPost
	}

	if c.Serializer == nil {
		switch c.Method {
		case http.MethodPost, http.MethodPut:
			c.Serializer = JSONSerializer
		default:
			c.Serializer = NoBody
		}
	}

	contentType := ContentType(DefaultContentType)
	if c.ContentType != "" {
		contentType = ContentType(c.ContentType)
	}
	switch {
	case c.Headers != nil && c.ContentType != "":
		c.Headers = CompositeHeaders{c.Headers, contentType}
	case c.Headers == nil:
		c.Headers = contentType
	}

	if c.Client == nil {
		c.Client = &http.Client{Timeout: DefaultTimeout}
	}
	return c, nil
}

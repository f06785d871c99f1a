package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	eferrors "github.com/randalmurphal/eventflow/pkg/eventflow/errors"
	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// maxErrorBody caps how much of a failed response is kept in HTTPError.
const maxErrorBody = 4 << 10

// Service performs one HTTP request per event.
type Service struct {
	*lifecycle.Service
	cfg Config
}

// NewService creates a Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	return newService("http-service", cfg, newSettings(opts))
}

func newService(defaultName string, cfg Config, s *settings) (*Service, error) {
	resolved, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Service{
		Service: lifecycle.NewService(defaultName, s.service...),
		cfg:     resolved,
	}, nil
}

// Method returns the configured HTTP method.
func (s *Service) Method() string {
	return s.cfg.Method
}

// Perform sends the request for e and returns the response. Any status
// outside 2xx fails with *errors.HTTPError and the body is closed; on
// success the caller owns the response body.
func (s *Service) Perform(ctx context.Context, e *event.Event) (*http.Response, error) {
	req, err := s.buildRequest(ctx, e)
	if err != nil {
		return nil, err
	}
	s.Notify(ctx, lifecycle.Notification{
		Kind:  lifecycle.RequestCreated,
		Event: e,
		Attrs: map[string]any{"method": req.Method, "url": req.URL.String()},
	})

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		s.Notify(ctx, lifecycle.Notification{Kind: lifecycle.ResponseError, Event: e, Err: err})
		return nil, err
	}
	s.Notify(ctx, lifecycle.Notification{
		Kind:  lifecycle.ResponseReceived,
		Event: e,
		Attrs: map[string]any{"status": resp.StatusCode},
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		herr := &eferrors.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   req.URL.Redacted(),
		}
		s.Notify(ctx, lifecycle.Notification{Kind: lifecycle.ResponseError, Event: e, Err: herr})
		s.Logger().Debug("unexpected response status",
			slog.String("event_id", e.ID),
			slog.Int("status", resp.StatusCode),
		)
		return nil, herr
	}
	return resp, nil
}

func (s *Service) buildRequest(ctx context.Context, e *event.Event) (*http.Request, error) {
	url, err := s.cfg.URLProvider(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("provide url: %w", err)
	}
	headers, err := s.cfg.Headers.Headers(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("provide headers: %w", err)
	}
	body, err := s.cfg.Serializer(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, s.cfg.Method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	return req, nil
}

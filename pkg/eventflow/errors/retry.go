package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// RetryableFunc overrides IsRetryable.
	RetryableFunc func(error) bool

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetry suits in-process endpoints: short backoff, three attempts.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// RetryResult contains the result of a retry operation.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// WithRetryContext calls fn until it succeeds, returns a non-retryable
// error, runs out of attempts, or ctx is done. The final error is always a
// *CategorizedError.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) RetryResult[T] {
	start := time.Now()
	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = IsRetryable
	}
	maxAttempts := max(cfg.MaxAttempts, 1)
	backoff := cfg.InitialBackoff

	done := func(v T, err error, attempts int) RetryResult[T] {
		return RetryResult[T]{Value: v, Err: err, Attempts: attempts, Duration: time.Since(start)}
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return done(zero, Permanent(err, "context cancelled"), attempt-1)
		}

		v, err := fn(ctx)
		if err == nil {
			return done(v, nil, attempt)
		}
		lastErr = err

		if !retryable(err) {
			return done(zero, &CategorizedError{
				Err:      err,
				Category: Categorize(err),
				Retries:  attempt,
			}, attempt)
		}
		if attempt == maxAttempts {
			break
		}

		wait := jittered(backoff, cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if !sleep(ctx, wait) {
			return done(zero, Permanent(ctx.Err(), "context cancelled during backoff"), attempt)
		}
		backoff = nextBackoff(backoff, cfg.BackoffFactor, cfg.MaxBackoff)
	}

	return done(zero, &CategorizedError{
		Err:      lastErr,
		Category: Categorize(lastErr),
		Retries:  maxAttempts,
		Context:  "max retries exceeded",
	}, maxAttempts)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur time.Duration, factor float64, ceiling time.Duration) time.Duration {
	if factor <= 0 {
		factor = 1
	}
	next := time.Duration(float64(cur) * factor)
	if ceiling > 0 && next > ceiling {
		return ceiling
	}
	return next
}

// jittered returns base +/- (base * jitter * random).
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	delta := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + delta)
}

// RetryOption configures retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets the initial backoff duration.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithMaxBackoff sets the maximum backoff duration.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxBackoff = d }
}

// WithJitter sets the jitter factor.
func WithJitter(j float64) RetryOption {
	return func(cfg *RetryConfig) { cfg.Jitter = j }
}

// WithRetryableFunc sets a custom retryability check.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) { cfg.RetryableFunc = fn }
}

// WithOnRetry sets a callback invoked before each backoff.
func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) RetryOption {
	return func(cfg *RetryConfig) { cfg.OnRetry = fn }
}

// NewRetryConfig creates a retry configuration from DefaultRetry and opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Package retry provides backoff retry and timeout wrappers for calls to
// external services. The text-generation and search adapters use it; the
// graph executor never retries on its own.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrTimeout is returned by WithTimeout when the call does not finish in time.
var ErrTimeout = errors.New("call timed out")

// Config configures retry behavior
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	Jitter          bool
	RetryableErrors func(error) bool // Determines if an error should trigger retry
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      8 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// NoRetry runs the call exactly once.
func NoRetry() *Config {
	return &Config{MaxAttempts: 1}
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempts are used up. Context cancellation stops the loop at once.
func Do[T any](ctx context.Context, cfg *Config, name string, fn func(context.Context) (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	attempts := max(cfg.MaxAttempts, 1)

	var zero T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, context.Canceled) {
			return zero, unwrapPermanent(err)
		}
		if cfg.RetryableErrors != nil && !cfg.RetryableErrors(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if cfg.Jitter && wait > 0 {
			wait = wait/2 + time.Duration(rand.Int63n(int64(wait/2)+1))
		}
		select {
		case <-time.After(wait):
			if cfg.BackoffFactor > 0 {
				delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			}
			if cfg.MaxDelay > 0 {
				delay = min(delay, cfg.MaxDelay)
			}
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	if attempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("max retries (%d) exceeded for %s: %w", attempts, name, lastErr)
}

// WithTimeout runs fn under a deadline. A zero timeout runs fn unchanged.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		value, err := fn(timeoutCtx)
		resultChan <- result{value: value, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.value, res.err
	case <-timeoutCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s: %w after %v", name, ErrTimeout, timeout)
	}
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}

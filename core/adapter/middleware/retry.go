package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"genaihub/providers/ai"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero
// values are replaced with the defaults documented below when
// NewRetryMiddleware is called.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// failure. A value of 3 means the transport is invoked at most 4 times
	// (1 original + 3 retries). Default: 3.
	MaxRetries int

	// InitialBackoff is the wait duration before the first retry attempt.
	// Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff so it never exceeds this value.
	// Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier applied to
	// InitialBackoff on successive retries
	// (backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff)).
	// Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise to the computed backoff in the range
	// [0, JitterFraction * backoff] to avoid thundering-herd problems.
	// Default: 0.1 (10% jitter).
	JitterFraction float64

	// RetryableFunc returns true when an error should trigger a retry.
	// The default retries transient transport failures (connection errors,
	// 429, 5xx) and never retries mapping or configuration errors.
	RetryableFunc func(error) bool
}

// defaultRetryableFunc implements the default retry eligibility policy.
func defaultRetryableFunc(err error) bool {
	if err == nil {
		return false
	}

	// Caller-side conditions are never worth retrying.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var mappingErr *ai.MappingError
	if errors.As(err, &mappingErr) {
		return false
	}
	var configErr *ai.ConfigurationError
	if errors.As(err, &configErr) {
		return false
	}

	var transportErr *ai.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Transient()
	}

	// Fallback for untyped errors: transient HTTP status codes carried as text.
	msg := err.Error()
	for _, code := range []string{"429", "500", "502", "503", "529"} {
		if strings.Contains(msg, code) {
			return true
		}
	}

	return false
}

// applyRetryDefaults fills in zero-valued fields in config with safe defaults.
func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = defaultRetryableFunc
	}
}

// computeBackoff returns the backoff duration for the given attempt (0-indexed).
// backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// NewRetryMiddleware constructs a Middleware that retries stream initiation
// according to the supplied RetryConfig. Zero-valued fields in config are
// replaced with safe defaults (see RetryConfig documentation).
//
// The retry boundary is the first text-delta event delivered to the caller:
//   - initiation errors, and errors yielded before any event has reached the
//     caller, consume the attempt budget and are retried with backoff;
//   - once at least one event has been delivered, any subsequent failure is
//     surfaced immediately — a partial stream is never silently restarted,
//     since doing so would duplicate already-delivered text.
//
// On exhaustion the surfaced error wraps both [ErrRetryExhausted] and the
// last transport error, allowing callers to unwrap either.
func NewRetryMiddleware(config RetryConfig) Middleware {
	applyRetryDefaults(&config)

	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.StreamRequest) (*ai.ChatStream, error) {
			attempt := 0

			stream, err := next(ctx, request)
			for err != nil {
				if !config.RetryableFunc(err) {
					return nil, err
				}
				if attempt >= config.MaxRetries {
					return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, err)
				}
				if sleepErr := sleepBackoff(ctx, config, attempt); sleepErr != nil {
					return nil, sleepErr
				}
				attempt++
				stream, err = next(ctx, request)
			}

			return ai.NewChatStream(guardedIterator(ctx, stream, next, request, config, attempt)), nil
		}
	}
}

// guardedIterator consumes the underlying stream and enforces the
// before/after-first-byte retry boundary. The attempt budget is shared with
// the initiation loop: retries spent getting the stream open are not granted
// again for pre-first-event failures.
func guardedIterator(ctx context.Context, stream *ai.ChatStream, next StreamFunc, request ai.StreamRequest, config RetryConfig, attempt int) func(yield func(ai.StreamEvent, error) bool) {
	return func(yield func(ai.StreamEvent, error) bool) {
		current := stream

		for {
			delivered := false
			var preFirstErr error

			for event, iterErr := range current.Iter() {
				if iterErr != nil {
					if delivered {
						// Mid-stream failure: surface immediately, never retry.
						yield(ai.StreamEvent{}, iterErr)
						return
					}
					preFirstErr = iterErr
					break
				}

				delivered = true
				if !yield(event, nil) {
					return
				}
			}

			if preFirstErr == nil {
				return // normal completion
			}

			// The stream failed before its first byte reached the caller;
			// restarting cannot duplicate delivered text, so retry within budget.
			if !config.RetryableFunc(preFirstErr) {
				yield(ai.StreamEvent{}, preFirstErr)
				return
			}
			if attempt >= config.MaxRetries {
				yield(ai.StreamEvent{}, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, preFirstErr))
				return
			}
			if sleepErr := sleepBackoff(ctx, config, attempt); sleepErr != nil {
				yield(ai.StreamEvent{}, sleepErr)
				return
			}
			attempt++

			replacement, initErr := next(ctx, request)
			if initErr != nil {
				current = ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
					yield(ai.StreamEvent{}, initErr)
				})
				continue
			}
			current = replacement
		}
	}
}

// sleepBackoff waits out the backoff for the given attempt, respecting
// context cancellation.
func sleepBackoff(ctx context.Context, config RetryConfig, attempt int) error {
	backoff := computeBackoff(config, attempt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// Package retry re-runs operations with capped exponential backoff.
//
// Two presets cover the service's needs: StartupRetrier waits for a storage
// backend to come up, ConflictRetrier re-runs a read-modify-write command
// that lost an optimistic version check.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// permanent marks an error that must stop the loop immediately.
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it (unwrapped) without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p)
}

// Config is the backoff policy. Attempt n waits
// InitialDelay * Multiplier^(n-1), capped at MaxDelay, then shifted by up to
// ±JitterFactor of itself.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64

	// RetryIf filters retryable errors; nil retries everything not Permanent.
	RetryIf func(error) bool

	// OnRetry runs after failed attempt n, before sleeping.
	OnRetry func(attempt int, err error, delay time.Duration)
}

type Option func(*Config)

func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.InitialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

// WithJitter accepts values in [0, 1].
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1 {
			c.JitterFactor = j
		}
	}
}

func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) { c.RetryIf = fn }
}

func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier applies one Config; it holds no per-call state.
type Retrier struct {
	cfg Config
}

// New starts from 3 attempts, 100ms doubling up to 30s, 10% jitter.
func New(opts ...Option) *Retrier {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Retrier{cfg: cfg}
}

// Do calls op until it succeeds, fails permanently, fails with an error
// RetryIf rejects, runs out of attempts or ctx ends. Once op has failed at
// least once, its last error is returned rather than ctx.Err().
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			if last != nil {
				return last
			}
			return ctx.Err()
		}

		err := op(ctx)
		switch {
		case err == nil:
			return nil
		case IsPermanent(err):
			return errors.Unwrap(err)
		case r.cfg.RetryIf != nil && !r.cfg.RetryIf(err):
			return err
		case attempt >= r.cfg.MaxAttempts:
			return err
		}
		last = err

		wait := r.delay(attempt)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return last
		case <-t.C:
		}
	}
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.InitialDelay)
	for i := 1; i < attempt && d < float64(r.cfg.MaxDelay); i++ {
		d *= r.cfg.Multiplier
	}
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if j := r.cfg.JitterFactor; j > 0 {
		d *= 1 + j*(2*rand.Float64()-1)
	}
	return time.Duration(max(d, 0))
}

// Do runs op with a one-off Retrier.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}

// DoWithData is Do for operations that produce a value.
func DoWithData[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var out T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// StartupRetrier waits for Postgres, MongoDB or Redis to become reachable.
func StartupRetrier(attempts int) *Retrier {
	return New(
		WithMaxAttempts(attempts),
		WithInitialDelay(500*time.Millisecond),
		WithMaxDelay(10*time.Second),
		WithJitter(0.2),
	)
}

// ConflictRetrier retries only while isConflict holds, with short pauses.
func ConflictRetrier(isConflict func(error) bool) *Retrier {
	return New(
		WithMaxAttempts(4),
		WithInitialDelay(5*time.Millisecond),
		WithMaxDelay(100*time.Millisecond),
		WithJitter(0.5),
		WithRetryIf(isConflict),
	)
}

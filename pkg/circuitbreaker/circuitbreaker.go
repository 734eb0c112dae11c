// Package circuitbreaker stops calls to a failing backend for a while so that
// callers can fall back immediately instead of waiting on timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrOpen is returned without calling the backend while the breaker is open.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrProbeInFlight is returned in half-open state once the probe quota is used.
	ErrProbeInFlight = errors.New("circuit breaker probe in flight")
)

// Config controls when the breaker trips and recovers.
type Config struct {
	Name string

	// Consecutive failures that open a closed breaker.
	FailureThreshold int

	// Consecutive half-open successes that close it again.
	SuccessThreshold int

	// Time spent open before probing.
	Cooldown time.Duration

	// Concurrent calls allowed while half-open.
	MaxProbes int

	OnStateChange func(name string, from, to State)

	// IsFailure filters errors that count against the backend. Context
	// cancellation by the caller never counts.
	IsFailure func(error) bool

	now func() time.Time
}

// Option configures a breaker.
type Option func(*Config)

func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Cooldown = d
		}
	}
}

func WithMaxProbes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxProbes = n
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.now = now
		}
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	openedAt    time.Time
	rejected    int64
	transitions int64
}

// New returns a closed breaker. Defaults: 5 failures, 1 success, 30s cooldown, 1 probe.
func New(name string, opts ...Option) *Breaker {
	cfg := Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
		MaxProbes:        1,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Breaker{cfg: cfg}
}

// Execute calls fn unless the breaker is open and records the outcome.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.cfg.now().Sub(b.openedAt) < b.cfg.Cooldown {
			b.rejected++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.probes = 1
		return nil
	case StateHalfOpen:
		if b.probes >= b.cfg.MaxProbes {
			b.rejected++
			return ErrProbeInFlight
		}
		b.probes++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}

	if !b.countsAsFailure(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.successes = 0
	b.failures++
	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
	}
}

func (b *Breaker) countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if b.cfg.IsFailure != nil {
		return b.cfg.IsFailure(err)
	}
	return true
}

func (b *Breaker) trip() {
	b.openedAt = b.cfg.now()
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures, b.successes, b.probes = 0, 0, 0
	b.transitions++
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// State reports the current position. An open breaker whose cooldown has
// elapsed still reports open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a point-in-time snapshot.
type Stats struct {
	State       State
	Rejected    int64
	Transitions int64
}

func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{State: b.state, Rejected: b.rejected, Transitions: b.transitions}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.cfg.Name }

// IsRejection reports whether err came from the breaker rather than the backend.
func IsRejection(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrProbeInFlight)
}

// CacheBreaker trips quickly and recovers after a short cooldown. Cache
// reads have a cheap fallback, so failing fast is preferred over retrying.
func CacheBreaker(onStateChange func(name string, from, to State)) *Breaker {
	return New(
		"redis-cache",
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithCooldown(15*time.Second),
		WithMaxProbes(1),
		WithOnStateChange(onStateChange),
	)
}

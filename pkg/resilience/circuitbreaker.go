// Package resilience holds the fault-tolerance helpers used around the
// optional infrastructure: a circuit breaker guarding the Redis cache,
// backoff retry for report persistence and event publishing, and a timeout
// wrapper for document extraction.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned instead of calling a dependency the breaker
// has given up on.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrNotCounted marks an outcome that is neither success nor failure of the
// guarded dependency, such as a cache miss. Wrap it to pass the call through
// without moving the breaker.
var ErrNotCounted = errors.New("outcome not counted")

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
	}
	return "unknown"
}

// CircuitBreakerConfig controls when the breaker trips and how it tests for
// recovery. Zero fields take defaults.
type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Default 5.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a trial call.
	// Default 30s.
	ResetTimeout time.Duration
	// HalfOpenMaxRequests bounds concurrent trial calls. Default 1.
	HalfOpenMaxRequests int
	// OnStateChange, when set, is called after every transition while the
	// breaker's lock is held; it must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker stops calling a dependency after repeated failures so a
// dead Redis costs one fast error per request instead of a dial timeout.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	trials    int
	lastError error
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// Allow reports whether a call would currently be let through, without
// counting it as a trial call.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		return cb.cooledDown()
	case StateHalfOpen:
		return cb.trials < cb.cfg.HalfOpenMaxRequests
	}
	return true
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// LastError is the failure that most recently counted against the
// dependency, or nil.
func (cb *CircuitBreaker) LastError() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastError
}

// Reset closes the circuit and forgets past failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures, cb.trials, cb.lastError = 0, 0, nil
	cb.transition(StateClosed, "manual reset")
}

func (cb *CircuitBreaker) cooledDown() bool {
	return time.Since(cb.openedAt) >= cb.cfg.ResetTimeout
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		if !cb.cooledDown() {
			wait := cb.cfg.ResetTimeout - time.Since(cb.openedAt)
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.trials = 0
		cb.transition(StateHalfOpen, "reset timeout elapsed")
		fallthrough
	case StateHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (trial call in flight)", ErrCircuitOpen, cb.name)
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil || errors.Is(err, ErrNotCounted) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.trials = 0
			cb.transition(StateClosed, "trial call succeeded")
		}
		return
	}

	cb.failures++
	cb.lastError = err
	switch {
	case cb.state == StateHalfOpen:
		cb.openedAt = time.Now()
		cb.transition(StateOpen, "trial call failed")
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.openedAt = time.Now()
		cb.transition(StateOpen, "failure threshold reached")
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State, reason string) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	cb.logger.Log(context.Background(), level, "circuit state changed",
		"from", from.String(),
		"to", to.String(),
		"reason", reason,
		"consecutive_failures", cb.failures,
		"last_error", cb.lastError,
	)
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

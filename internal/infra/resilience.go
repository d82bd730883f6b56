// Package infra provides the resilience building blocks shared by the wiki
// transport and the ask tools: a TTL cache for query results, in-flight
// request coalescing and a circuit breaker.
package infra

import (
	"context"
	"sync"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
)

// Deduplicator coalesces identical in-flight calls. A full ask query can take
// many API round trips, so concurrent callers with the same query share one run.
type Deduplicator[T any] struct {
	mu       sync.Mutex
	inflight map[string]*call[T]
}

type call[T any] struct {
	done    chan struct{}
	result  T
	err     error
	waiters int
}

// NewDeduplicator creates an empty deduplicator
func NewDeduplicator[T any]() *Deduplicator[T] {
	return &Deduplicator[T]{inflight: make(map[string]*call[T])}
}

// Do runs fn unless a call with the same key is already running, in which
// case it waits for that call. shared reports whether the result came from
// another caller's run. A waiter whose ctx ends stops waiting; the running
// call is not canceled.
func (d *Deduplicator[T]) Do(ctx context.Context, key string, fn func() (T, error)) (result T, shared bool, err error) {
	d.mu.Lock()
	if c, ok := d.inflight[key]; ok {
		c.waiters++
		d.mu.Unlock()

		select {
		case <-c.done:
			return c.result, true, c.err
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}

	c := &call[T]{done: make(chan struct{}), waiters: 1}
	d.inflight[key] = c
	d.mu.Unlock()

	c.result, c.err = fn()
	close(c.done)

	d.mu.Lock()
	delete(d.inflight, key)
	d.mu.Unlock()

	return c.result, false, c.err
}

// InFlight returns the number of distinct calls currently running
func (d *Deduplicator[T]) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing fast, rejecting requests
	CircuitHalfOpen                     // Testing if the wiki recovered
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a CircuitBreaker
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	ResetTimeout     time.Duration // time to wait before probing again
	HalfOpenMax      int           // probe requests allowed while half-open
}

// DefaultBreakerConfig opens after 5 consecutive failures and probes after 30s
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      2,
	}
}

// CircuitBreaker fails fast while the wiki keeps failing, so a partitioned
// query does not hammer an unhealthy server with one request per window.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg BreakerConfig

	state            CircuitState
	consecutiveFails int
	lastFailure      time.Time
	halfOpenCount    int
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	cb := &CircuitBreaker{cfg: cfg, state: CircuitClosed}
	metrics.SetCircuitState(int(CircuitClosed))
	return cb
}

// Allow reports whether a request may proceed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.cfg.ResetTimeout {
			cb.setState(CircuitHalfOpen)
			cb.halfOpenCount = 1
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.halfOpenCount < cb.cfg.HalfOpenMax {
			cb.halfOpenCount++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess closes a half-open circuit and resets the failure streak
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	if cb.state == CircuitHalfOpen {
		cb.setState(CircuitClosed)
		cb.halfOpenCount = 0
	}
}

// RecordFailure extends the failure streak, opening the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.consecutiveFails >= cb.cfg.FailureThreshold {
			cb.setState(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.setState(CircuitOpen)
		cb.halfOpenCount = 0
	}
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	metrics.SetCircuitState(int(s))
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:            cb.state.String(),
		ConsecutiveFails: cb.consecutiveFails,
		LastFailure:      cb.lastFailure,
		RetryAt:          cb.lastFailure.Add(cb.cfg.ResetTimeout),
	}
}

// CircuitBreakerStats contains circuit breaker statistics
type CircuitBreakerStats struct {
	State            string    `json:"state"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	LastFailure      time.Time `json:"last_failure,omitempty"`
	RetryAt          time.Time `json:"retry_at,omitempty"`
}

// ErrCircuitOpen is returned while the circuit breaker rejects requests
type ErrCircuitOpen struct {
	State    string
	RetryAt  time.Time
	Failures int
}

func (e *ErrCircuitOpen) Error() string {
	return "circuit breaker is " + e.State + ": wiki API is failing, retry after " + e.RetryAt.Format(time.RFC3339)
}

// Package resilience guards calls to unreliable collaborators.
package resilience

import (
	"context"
	"sync"
	"time"

	apperrors "price-monitor/internal/errors"
)

// CircuitState is the position of a breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN" // next call is a probe
)

// CircuitBreakerConfig tunes a breaker. A zero FailureThreshold disables it.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the circuit
	Cooldown         time.Duration // time spent open before a probe
}

// DefaultCircuitBreakerConfig returns the settings used for price providers.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 5, Cooldown: 30 * time.Second}
}

// CircuitBreaker fails fast once a backend has failed FailureThreshold
// times in a row. One successful probe after the cooldown closes it again.
// It never retries.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    CircuitState
	streak   int
	openedAt time.Time
	changed  time.Time
	stats    CircuitBreakerStats
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:    name,
		cfg:     cfg,
		now:     time.Now,
		state:   CircuitClosed,
		changed: time.Now(),
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	_, err := ExecuteWithResult(cb, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteWithResult runs fn through cb. A call that returns after ctx is
// done counts as a failure even if fn reported none.
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.admit() {
		return zero, apperrors.Wrapf(apperrors.ErrCircuitOpen, "%s", cb.name)
	}

	v, err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}
	cb.record(err == nil)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalCalls++
	if cb.cfg.FailureThreshold > 0 && cb.state == CircuitOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			cb.stats.TotalRejected++
			return false
		}
		cb.moveTo(CircuitHalfOpen)
	}
	return true
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.stats.TotalSuccesses++
		cb.streak = 0
		if cb.state == CircuitHalfOpen {
			cb.moveTo(CircuitClosed)
		}
		return
	}

	cb.stats.TotalFailures++
	if cb.cfg.FailureThreshold <= 0 {
		return
	}
	cb.streak++
	if cb.state == CircuitHalfOpen || cb.streak >= cb.cfg.FailureThreshold {
		cb.moveTo(CircuitOpen)
	}
}

// moveTo must be called with mu held.
func (cb *CircuitBreaker) moveTo(state CircuitState) {
	cb.state = state
	cb.changed = cb.now()
	cb.streak = 0
	if state == CircuitOpen {
		cb.openedAt = cb.changed
	}
}

// State returns the current position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := cb.stats
	s.Name = cb.name
	s.State = cb.state
	s.CurrentFailures = cb.streak
	s.LastStateChange = cb.changed
	return s
}

// CircuitBreakerStats is reported by the status endpoint.
type CircuitBreakerStats struct {
	Name            string       `json:"name"`
	State           CircuitState `json:"state"`
	TotalCalls      int64        `json:"total_calls"`
	TotalSuccesses  int64        `json:"total_successes"`
	TotalFailures   int64        `json:"total_failures"`
	TotalRejected   int64        `json:"total_rejected"`
	CurrentFailures int          `json:"current_failures"`
	LastStateChange time.Time    `json:"last_state_change"`
}

// FailureRate is the share of calls that failed, in percent.
func (s CircuitBreakerStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalCalls) * 100
}

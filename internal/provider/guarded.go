package provider

import (
	"context"
	"time"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/resilience"
)

// GuardConfig bounds calls to a backend.
type GuardConfig struct {
	// Timeout caps each call. Defaults to 5s.
	Timeout time.Duration
	// FailureThreshold opens the breaker after this many failed batches.
	// Zero disables the breaker.
	FailureThreshold int
	// Cooldown keeps the breaker open before the next probe.
	Cooldown time.Duration
}

// Guarded adds a per-call timeout and a circuit breaker to a backend.
// Failures are returned as-is; nothing is retried.
type Guarded struct {
	inner   Provider
	timeout time.Duration
	breaker *resilience.CircuitBreaker
}

// NewGuarded wraps inner.
func NewGuarded(inner Provider, cfg GuardConfig) *Guarded {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = resilience.DefaultCircuitBreakerConfig().Cooldown
	}
	return &Guarded{
		inner:   inner,
		timeout: cfg.Timeout,
		breaker: resilience.NewCircuitBreaker(inner.Name(), resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			Cooldown:         cfg.Cooldown,
		}),
	}
}

// Name implements Provider.
func (g *Guarded) Name() string { return g.inner.Name() }

// Inner returns the wrapped backend.
func (g *Guarded) Inner() Provider { return g.inner }

// Timeout returns the per-call timeout.
func (g *Guarded) Timeout() time.Duration { return g.timeout }

// Breaker exposes the circuit breaker for status reporting.
func (g *Guarded) Breaker() *resilience.CircuitBreaker { return g.breaker }

// FetchBatch implements Provider. Every error matches ErrProviderUnavailable.
func (g *Guarded) FetchBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prices, err := resilience.ExecuteWithResult(g.breaker, ctx, func(ctx context.Context) (map[string]float64, error) {
		return g.inner.FetchBatch(ctx, symbols)
	})
	if err != nil {
		return nil, g.wrap("fetch_batch", symbols, err)
	}
	return prices, nil
}

// FetchSingle implements Provider. Validation lookups bypass the breaker so an
// unknown symbol never counts against the backend.
func (g *Guarded) FetchSingle(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	p, err := g.inner.FetchSingle(ctx, symbol)
	if err != nil {
		return 0, g.wrap("fetch_single", []string{symbol}, err)
	}
	if !Usable(p) {
		return 0, unavailable(g.Name(), symbol)
	}
	return p, nil
}

func (g *Guarded) wrap(op string, symbols []string, err error) error {
	var pe *apperrors.ProviderError
	if apperrors.As(err, &pe) {
		return err
	}
	if apperrors.Is(err, context.DeadlineExceeded) {
		err = apperrors.Wrapf(apperrors.ErrTimeout, "after %s", g.timeout)
	}
	return apperrors.NewProviderError(g.Name(), op, symbols, err)
}

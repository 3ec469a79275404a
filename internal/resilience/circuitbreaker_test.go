package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "price-monitor/internal/errors"
)

var errBoom = errors.New("boom")

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{FailureThreshold: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	}
	assert.Equal(t, CircuitOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error { calls++; return nil })
	assert.True(t, apperrors.Is(err, apperrors.ErrCircuitOpen))
	assert.Zero(t, calls, "open circuit must not call through")
	assert.Equal(t, int64(1), cb.Stats().TotalRejected)
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("kite", CircuitBreakerConfig{FailureThreshold: 1, Cooldown: 30 * time.Second})
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, CircuitOpen, cb.State())

	now = now.Add(31 * time.Second)
	require.Error(t, cb.Execute(ctx, fail))
	assert.Equal(t, CircuitOpen, cb.State(), "failed probe reopens")

	now = now.Add(31 * time.Second)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("sim", CircuitBreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, ok)
	cb.Execute(ctx, fail)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestDisabledBreakerNeverOpens(t *testing.T) {
	cb := NewCircuitBreaker("off", CircuitBreakerConfig{})
	for i := 0; i < 10; i++ {
		cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, float64(100), cb.Stats().FailureRate())
}

func TestExpiredContextCountsAsFailure(t *testing.T) {
	cb := NewCircuitBreaker("slow", CircuitBreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := ExecuteWithResult(cb, ctx, func(context.Context) (int, error) { return 7, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, v)
	assert.Equal(t, CircuitOpen, cb.State())
}

// Package provider fetches last-traded prices from market-data backends.
package provider

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "price-monitor/internal/errors"
)

// Provider returns last-traded prices for symbols.
type Provider interface {
	// Name identifies the backend in logs and errors.
	Name() string
	// FetchBatch returns a price for every symbol it could price. A symbol
	// missing from the map is unavailable this cycle. An error means the
	// whole batch failed.
	FetchBatch(ctx context.Context, symbols []string) (map[string]float64, error)
	// FetchSingle returns the price of one symbol or an error wrapping
	// ErrPriceUnavailable. Used to validate a symbol before tracking it.
	FetchSingle(ctx context.Context, symbol string) (float64, error)
}

// Options selects and configures a backend.
type Options struct {
	Name          string // yahoo, kite or simulated
	ExtendedHours bool
	Exchange      string
	KiteAPIKey    string
	KiteToken     string

	Seed       int64
	Volatility float64
	StartPrice float64

	FetchTimeout    time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

// New builds the configured backend wrapped in a Guarded provider.
func New(opts Options) (*Guarded, error) {
	var inner Provider
	switch strings.ToLower(opts.Name) {
	case "", "yahoo":
		inner = NewYahoo(YahooConfig{ExtendedHours: opts.ExtendedHours})
	case "kite", "zerodha":
		if opts.KiteAPIKey == "" || opts.KiteToken == "" {
			return nil, fmt.Errorf("%w: kite provider needs api_key and access_token", apperrors.ErrConfigInvalid)
		}
		inner = NewKite(KiteConfig{APIKey: opts.KiteAPIKey, AccessToken: opts.KiteToken, Exchange: opts.Exchange})
	case "simulated", "sim":
		inner = NewSimulated(SimulatedConfig{Seed: opts.Seed, Volatility: opts.Volatility, StartPrice: opts.StartPrice})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", apperrors.ErrConfigInvalid, opts.Name)
	}
	return NewGuarded(inner, GuardConfig{
		Timeout:          opts.FetchTimeout,
		FailureThreshold: opts.BreakerFailures,
		Cooldown:         opts.BreakerCooldown,
	}), nil
}

// Usable reports whether a fetched price can be observed.
func Usable(price float64) bool {
	return !math.IsNaN(price) && !math.IsInf(price, 0)
}

// unavailable builds the error FetchSingle returns for an unpriced symbol.
func unavailable(provider, symbol string) error {
	return apperrors.NewProviderError(provider, "fetch_single", []string{symbol}, apperrors.ErrPriceUnavailable)
}

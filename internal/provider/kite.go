package provider

import (
	"context"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "price-monitor/internal/errors"
)

const defaultKiteExchange = "NSE"

// KiteConfig holds configuration for the Kite Connect backend.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	// Exchange prefixes instruments, NSE when empty.
	Exchange string
}

// Kite fetches last-traded prices through Zerodha Kite Connect.
type Kite struct {
	exchange string
	ltp      func(instruments ...string) (map[string]float64, error)
}

// NewKite creates a Kite backend with an authenticated client.
func NewKite(cfg KiteConfig) *Kite {
	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(cfg.AccessToken)

	exchange := strings.ToUpper(strings.TrimSpace(cfg.Exchange))
	if exchange == "" {
		exchange = defaultKiteExchange
	}
	return &Kite{
		exchange: exchange,
		ltp: func(instruments ...string) (map[string]float64, error) {
			quotes, err := client.GetLTP(instruments...)
			if err != nil {
				return nil, err
			}
			out := make(map[string]float64, len(quotes))
			for k, q := range quotes {
				out[k] = q.LastPrice
			}
			return out, nil
		},
	}
}

// Name implements Provider.
func (k *Kite) Name() string { return "kite" }

func (k *Kite) instrument(symbol string) string {
	return k.exchange + ":" + symbol
}

// FetchBatch implements Provider.
func (k *Kite) FetchBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	instruments := make([]string, len(symbols))
	for i, s := range symbols {
		instruments[i] = k.instrument(s)
	}

	type result struct {
		ltp map[string]float64
		err error
	}
	done := make(chan result, 1)
	go func() {
		ltp, err := k.ltp(instruments...)
		done <- result{ltp: ltp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, apperrors.NewProviderError(k.Name(), "fetch_batch", symbols, r.err)
		}
		prices := make(map[string]float64, len(symbols))
		for _, s := range symbols {
			if p, ok := r.ltp[k.instrument(s)]; ok && p > 0 {
				prices[s] = p
			}
		}
		return prices, nil
	case <-ctx.Done():
		return nil, apperrors.NewProviderError(k.Name(), "fetch_batch", symbols, ctx.Err())
	}
}

// FetchSingle implements Provider.
func (k *Kite) FetchSingle(ctx context.Context, symbol string) (float64, error) {
	prices, err := k.FetchBatch(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	p, ok := prices[symbol]
	if !ok {
		return 0, unavailable(k.Name(), symbol)
	}
	return p, nil
}

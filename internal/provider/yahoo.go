package provider

import (
	"context"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	apperrors "price-monitor/internal/errors"
)

// YahooConfig configures the Yahoo Finance backend.
type YahooConfig struct {
	// ExtendedHours prefers pre/post-market prices outside the regular session.
	ExtendedHours bool
}

// Yahoo fetches quotes from Yahoo Finance.
type Yahoo struct {
	config YahooConfig
	list   func(symbols []string) ([]*finance.Quote, error)
}

// NewYahoo creates a Yahoo backend.
func NewYahoo(cfg YahooConfig) *Yahoo {
	return &Yahoo{config: cfg, list: listQuotes}
}

func listQuotes(symbols []string) ([]*finance.Quote, error) {
	iter := quote.List(symbols)
	var out []*finance.Quote
	for iter.Next() {
		out = append(out, iter.Quote())
	}
	return out, iter.Err()
}

// Name implements Provider.
func (y *Yahoo) Name() string { return "yahoo" }

// FetchBatch implements Provider. The underlying client has no context
// support, so the call runs in a goroutine and is abandoned on ctx expiry.
func (y *Yahoo) FetchBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	type result struct {
		quotes []*finance.Quote
		err    error
	}
	done := make(chan result, 1)
	go func() {
		q, err := y.list(symbols)
		done <- result{quotes: q, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, apperrors.NewProviderError(y.Name(), "fetch_batch", symbols, r.err)
		}
		prices := make(map[string]float64, len(r.quotes))
		for _, q := range r.quotes {
			if q == nil {
				continue
			}
			if p, ok := y.price(q); ok {
				prices[q.Symbol] = p
			}
		}
		return prices, nil
	case <-ctx.Done():
		return nil, apperrors.NewProviderError(y.Name(), "fetch_batch", symbols, ctx.Err())
	}
}

// FetchSingle implements Provider.
func (y *Yahoo) FetchSingle(ctx context.Context, symbol string) (float64, error) {
	prices, err := y.FetchBatch(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	p, ok := prices[symbol]
	if !ok {
		return 0, unavailable(y.Name(), symbol)
	}
	return p, nil
}

// price picks the session-appropriate price. Zero means Yahoo had no value.
func (y *Yahoo) price(q *finance.Quote) (float64, bool) {
	if y.config.ExtendedHours {
		switch string(q.MarketState) {
		case "PRE", "PREPRE":
			if q.PreMarketPrice > 0 {
				return q.PreMarketPrice, true
			}
		case "POST", "POSTPOST", "CLOSED":
			if q.PostMarketPrice > 0 {
				return q.PostMarketPrice, true
			}
		}
	}
	if q.RegularMarketPrice > 0 {
		return q.RegularMarketPrice, true
	}
	return 0, false
}

package provider

import (
	"context"
	"sync"
	"time"
)

// Static serves prices set by the caller. It backs tests and scripted runs.
type Static struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	delay  time.Duration
	calls  int
}

// NewStatic creates a backend serving prices.
func NewStatic(prices map[string]float64) *Static {
	s := &Static{prices: make(map[string]float64, len(prices))}
	for k, v := range prices {
		s.prices[k] = v
	}
	return s
}

// Name implements Provider.
func (s *Static) Name() string { return "static" }

// Set stores the price returned for symbol.
func (s *Static) Set(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Delete makes symbol unavailable.
func (s *Static) Delete(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, symbol)
}

// SetError makes every batch fail with err until cleared with nil.
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetDelay makes every call sleep before answering.
func (s *Static) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how many fetches were made.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Static) wait(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	d := s.delay
	s.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchBatch implements Provider.
func (s *Static) FetchBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := s.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

// FetchSingle implements Provider.
func (s *Static) FetchSingle(ctx context.Context, symbol string) (float64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}
	p, ok := s.prices[symbol]
	if !ok || !Usable(p) {
		return 0, unavailable(s.Name(), symbol)
	}
	return p, nil
}

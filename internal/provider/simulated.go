package provider

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimulatedConfig configures the random-walk backend.
type SimulatedConfig struct {
	// Seed makes walks reproducible. Zero seeds from the clock.
	Seed int64
	// Volatility is the standard deviation of each step, in percent.
	Volatility float64
	// StartPrice is the first price of every symbol.
	StartPrice float64
}

// Simulated produces a geometric random walk per symbol. It needs no network
// and is used for demos and offline runs.
type Simulated struct {
	config SimulatedConfig
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSimulated creates a simulated backend.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = 0.5
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}
	return &Simulated{
		config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		prices: make(map[string]float64),
	}
}

// Name implements Provider.
func (s *Simulated) Name() string { return "simulated" }

// FetchBatch implements Provider.
func (s *Simulated) FetchBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		out[sym] = s.step(sym)
	}
	return out, nil
}

// FetchSingle implements Provider. It reads the current price without stepping.
func (s *Simulated) FetchSingle(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.prices[symbol]; ok {
		return p, nil
	}
	s.prices[symbol] = s.config.StartPrice
	return s.config.StartPrice, nil
}

func (s *Simulated) step(symbol string) float64 {
	p, ok := s.prices[symbol]
	if !ok {
		p = s.config.StartPrice
	} else {
		p *= 1 + s.rng.NormFloat64()*s.config.Volatility/100
		p = math.Round(p*100) / 100
		if p < 0.01 {
			p = 0.01
		}
	}
	s.prices[symbol] = p
	return p
}

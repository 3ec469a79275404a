// Package monitor wires the watch-list, the poll loop and the UI channel
// together. Every mutation requested by a front-end is submitted as a command
// and executed on the service goroutine.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/export"
	"price-monitor/internal/logging"
	"price-monitor/internal/models"
	"price-monitor/internal/poller"
	"price-monitor/internal/provider"
	"price-monitor/internal/resilience"
	"price-monitor/internal/security"
	"price-monitor/internal/stream"
	"price-monitor/internal/watchlist"
	"price-monitor/pkg/utils"
)

// Config holds service settings.
type Config struct {
	Poll            poller.Config
	HistoryCap      int
	ColumnWidth     int
	Location        *time.Location
	ValidateTimeout time.Duration
}

// Service is the single entry point front-ends use.
type Service struct {
	cfg      Config
	store    *watchlist.Store
	provider provider.Provider
	hub      poller.Publisher
	loop     *poller.Loop
	logger   zerolog.Logger

	requests chan request
	quit     chan struct{}
	done     chan struct{}
	start    sync.Once
	stop     sync.Once
	running  bool
	mu       sync.Mutex
}

type request struct {
	name  string
	fn    func() error
	reply chan error
}

// New creates a service. Call Start before submitting commands.
func New(cfg Config, p provider.Provider, hub poller.Publisher, logger zerolog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = cfg.Poll.FetchTimeout
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = 5 * time.Second
	}
	store := watchlist.NewStore(cfg.HistoryCap)
	renderer := poller.NewRenderer(cfg.ColumnWidth, cfg.Location)
	return &Service{
		cfg:      cfg,
		store:    store,
		provider: p,
		hub:      hub,
		loop:     poller.New(cfg.Poll, store, p, hub, renderer, logger),
		logger:   logging.WithComponent(logger, "monitor"),
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Store exposes the watch-list for read-only queries.
func (s *Service) Store() *watchlist.Store { return s.store }

// Loop exposes the poll loop.
func (s *Service) Loop() *poller.Loop { return s.loop }

// Location returns the display timezone.
func (s *Service) Location() *time.Location { return s.cfg.Location }

// Start runs the command loop and the poll loop until Stop or ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.start.Do(func() {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()
		go s.run(ctx)
		s.loop.Start(ctx)
	})
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case req := <-s.requests:
			req.reply <- s.execute(req)
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) execute(req request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("command", req.name).Msg("Recovered from panic in command")
			err = fmt.Errorf("command %s panicked: %v", req.name, r)
		}
	}()
	return req.fn()
}

// Stop stops the poll loop after its current cycle and ends the command loop.
func (s *Service) Stop() {
	s.stop.Do(func() {
		s.loop.Stop()
		close(s.quit)
		// claim Start so a later call cannot launch the goroutine
		s.start.Do(func() {})
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			close(s.done)
		}
	})
}

// Wait blocks until both loops have exited.
func (s *Service) Wait() {
	<-s.done
	s.loop.Wait()
}

// submit runs fn on the service goroutine and waits for its result.
func (s *Service) submit(ctx context.Context, name string, fn func() error) error {
	req := request{name: name, fn: fn, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return apperrors.ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish(msg stream.Message) {
	if s.hub != nil {
		s.hub.Publish(msg)
	}
}

// AddResult describes the outcome of AddSymbol.
type AddResult struct {
	Symbol string  `json:"symbol"`
	Added  bool    `json:"added"`
	Price  float64 `json:"price,omitempty"`
}

// AddSymbol validates raw with the provider and starts tracking it. An
// already tracked symbol is reported with Added false and no error. A symbol
// the provider cannot price is rejected with ErrInvalidSymbol.
func (s *Service) AddSymbol(ctx context.Context, raw string) (AddResult, error) {
	symbol, err := security.ValidateSymbol(raw)
	if err != nil {
		return AddResult{Symbol: models.NormalizeSymbol(raw)}, err
	}
	res := AddResult{Symbol: symbol}
	if s.store.HasSymbol(symbol) {
		return res, nil
	}

	// validation fetch runs on the caller's goroutine, outside any lock
	vctx, cancel := context.WithTimeout(ctx, s.cfg.ValidateTimeout)
	price, err := s.provider.FetchSingle(vctx, symbol)
	cancel()
	if err != nil {
		lg := logging.WithSymbol(s.logger, symbol)
		lg.Warn().Err(err).Msg("Symbol validation failed")
		if apperrors.Is(err, apperrors.ErrPriceUnavailable) {
			return res, apperrors.NewValidationError("symbol", symbol, "no price available", apperrors.ErrInvalidSymbol)
		}
		return res, err
	}
	res.Price = price

	err = s.submit(ctx, "add", func() error {
		if !s.store.AddSymbol(symbol) {
			return nil
		}
		res.Added = true
		s.publish(stream.TextUpdate(fmt.Sprintf("Tracking started for %s\n", symbol)))
		s.publish(stream.TextUpdate(s.loop.Renderer().Header(s.store.Symbols())))
		s.loop.Activate()
		return nil
	})
	if err == nil && res.Added {
		s.logger.Info().Str("symbol", symbol).Float64("price", price).Msg("Tracking started")
	}
	return res, err
}

// RemoveSymbol stops tracking a symbol. The poll loop keeps running.
func (s *Service) RemoveSymbol(ctx context.Context, raw string) (bool, error) {
	symbol := models.NormalizeSymbol(raw)
	var removed bool
	err := s.submit(ctx, "remove", func() error {
		removed = s.store.RemoveSymbol(symbol)
		if removed {
			s.publish(stream.TextUpdate(fmt.Sprintf("Tracking stopped for %s\n", symbol)))
			s.publish(stream.TextUpdate(s.loop.Renderer().Header(s.store.Symbols())))
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if !removed {
		return false, apperrors.Wrapf(apperrors.ErrSymbolNotTracked, "%s", symbol)
	}
	return true, nil
}

// AddThreshold parses kind and value and adds the threshold. A duplicate
// returns false with no error; malformed input never reaches the store.
func (s *Service) AddThreshold(ctx context.Context, raw, kind, value string) (bool, error) {
	symbol := models.NormalizeSymbol(raw)
	k, v, err := security.ParseThreshold(kind, value)
	if err != nil {
		return false, err
	}
	var added, tracked bool
	err = s.submit(ctx, "add_threshold", func() error {
		tracked = s.store.HasSymbol(symbol)
		added = s.store.AddThreshold(symbol, k, v)
		return nil
	})
	if err != nil {
		return false, err
	}
	if !tracked {
		return false, apperrors.Wrapf(apperrors.ErrSymbolNotTracked, "%s", symbol)
	}
	if added {
		s.logger.Info().Str("symbol", symbol).Str("kind", string(k)).Float64("value", v).Msg("Threshold added")
	}
	return added, nil
}

// RemoveThreshold removes a threshold. Stale requests return false.
func (s *Service) RemoveThreshold(ctx context.Context, raw, kind, value string) (bool, error) {
	symbol := models.NormalizeSymbol(raw)
	k, v, err := security.ParseThreshold(kind, value)
	if err != nil {
		return false, err
	}
	var removed, tracked bool
	err = s.submit(ctx, "remove_threshold", func() error {
		tracked = s.store.HasSymbol(symbol)
		removed = s.store.RemoveThreshold(symbol, k, v)
		return nil
	})
	if err != nil {
		return false, err
	}
	if !tracked {
		return false, apperrors.Wrapf(apperrors.ErrSymbolNotTracked, "%s", symbol)
	}
	return removed, nil
}

// Thresholds lists a symbol's thresholds with their armed flags.
func (s *Service) Thresholds(raw string) ([]models.ThresholdView, error) {
	symbol := models.NormalizeSymbol(raw)
	views, ok := s.store.Views(symbol)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrSymbolNotTracked, "%s", symbol)
	}
	return views, nil
}

// Symbols returns the tracked symbols in order.
func (s *Service) Symbols() []string { return s.store.Symbols() }

// History returns a copy of the observation history.
func (s *Service) History() []models.Observation { return s.store.History() }

// ClearHistory empties the history and tells renderers to reset.
func (s *Service) ClearHistory(ctx context.Context) error {
	return s.submit(ctx, "clear", func() error {
		s.store.ClearHistory()
		s.publish(stream.Cleared())
		if header := s.loop.Renderer().Header(s.store.Symbols()); header != "" {
			s.publish(stream.TextUpdate(header))
		}
		return nil
	})
}

// Export writes the current history to path, picking the format from the
// file extension.
func (s *Service) Export(ctx context.Context, path string) (int, error) {
	format, err := export.FormatForPath(path)
	if err != nil {
		return 0, err
	}
	records := s.store.History()
	if err := export.Save(ctx, path, format, records, s.cfg.Location); err != nil {
		return 0, err
	}
	s.logger.Info().Str("path", path).Int("records", len(records)).Msg("History exported")
	return len(records), nil
}

// Status is a point-in-time summary for status endpoints.
type Status struct {
	Provider      string                          `json:"provider"`
	Breaker       *resilience.CircuitBreakerStats `json:"breaker,omitempty"`
	Loop          poller.Stats                    `json:"loop"`
	Symbols       []string                        `json:"symbols"`
	HistoryLen    int                             `json:"history_len"`
	HistoryCap    int                             `json:"history_cap"`
	MarketSession models.MarketStatus             `json:"market_session"`
	NextOpen      *time.Time                      `json:"next_open,omitempty"`
	Time          time.Time                       `json:"time"`
}

// Status reports the service state.
func (s *Service) Status() Status {
	st := Status{
		Provider:      s.provider.Name(),
		Loop:          s.loop.Stats(),
		Symbols:       s.store.Symbols(),
		HistoryLen:    s.store.HistoryLen(),
		HistoryCap:    s.store.HistoryCap(),
		MarketSession: utils.GetMarketStatus(),
		Time:          time.Now().In(s.cfg.Location),
	}
	if st.MarketSession != models.MarketOpen {
		next := utils.GetNextMarketOpen().In(s.cfg.Location)
		st.NextOpen = &next
	}
	if g, ok := s.provider.(*provider.Guarded); ok {
		stats := g.Breaker().Stats()
		st.Breaker = &stats
	}
	return st
}

// Package poller runs the fixed-interval price polling loop.
package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"price-monitor/internal/alerts"
	"price-monitor/internal/logging"
	"price-monitor/internal/models"
	"price-monitor/internal/provider"
	"price-monitor/internal/stream"
	"price-monitor/internal/watchlist"
)

// State is the loop lifecycle state.
type State int32

const (
	// Idle means no symbol has been added yet.
	Idle State = iota
	// Polling means the ticker is armed.
	Polling
	// Stopped means shutdown was requested.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Publisher receives UI channel messages.
type Publisher interface {
	Publish(msg stream.Message)
}

// Config holds loop tuning.
type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// DefaultConfig returns a 10s interval and a 5s fetch timeout.
func DefaultConfig() Config {
	return Config{Interval: 10 * time.Second, FetchTimeout: 5 * time.Second}
}

// Alert is the set of messages one symbol fired in one cycle.
type Alert struct {
	Symbol   string
	Price    float64
	Messages []string
}

// CycleReport summarises one cycle.
type CycleReport struct {
	Time     time.Time
	Symbols  []string
	Observed []models.Observation
	Skipped  []string
	Alerts   []Alert
	Duration time.Duration
	Err      error
}

// Loop polls the provider on a fixed tick-to-tick interval and feeds each
// usable price into the store.
type Loop struct {
	cfg      Config
	store    *watchlist.Store
	provider provider.Provider
	out      Publisher
	renderer *Renderer
	logger   zerolog.Logger
	now      func() time.Time

	state    atomic.Int32
	activate chan struct{}
	stop     chan struct{}
	done     chan struct{}

	activateOnce sync.Once
	stopOnce     sync.Once
	startOnce    sync.Once
	started      atomic.Bool

	cycles   atomic.Uint64
	failures atomic.Uint64
	lastRun  atomic.Int64
}

// New creates an idle loop.
func New(cfg Config, store *watchlist.Store, p provider.Provider, out Publisher, renderer *Renderer, logger zerolog.Logger) *Loop {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if renderer == nil {
		renderer = NewRenderer(0, nil)
	}
	return &Loop{
		cfg:      cfg,
		store:    store,
		provider: p,
		out:      out,
		renderer: renderer,
		logger:   logging.WithComponent(logger, "poller"),
		now:      time.Now,
		activate: make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Renderer returns the table renderer used for text rows.
func (l *Loop) Renderer() *Renderer { return l.renderer }

// Interval returns the tick-to-tick interval.
func (l *Loop) Interval() time.Duration { return l.cfg.Interval }

// Activate moves Idle to Polling. It has no effect in any other state.
func (l *Loop) Activate() {
	if l.state.CompareAndSwap(int32(Idle), int32(Polling)) {
		l.activateOnce.Do(func() { close(l.activate) })
	}
}

// Start runs the loop in a goroutine until Stop is called or ctx ends.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		if l.State() == Stopped {
			return
		}
		l.started.Store(true)
		go l.run(ctx)
	})
}

// Stop requests shutdown. An in-flight cycle completes first.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.state.Store(int32(Stopped))
		close(l.stop)
		// claim Start so a later call cannot launch the goroutine
		l.startOnce.Do(func() {})
		if !l.started.Load() {
			close(l.done)
		}
	})
}

// Wait blocks until the loop goroutine has exited. It returns immediately if
// the loop was stopped without being started.
func (l *Loop) Wait() {
	<-l.done
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	select {
	case <-l.activate:
	case <-l.stop:
		return
	case <-ctx.Done():
		l.Stop()
		return
	}

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.RunCycle(ctx)
	for {
		select {
		case <-l.stop:
			return
		case <-ctx.Done():
			l.Stop()
			return
		case <-ticker.C:
			// a tick can race a stop request; stop wins
			select {
			case <-l.stop:
				return
			default:
			}
			l.RunCycle(ctx)
		}
	}
}

// RunCycle performs one poll cycle synchronously. A whole-batch failure
// leaves the store untouched and is reported in CycleReport.Err.
func (l *Loop) RunCycle(ctx context.Context) (report CycleReport) {
	start := l.now()
	began := time.Now()
	report.Time = start
	l.cycles.Add(1)
	l.lastRun.Store(start.UnixNano())

	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("poll cycle panic: %v", r)
			l.failures.Add(1)
			l.logger.Error().Interface("panic", r).Msg("Recovered from panic in poll cycle")
		}
		report.Duration = time.Since(began)
	}()

	symbols := l.store.Symbols()
	report.Symbols = symbols
	if len(symbols) == 0 {
		return report
	}

	if line, ok := l.renderer.DateLine(start); ok {
		l.publish(stream.TextUpdate(line))
	}

	// Stop must not cut a fetch short; only the fetch timeout can.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.FetchTimeout)
	prices, err := l.provider.FetchBatch(fetchCtx, symbols)
	cancel()
	logging.LogProviderCall(l.logger, l.provider.Name(), "fetch_batch", len(symbols), time.Since(began), err)

	cells := make([]Cell, len(symbols))
	for i, sym := range symbols {
		cells[i].Symbol = sym
	}

	if err != nil {
		report.Err = err
		report.Skipped = symbols
		l.failures.Add(1)
		logging.LogCycle(l.logger, len(symbols), 0, time.Since(began), err)
		l.publish(stream.TextUpdate(l.renderer.Rows(start, cells)))
		return report
	}

	for i, sym := range symbols {
		price, ok := prices[sym]
		if !ok || !provider.Usable(price) {
			report.Skipped = append(report.Skipped, sym)
			continue
		}
		obs, triggers, tracked := l.store.Observe(sym, price, start)
		if !tracked {
			report.Skipped = append(report.Skipped, sym)
			continue
		}
		cells[i] = Cell{Symbol: sym, Price: price, Change: obs.ChangePercent, OK: true}
		report.Observed = append(report.Observed, obs)
		if len(triggers) > 0 {
			report.Alerts = append(report.Alerts, Alert{Symbol: sym, Price: price, Messages: alerts.Messages(triggers)})
		}
	}

	l.publish(stream.TextUpdate(l.renderer.Rows(start, cells)))
	for _, a := range report.Alerts {
		logging.LogAlert(l.logger, a.Symbol, a.Price, a.Messages)
		l.publish(stream.AlertFired(a.Symbol, a.Messages))
	}
	logging.LogCycle(l.logger, len(symbols), len(report.Observed), time.Since(began), nil)
	return report
}

func (l *Loop) publish(msg stream.Message) {
	if l.out != nil {
		l.out.Publish(msg)
	}
}

// Stats are loop counters for status reporting.
type Stats struct {
	State    string    `json:"state"`
	Cycles   uint64    `json:"cycles"`
	Failures uint64    `json:"failures"`
	LastRun  time.Time `json:"last_run,omitempty"`
	Interval string    `json:"interval"`
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	s := Stats{
		State:    l.State().String(),
		Cycles:   l.cycles.Load(),
		Failures: l.failures.Load(),
		Interval: l.cfg.Interval.String(),
	}
	if ns := l.lastRun.Load(); ns != 0 {
		s.LastRun = time.Unix(0, ns)
	}
	return s
}

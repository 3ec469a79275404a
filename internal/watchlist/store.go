// Package watchlist owns every piece of per-symbol mutable state: the ordered
// symbol list, thresholds with their armed flags, the last observed prices and
// the observation history. All access goes through Store and its single lock.
package watchlist

import (
	"sync"
	"time"

	"price-monitor/internal/alerts"
	"price-monitor/internal/history"
	"price-monitor/internal/models"
)

// Store is the watch-list aggregate. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	symbols []string
	engine  *alerts.Engine
	memory  PriceMemory
	history *history.Buffer
}

// NewStore creates an empty store whose history holds at most historyCap records.
func NewStore(historyCap int) *Store {
	return &Store{
		engine:  alerts.NewEngine(),
		memory:  make(PriceMemory),
		history: history.NewBuffer(historyCap),
	}
}

// AddSymbol starts tracking symbol. It returns false if already tracked.
func (s *Store) AddSymbol(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.Track(symbol) {
		return false
	}
	s.symbols = append(s.symbols, symbol)
	return true
}

// RemoveSymbol stops tracking symbol and drops its thresholds and price memory.
// History records already captured are kept.
func (s *Store) RemoveSymbol(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.Untrack(symbol) {
		return false
	}
	for i, sym := range s.symbols {
		if sym == symbol {
			s.symbols = append(s.symbols[:i:i], s.symbols[i+1:]...)
			break
		}
	}
	delete(s.memory, symbol)
	return true
}

// Symbols returns the tracked symbols in the order they were added.
func (s *Store) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// HasSymbol reports whether symbol is tracked.
func (s *Store) HasSymbol(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Tracked(symbol)
}

// AddThreshold adds a disarmed threshold. False for an unknown symbol or a duplicate.
func (s *Store) AddThreshold(symbol string, kind models.ThresholdKind, value float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.AddThreshold(symbol, kind, value)
}

// RemoveThreshold removes a threshold and its state. False when nothing matched.
func (s *Store) RemoveThreshold(symbol string, kind models.ThresholdKind, value float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.RemoveThreshold(symbol, kind, value)
}

// Thresholds copies the symbol's four collections.
func (s *Store) Thresholds(symbol string) (models.ThresholdSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot(symbol)
}

// Views lists the symbol's thresholds with their armed flags.
func (s *Store) Views(symbol string) ([]models.ThresholdView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Views(symbol)
}

// LastPrice returns the remembered price for symbol.
func (s *Store) LastPrice(symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.memory[symbol]
	return p, ok
}

// Observe applies one successful price observation: percentage change against
// the remembered price, alert evaluation, price memory update and history
// append, all under one critical section. ok is false when the symbol is no
// longer tracked, in which case nothing changes.
func (s *Store) Observe(symbol string, price float64, at time.Time) (obs models.Observation, triggers []alerts.Trigger, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.engine.Tracked(symbol) {
		return models.Observation{}, nil, false
	}

	var change *float64
	if pct, defined := s.memory.Change(symbol, price); defined {
		change = &pct
	}

	triggers = s.engine.Evaluate(symbol, price, change)
	s.memory[symbol] = price

	thresholds, _ := s.engine.Snapshot(symbol)
	obs = models.Observation{
		Timestamp:     at,
		Symbol:        symbol,
		Price:         price,
		ChangePercent: change,
		Thresholds:    thresholds,
	}
	s.history.Append(obs)
	return obs, triggers, true
}

// History returns a deep copy of the buffered observations.
func (s *Store) History() []models.Observation {
	return s.history.Snapshot()
}

// HistoryLen returns the number of buffered observations.
func (s *Store) HistoryLen() int {
	return s.history.Len()
}

// HistoryCap returns the configured history cap.
func (s *Store) HistoryCap() int {
	return s.history.Cap()
}

// ClearHistory empties the observation history.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Clear()
}

// State is a deep copy of everything the store holds at one instant.
type State struct {
	Symbols    []string
	Thresholds map[string][]models.ThresholdView
	Memory     PriceMemory
	History    []models.Observation
}

// State captures a consistent copy of the whole store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Symbols:    make([]string, len(s.symbols)),
		Thresholds: make(map[string][]models.ThresholdView, len(s.symbols)),
		Memory:     s.memory.Clone(),
		History:    s.history.Snapshot(),
	}
	copy(st.Symbols, s.symbols)
	for _, sym := range s.symbols {
		st.Thresholds[sym], _ = s.engine.Views(sym)
	}
	return st
}

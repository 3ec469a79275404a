package alerts

import (
	"price-monitor/internal/models"
)

// Engine keeps one ThresholdSet per tracked symbol.
// Like ThresholdSet it does no locking of its own.
type Engine struct {
	sets map[string]*ThresholdSet
}

// NewEngine creates an engine with no symbols.
func NewEngine() *Engine {
	return &Engine{sets: make(map[string]*ThresholdSet)}
}

// Track creates an empty set for symbol. It returns false if already tracked.
func (e *Engine) Track(symbol string) bool {
	if _, ok := e.sets[symbol]; ok {
		return false
	}
	e.sets[symbol] = NewThresholdSet()
	return true
}

// Untrack destroys the symbol's thresholds and their states.
func (e *Engine) Untrack(symbol string) bool {
	if _, ok := e.sets[symbol]; !ok {
		return false
	}
	delete(e.sets, symbol)
	return true
}

// Tracked reports whether the symbol has a threshold set.
func (e *Engine) Tracked(symbol string) bool {
	_, ok := e.sets[symbol]
	return ok
}

// AddThreshold appends a disarmed threshold. False when the symbol is unknown
// or the value is a duplicate.
func (e *Engine) AddThreshold(symbol string, kind models.ThresholdKind, value float64) bool {
	set, ok := e.sets[symbol]
	if !ok {
		return false
	}
	return set.Add(kind, value)
}

// RemoveThreshold drops a threshold and its state. False when nothing matched.
func (e *Engine) RemoveThreshold(symbol string, kind models.ThresholdKind, value float64) bool {
	set, ok := e.sets[symbol]
	if !ok {
		return false
	}
	return set.Remove(kind, value)
}

// Evaluate runs the symbol's thresholds against a new observation.
func (e *Engine) Evaluate(symbol string, price float64, pct *float64) []Trigger {
	set, ok := e.sets[symbol]
	if !ok {
		return nil
	}
	return set.Evaluate(price, pct)
}

// Snapshot copies the symbol's four collections.
func (e *Engine) Snapshot(symbol string) (models.ThresholdSnapshot, bool) {
	set, ok := e.sets[symbol]
	if !ok {
		return models.ThresholdSnapshot{}, false
	}
	return set.Snapshot(), true
}

// Views lists the symbol's thresholds with their armed flags.
func (e *Engine) Views(symbol string) ([]models.ThresholdView, bool) {
	set, ok := e.sets[symbol]
	if !ok {
		return nil, false
	}
	return set.Views(), true
}

// Armed reports the state of a single threshold.
func (e *Engine) Armed(symbol string, kind models.ThresholdKind, value float64) (armed, ok bool) {
	set, found := e.sets[symbol]
	if !found {
		return false, false
	}
	return set.Armed(kind, value)
}

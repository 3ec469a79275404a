// Package models provides domain models for the price monitor.
package models

import (
	"strings"
	"time"
)

// MarketStatus represents the current US equity session.
type MarketStatus string

const (
	MarketPreOpen  MarketStatus = "PRE_MARKET"
	MarketOpen     MarketStatus = "OPEN"
	MarketPostOpen MarketStatus = "POST_MARKET"
	MarketClosed   MarketStatus = "CLOSED"
)

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Observation is an immutable capture of one symbol's state at one cycle.
type Observation struct {
	Timestamp     time.Time         `json:"timestamp"`
	Symbol        string            `json:"symbol"`
	Price         float64           `json:"price"`
	ChangePercent *float64          `json:"change_percent"` // nil when undefined
	Thresholds    ThresholdSnapshot `json:"thresholds"`
}

// HasChange reports whether the percentage change was defined.
func (o Observation) HasChange() bool {
	return o.ChangePercent != nil
}

// Clone returns a deep copy so callers cannot reach shared backing arrays.
func (o Observation) Clone() Observation {
	c := o
	if o.ChangePercent != nil {
		v := *o.ChangePercent
		c.ChangePercent = &v
	}
	c.Thresholds = o.Thresholds.Clone()
	return c
}

package models

import "fmt"

// ThresholdKind identifies one of the four threshold collections of a symbol.
type ThresholdKind string

const (
	PriceAbove   ThresholdKind = "price_above"
	PriceBelow   ThresholdKind = "price_below"
	PercentAbove ThresholdKind = "percent_above"
	PercentBelow ThresholdKind = "percent_below"
)

// ThresholdKinds lists the kinds in evaluation and output order.
var ThresholdKinds = []ThresholdKind{PriceAbove, PriceBelow, PercentAbove, PercentBelow}

// ParseThresholdKind accepts the canonical names plus the short aliases used by
// the terminal front-end.
func ParseThresholdKind(s string) (ThresholdKind, error) {
	switch s {
	case "price_above", "above", "price_high":
		return PriceAbove, nil
	case "price_below", "below", "price_low":
		return PriceBelow, nil
	case "percent_above", "pabove", "percent_high":
		return PercentAbove, nil
	case "percent_below", "pbelow", "percent_low":
		return PercentBelow, nil
	}
	return "", fmt.Errorf("unknown threshold kind %q", s)
}

// IsPercent reports whether the kind compares against the percentage change.
func (k ThresholdKind) IsPercent() bool {
	return k == PercentAbove || k == PercentBelow
}

// Label returns the human readable column label.
func (k ThresholdKind) Label() string {
	switch k {
	case PriceAbove:
		return "Price Above"
	case PriceBelow:
		return "Price Below"
	case PercentAbove:
		return "% Above"
	case PercentBelow:
		return "% Below"
	}
	return string(k)
}

// ThresholdSnapshot is a copy of the four threshold collections at one instant.
type ThresholdSnapshot struct {
	PriceAbove   []float64 `json:"price_above"`
	PriceBelow   []float64 `json:"price_below"`
	PercentAbove []float64 `json:"percent_above"`
	PercentBelow []float64 `json:"percent_below"`
}

// Values returns the collection for a kind.
func (s ThresholdSnapshot) Values(kind ThresholdKind) []float64 {
	switch kind {
	case PriceAbove:
		return s.PriceAbove
	case PriceBelow:
		return s.PriceBelow
	case PercentAbove:
		return s.PercentAbove
	case PercentBelow:
		return s.PercentBelow
	}
	return nil
}

// Clone returns a deep copy.
func (s ThresholdSnapshot) Clone() ThresholdSnapshot {
	return ThresholdSnapshot{
		PriceAbove:   cloneFloats(s.PriceAbove),
		PriceBelow:   cloneFloats(s.PriceBelow),
		PercentAbove: cloneFloats(s.PercentAbove),
		PercentBelow: cloneFloats(s.PercentBelow),
	}
}

// Empty reports whether no threshold is set.
func (s ThresholdSnapshot) Empty() bool {
	return len(s.PriceAbove)+len(s.PriceBelow)+len(s.PercentAbove)+len(s.PercentBelow) == 0
}

func cloneFloats(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	return out
}

// ThresholdView is a single threshold with its edge-trigger state, for display.
type ThresholdView struct {
	Kind  ThresholdKind `json:"kind"`
	Value float64       `json:"value"`
	Armed bool          `json:"armed"`
}

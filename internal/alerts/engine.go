// Package alerts implements edge-triggered threshold alerts over price and
// percentage-change series.
package alerts

import (
	"fmt"
	"strconv"

	"price-monitor/internal/models"
)

// Trigger describes one threshold that fired during an evaluation.
type Trigger struct {
	Kind    models.ThresholdKind
	Value   float64
	Message string
}

// threshold pairs a value with its armed flag so the two cannot drift apart.
type threshold struct {
	value float64
	armed bool
}

// rule maps a kind to the series it reads and the side of the value that fires it.
type rule struct {
	percent bool
	fires   func(x, v float64) bool
	message func(v float64) string
}

var rules = map[models.ThresholdKind]rule{
	models.PriceAbove: {
		fires:   func(x, v float64) bool { return x >= v },
		message: func(v float64) string { return "Price above " + FormatValue(v) },
	},
	models.PriceBelow: {
		fires:   func(x, v float64) bool { return x <= v },
		message: func(v float64) string { return "Price below " + FormatValue(v) },
	},
	models.PercentAbove: {
		percent: true,
		fires:   func(x, v float64) bool { return x >= v },
		message: func(v float64) string { return fmt.Sprintf("Percentage change above %s%%", FormatValue(v)) },
	},
	models.PercentBelow: {
		percent: true,
		fires:   func(x, v float64) bool { return x <= v },
		message: func(v float64) string { return fmt.Sprintf("Percentage change below %s%%", FormatValue(v)) },
	},
}

// FormatValue renders a threshold value in its shortest decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ThresholdSet holds the four ordered threshold collections of one symbol.
// It is not safe for concurrent use; the owning store serialises access.
type ThresholdSet struct {
	lists map[models.ThresholdKind][]threshold
}

// NewThresholdSet creates an empty set.
func NewThresholdSet() *ThresholdSet {
	return &ThresholdSet{lists: make(map[models.ThresholdKind][]threshold, len(models.ThresholdKinds))}
}

// Add appends value to the kind's collection in the disarmed state.
// It returns false when the value is already present.
func (s *ThresholdSet) Add(kind models.ThresholdKind, value float64) bool {
	if _, ok := rules[kind]; !ok {
		return false
	}
	if s.index(kind, value) >= 0 {
		return false
	}
	s.lists[kind] = append(s.lists[kind], threshold{value: value})
	return true
}

// Remove deletes value and its armed flag. It returns false when absent.
func (s *ThresholdSet) Remove(kind models.ThresholdKind, value float64) bool {
	i := s.index(kind, value)
	if i < 0 {
		return false
	}
	list := s.lists[kind]
	s.lists[kind] = append(list[:i:i], list[i+1:]...)
	return true
}

// Armed reports the armed flag of a value; ok is false when the value is absent.
func (s *ThresholdSet) Armed(kind models.ThresholdKind, value float64) (armed, ok bool) {
	i := s.index(kind, value)
	if i < 0 {
		return false, false
	}
	return s.lists[kind][i].armed, true
}

// Len returns the number of values across all kinds.
func (s *ThresholdSet) Len() int {
	n := 0
	for _, list := range s.lists {
		n += len(list)
	}
	return n
}

// Values returns a copy of one collection in insertion order.
func (s *ThresholdSet) Values(kind models.ThresholdKind) []float64 {
	list := s.lists[kind]
	out := make([]float64, len(list))
	for i, t := range list {
		out[i] = t.value
	}
	return out
}

// Snapshot copies all four collections.
func (s *ThresholdSet) Snapshot() models.ThresholdSnapshot {
	return models.ThresholdSnapshot{
		PriceAbove:   s.Values(models.PriceAbove),
		PriceBelow:   s.Values(models.PriceBelow),
		PercentAbove: s.Values(models.PercentAbove),
		PercentBelow: s.Values(models.PercentBelow),
	}
}

// Views lists every threshold with its state in output order.
func (s *ThresholdSet) Views() []models.ThresholdView {
	views := make([]models.ThresholdView, 0, s.Len())
	for _, kind := range models.ThresholdKinds {
		for _, t := range s.lists[kind] {
			views = append(views, models.ThresholdView{Kind: kind, Value: t.value, Armed: t.armed})
		}
	}
	return views
}

// Evaluate applies the edge-triggered rule to every threshold and returns the
// thresholds that fired, in kind order then insertion order. A nil pct leaves
// percent thresholds untouched.
func (s *ThresholdSet) Evaluate(price float64, pct *float64) []Trigger {
	var triggers []Trigger
	for _, kind := range models.ThresholdKinds {
		r := rules[kind]
		x := price
		if r.percent {
			if pct == nil {
				continue
			}
			x = *pct
		}
		list := s.lists[kind]
		for i := range list {
			t := &list[i]
			hit := r.fires(x, t.value)
			switch {
			case !t.armed && hit:
				t.armed = true
				triggers = append(triggers, Trigger{Kind: kind, Value: t.value, Message: r.message(t.value)})
			case t.armed && !hit:
				t.armed = false
			}
		}
	}
	return triggers
}

// index uses exact float equality.
func (s *ThresholdSet) index(kind models.ThresholdKind, value float64) int {
	for i, t := range s.lists[kind] {
		if t.value == value {
			return i
		}
	}
	return -1
}

// Messages extracts the message strings from triggers.
func Messages(triggers []Trigger) []string {
	if len(triggers) == 0 {
		return nil
	}
	out := make([]string, len(triggers))
	for i, t := range triggers {
		out[i] = t.Message
	}
	return out
}

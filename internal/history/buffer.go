// Package history keeps a capped, ordered log of observations.
package history

import (
	"sync"

	"price-monitor/internal/models"
)

// DefaultCap is the record count used when no cap is configured.
const DefaultCap = 500

// Buffer is an append-only list of observations with FIFO eviction.
// It is safe for concurrent use.
type Buffer struct {
	mu      sync.RWMutex
	records []models.Observation
	cap     int
}

// NewBuffer creates a buffer holding at most capacity records.
// A non-positive capacity falls back to DefaultCap.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Buffer{
		records: make([]models.Observation, 0, capacity),
		cap:     capacity,
	}
}

// Append adds rec at the tail and evicts from the head while over the cap.
func (b *Buffer) Append(rec models.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, rec.Clone())
	if over := len(b.records) - b.cap; over > 0 {
		// shift down instead of reslicing so the backing array does not grow forever
		n := copy(b.records, b.records[over:])
		for i := n; i < len(b.records); i++ {
			b.records[i] = models.Observation{}
		}
		b.records = b.records[:n]
	}
}

// Snapshot returns a deep copy of the records in append order.
func (b *Buffer) Snapshot() []models.Observation {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Observation, len(b.records))
	for i, r := range b.records {
		out[i] = r.Clone()
	}
	return out
}

// Clear drops every record.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = make([]models.Observation, 0, b.cap)
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Cap returns the configured maximum.
func (b *Buffer) Cap() int {
	return b.cap
}

// Symbols returns the distinct symbols present, in first-appearance order.
func (b *Buffer) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return DistinctSymbols(b.records)
}

// DistinctSymbols lists the symbols of records in first-appearance order.
func DistinctSymbols(records []models.Observation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Symbol] {
			seen[r.Symbol] = true
			out = append(out, r.Symbol)
		}
	}
	return out
}

// Package store writes observation history to durable archives.
package store

import (
	"context"

	"price-monitor/internal/models"
)

// Archive receives history snapshots. It is an export target; nothing is
// ever read back into a running monitor.
type Archive interface {
	// SaveObservations writes records under runID and returns how many were written.
	SaveObservations(ctx context.Context, runID string, records []models.Observation) (int, error)
	// Observations reads back the records of symbol, or of every symbol when empty.
	Observations(ctx context.Context, symbol string) ([]models.Observation, error)
	Close() error
}

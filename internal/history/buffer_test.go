package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/internal/models"
)

func record(i int) models.Observation {
	return models.Observation{
		Timestamp: time.Unix(int64(i), 0).UTC(),
		Symbol:    "ABC",
		Price:     float64(i),
	}
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	b := NewBuffer(500)
	for i := 1; i <= 501; i++ {
		b.Append(record(i))
	}

	snap := b.Snapshot()
	require.Len(t, snap, 500)
	assert.Equal(t, float64(2), snap[0].Price, "first record should be the 2nd appended")
	assert.Equal(t, float64(501), snap[499].Price)
}

func TestNonPositiveCapUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultCap, NewBuffer(0).Cap())
	assert.Equal(t, DefaultCap, NewBuffer(-3).Cap())
	assert.Equal(t, 7, NewBuffer(7).Cap())
}

func TestSnapshotCannotCorruptBuffer(t *testing.T) {
	b := NewBuffer(10)
	change := 1.5
	b.Append(models.Observation{
		Symbol:        "ABC",
		Price:         10,
		ChangePercent: &change,
		Thresholds:    models.ThresholdSnapshot{PriceAbove: []float64{11}},
	})

	snap := b.Snapshot()
	snap[0].Price = 0
	*snap[0].ChangePercent = 99
	snap[0].Thresholds.PriceAbove[0] = 99

	again := b.Snapshot()
	assert.Equal(t, float64(10), again[0].Price)
	assert.Equal(t, 1.5, *again[0].ChangePercent)
	assert.Equal(t, []float64{11}, again[0].Thresholds.PriceAbove)

	// the caller's original record is not aliased either
	change = 42
	assert.Equal(t, 1.5, *b.Snapshot()[0].ChangePercent)
}

func TestClear(t *testing.T) {
	b := NewBuffer(3)
	b.Append(record(1))
	b.Append(record(2))
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())

	b.Append(record(3))
	assert.Equal(t, 1, b.Len())
}

func TestDistinctSymbolsKeepsFirstAppearance(t *testing.T) {
	b := NewBuffer(10)
	for _, s := range []string{"MSFT", "AAPL", "MSFT", "TSLA", "AAPL"} {
		b.Append(models.Observation{Symbol: s})
	}
	assert.Equal(t, []string{"MSFT", "AAPL", "TSLA"}, b.Symbols())
}

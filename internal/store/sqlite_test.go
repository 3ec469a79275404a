package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/internal/models"
)

func TestArchiveWritesAndReadsBack(t *testing.T) {
	a, err := OpenArchive(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer a.Close()

	change := -6.0
	at := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	records := []models.Observation{
		{Timestamp: at, Symbol: "XYZ", Price: 100, Thresholds: models.ThresholdSnapshot{PercentBelow: []float64{-5}}},
		{Timestamp: at.Add(10 * time.Second), Symbol: "XYZ", Price: 94, ChangePercent: &change},
		{Timestamp: at, Symbol: "ABC", Price: 12.5, Thresholds: models.ThresholdSnapshot{PriceAbove: []float64{13, 14}}},
	}

	ctx := context.Background()
	n, err := a.SaveObservations(ctx, "run-1", records)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	xyz, err := a.Observations(ctx, "XYZ")
	require.NoError(t, err)
	require.Len(t, xyz, 2)
	assert.Nil(t, xyz[0].ChangePercent)
	assert.Equal(t, []float64{-5}, xyz[0].Thresholds.PercentBelow)
	require.NotNil(t, xyz[1].ChangePercent)
	assert.Equal(t, -6.0, *xyz[1].ChangePercent)
	assert.True(t, at.Add(10*time.Second).Equal(xyz[1].Timestamp))

	all, err := a.Observations(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{13, 14}, all[2].Thresholds.PriceAbove)
	assert.Equal(t, []float64{}, all[2].Thresholds.PriceBelow)
}

func TestArchiveAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	rec := []models.Observation{{Timestamp: time.Now(), Symbol: "A", Price: 1}}

	for i := 0; i < 2; i++ {
		a, err := OpenArchive(path)
		require.NoError(t, err)
		_, err = a.SaveObservations(ctx, "run", rec)
		require.NoError(t, err)
		require.NoError(t, a.Close())
	}

	a, err := OpenArchive(path)
	require.NoError(t, err)
	defer a.Close()
	got, err := a.Observations(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

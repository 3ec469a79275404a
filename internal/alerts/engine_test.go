package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/internal/models"
)

func pct(v float64) *float64 { return &v }

func TestPriceAboveFiresOncePerCrossing(t *testing.T) {
	set := NewThresholdSet()
	require.True(t, set.Add(models.PriceAbove, 100))

	prices := []float64{95, 101, 101, 99, 101}
	want := [][]string{nil, {"Price above 100"}, nil, nil, {"Price above 100"}}

	for i, p := range prices {
		got := Messages(set.Evaluate(p, nil))
		assert.Equal(t, want[i], got, "cycle %d price %v", i+1, p)
	}
}

func TestPriceBelowBoundaryIsInclusive(t *testing.T) {
	set := NewThresholdSet()
	set.Add(models.PriceBelow, 50)

	assert.Equal(t, []string{"Price below 50"}, Messages(set.Evaluate(50, nil)))
	assert.Empty(t, set.Evaluate(49, nil))

	// 50 is still "at or below", so no disarm.
	assert.Empty(t, set.Evaluate(50, nil))
	armed, ok := set.Armed(models.PriceBelow, 50)
	require.True(t, ok)
	assert.True(t, armed)

	assert.Empty(t, set.Evaluate(50.01, nil))
	armed, _ = set.Armed(models.PriceBelow, 50)
	assert.False(t, armed)
}

func TestPercentThresholdsIgnoreUndefinedChange(t *testing.T) {
	set := NewThresholdSet()
	set.Add(models.PercentBelow, -5)
	set.Add(models.PercentAbove, 2)

	assert.Empty(t, set.Evaluate(100, nil))

	got := Messages(set.Evaluate(94, pct(-6)))
	assert.Equal(t, []string{"Percentage change below -5%"}, got)

	// undefined change must not disarm
	assert.Empty(t, set.Evaluate(94, nil))
	armed, _ := set.Armed(models.PercentBelow, -5)
	assert.True(t, armed)

	assert.Empty(t, set.Evaluate(95, pct(1)))
	armed, _ = set.Armed(models.PercentBelow, -5)
	assert.False(t, armed)

	assert.Equal(t, []string{"Percentage change above 2%"}, Messages(set.Evaluate(97, pct(2))))
}

func TestEvaluateOutputOrder(t *testing.T) {
	set := NewThresholdSet()
	set.Add(models.PercentBelow, 10)
	set.Add(models.PriceBelow, 200)
	set.Add(models.PriceAbove, 50)
	set.Add(models.PriceAbove, 10)
	set.Add(models.PercentAbove, -1)

	got := Messages(set.Evaluate(100, pct(0)))
	assert.Equal(t, []string{
		"Price above 50",
		"Price above 10",
		"Price below 200",
		"Percentage change above -1%",
		"Percentage change below 10%",
	}, got)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	set := NewThresholdSet()
	set.Add(models.PriceAbove, 10)
	set.Add(models.PercentAbove, 1)

	first := set.Evaluate(20, pct(3))
	require.Len(t, first, 2)
	assert.Empty(t, set.Evaluate(20, pct(3)))
}

func TestAddRemoveKeepStateInLockStep(t *testing.T) {
	set := NewThresholdSet()
	assert.True(t, set.Add(models.PriceAbove, 100))
	assert.False(t, set.Add(models.PriceAbove, 100), "duplicate add is a no-op")
	assert.True(t, set.Add(models.PriceBelow, 100), "same value in another kind is independent")

	set.Evaluate(150, nil)
	armed, ok := set.Armed(models.PriceAbove, 100)
	require.True(t, ok)
	require.True(t, armed)

	assert.True(t, set.Remove(models.PriceAbove, 100))
	_, ok = set.Armed(models.PriceAbove, 100)
	assert.False(t, ok)
	assert.False(t, set.Remove(models.PriceAbove, 100))

	// re-adding starts disarmed and fires again
	set.Add(models.PriceAbove, 100)
	assert.Equal(t, []string{"Price above 100"}, Messages(set.Evaluate(150, nil)))
}

func TestRemoveUsesExactMatch(t *testing.T) {
	set := NewThresholdSet()
	set.Add(models.PriceAbove, 0.3)

	// computed at run time: float64 addition lands one ulp above 0.3
	x, y := 0.1, 0.2
	assert.False(t, set.Remove(models.PriceAbove, x+y))
	assert.True(t, set.Remove(models.PriceAbove, 0.3))
}

func TestSnapshotIsACopy(t *testing.T) {
	set := NewThresholdSet()
	set.Add(models.PriceAbove, 1)
	set.Add(models.PriceAbove, 2)

	snap := set.Snapshot()
	snap.PriceAbove[0] = 99
	assert.Equal(t, []float64{1, 2}, set.Values(models.PriceAbove))
	assert.Equal(t, []float64{}, snap.PercentBelow)
}

func TestFormatValue(t *testing.T) {
	cases := map[float64]string{100: "100", -5: "-5", 2.5: "2.5", 0.125: "0.125"}
	for in, want := range cases {
		assert.Equal(t, want, FormatValue(in))
	}
}

func TestEngineUnknownSymbol(t *testing.T) {
	e := NewEngine()
	assert.False(t, e.AddThreshold("ABC", models.PriceAbove, 1))
	assert.False(t, e.RemoveThreshold("ABC", models.PriceAbove, 1))
	assert.Nil(t, e.Evaluate("ABC", 1, nil))

	require.True(t, e.Track("ABC"))
	assert.False(t, e.Track("ABC"))
	assert.True(t, e.AddThreshold("ABC", models.PriceAbove, 1))

	views, ok := e.Views("ABC")
	require.True(t, ok)
	assert.Equal(t, []models.ThresholdView{{Kind: models.PriceAbove, Value: 1}}, views)

	assert.True(t, e.Untrack("ABC"))
	_, ok = e.Snapshot("ABC")
	assert.False(t, ok)
}

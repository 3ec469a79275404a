package monitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
	"price-monitor/internal/provider"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"add AAPL", Command{Kind: CmdAdd, Symbol: "AAPL"}},
		{"  REMOVE aapl ", Command{Kind: CmdRemove, Symbol: "aapl"}},
		{"above AAPL 200", Command{Kind: CmdAddThreshold, Symbol: "AAPL", Threshold: "above", Value: "200"}},
		{"pbelow AAPL -3%", Command{Kind: CmdAddThreshold, Symbol: "AAPL", Threshold: "pbelow", Value: "-3%"}},
		{"del AAPL below 150", Command{Kind: CmdRemoveThreshold, Symbol: "AAPL", Threshold: "below", Value: "150"}},
		{"alerts AAPL", Command{Kind: CmdList, Symbol: "AAPL"}},
		{"export out.xlsx", Command{Kind: CmdExport, Path: "out.xlsx"}},
		{"clear", Command{Kind: CmdClear}},
		{"help", Command{Kind: CmdHelp}},
		{"exit", Command{Kind: CmdQuit}},
	}
	for _, tc := range cases {
		got, err := ParseCommand(tc.line)
		require.NoError(t, err, tc.line)
		assert.Equal(t, tc.want, got, tc.line)
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"", "add", "above AAPL", "del AAPL 1", "frobnicate"} {
		_, err := ParseCommand(line)
		assert.ErrorIs(t, err, apperrors.ErrMalformedInput, line)
	}
}

func TestExecute(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"AAPL": 190})
	s, _ := newService(t, p)
	ctx := context.Background()

	run := func(line string) (string, error) {
		cmd, err := ParseCommand(line)
		require.NoError(t, err)
		return s.Execute(ctx, cmd)
	}

	_, err := run("add AAPL")
	require.NoError(t, err)
	out, err := run("add AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL is already being tracked", out)

	out, err = run("above AAPL 200")
	require.NoError(t, err)
	assert.Equal(t, "Alert set for AAPL", out)

	_, err = run("pabove AAPL 1.5")
	require.NoError(t, err)

	out, err = run("alerts AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Alerts for AAPL:\n  Price Above: 200\n  % Above:     1.5%", out)

	out, err = run("del AAPL above 200")
	require.NoError(t, err)
	assert.Equal(t, "Threshold deleted", out)

	_, err = run("above AAPL x")
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)

	out, err = run("help")
	require.NoError(t, err)
	assert.Equal(t, Usage, out)
}

func TestFormatThresholdsEmpty(t *testing.T) {
	assert.Equal(t, "No alerts set for AAPL", FormatThresholds("AAPL", nil))
	got := FormatThresholds("AAPL", []models.ThresholdView{{Kind: models.PriceBelow, Value: 10, Armed: true}})
	assert.Equal(t, "Alerts for AAPL:\n  Price Below: 10*", got)
}

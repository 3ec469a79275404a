package monitor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "price-monitor/internal/errors"
	"price-monitor/internal/models"
	"price-monitor/internal/poller"
	"price-monitor/internal/provider"
	"price-monitor/internal/stream"
)

type recorder struct {
	mu   sync.Mutex
	msgs []stream.Message
}

func (r *recorder) Publish(m stream.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		if m.Kind == stream.KindText {
			out = append(out, m.Content)
		}
	}
	return out
}

func (r *recorder) count(k stream.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Kind == k {
			n++
		}
	}
	return n
}

func newService(t *testing.T, p provider.Provider) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg := Config{
		Poll:       poller.Config{Interval: time.Hour, FetchTimeout: time.Second},
		HistoryCap: 50,
		Location:   time.UTC,
	}
	s := New(cfg, p, rec, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		s.Stop()
		s.Wait()
		cancel()
	})
	return s, rec
}

func TestAddSymbolStartsTracking(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"AAPL": 190.5})
	s, rec := newService(t, p)
	ctx := context.Background()

	res, err := s.AddSymbol(ctx, " aapl ")
	require.NoError(t, err)
	assert.Equal(t, AddResult{Symbol: "AAPL", Added: true, Price: 190.5}, res)
	assert.Equal(t, []string{"AAPL"}, s.Symbols())
	assert.Contains(t, rec.texts(), "Tracking started for AAPL\n")

	// activation runs a cycle straight away
	require.Eventually(t, func() bool { return len(s.History()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, poller.Polling, s.Loop().State())

	res, err = s.AddSymbol(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, res.Added)
}

func TestAddSymbolRejectsInvalid(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"AAPL": 1})
	s, _ := newService(t, p)
	ctx := context.Background()

	_, err := s.AddSymbol(ctx, "bad symbol!")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
	assert.Equal(t, 0, p.Calls(), "malformed symbols never reach the provider")

	_, err = s.AddSymbol(ctx, "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
	assert.Empty(t, s.Symbols())
	assert.Equal(t, poller.Idle, s.Loop().State())
}

func TestAddSymbolLogsValidationFailure(t *testing.T) {
	var buf bytes.Buffer
	s := New(Config{Location: time.UTC}, provider.NewStatic(nil), &recorder{}, zerolog.New(&buf))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	_, err := s.AddSymbol(ctx, "NOPE")
	require.ErrorIs(t, err, apperrors.ErrInvalidSymbol)
	s.Stop()
	s.Wait()

	line := buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.Contains(t, line, `"component":"monitor"`)
	assert.Contains(t, line, `"symbol":"NOPE"`)
	assert.Contains(t, line, "Symbol validation failed")
}

func TestAddSymbolProviderDown(t *testing.T) {
	inner := provider.NewStatic(map[string]float64{"AAPL": 1})
	inner.SetError(errors.New("connection refused"))
	g := provider.NewGuarded(inner, provider.GuardConfig{Timeout: time.Second})
	s, _ := newService(t, g)

	_, err := s.AddSymbol(context.Background(), "AAPL")
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidSymbol)
	assert.Empty(t, s.Symbols())
}

func TestThresholdCommands(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"MSFT": 400})
	s, _ := newService(t, p)
	ctx := context.Background()

	_, err := s.AddThreshold(ctx, "MSFT", "above", "410")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotTracked)

	_, err = s.AddSymbol(ctx, "MSFT")
	require.NoError(t, err)

	added, err := s.AddThreshold(ctx, "msft", "above", "410")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddThreshold(ctx, "MSFT", "above", "410")
	require.NoError(t, err)
	assert.False(t, added, "duplicate")

	_, err = s.AddThreshold(ctx, "MSFT", "above", "abc")
	assert.ErrorIs(t, err, apperrors.ErrMalformedInput)
	_, err = s.AddThreshold(ctx, "MSFT", "sideways", "1")
	assert.ErrorIs(t, err, apperrors.ErrUnknownKind)

	added, err = s.AddThreshold(ctx, "MSFT", "pbelow", "-2.5%")
	require.NoError(t, err)
	assert.True(t, added)

	views, err := s.Thresholds("MSFT")
	require.NoError(t, err)
	assert.Equal(t, []models.ThresholdView{
		{Kind: models.PriceAbove, Value: 410},
		{Kind: models.PercentBelow, Value: -2.5},
	}, views)

	removed, err := s.RemoveThreshold(ctx, "MSFT", "above", "410")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveThreshold(ctx, "MSFT", "above", "410")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveSymbol(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"IBM": 150})
	s, rec := newService(t, p)
	ctx := context.Background()

	_, err := s.RemoveSymbol(ctx, "IBM")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotTracked)

	_, err = s.AddSymbol(ctx, "IBM")
	require.NoError(t, err)
	removed, err := s.RemoveSymbol(ctx, "ibm")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.Symbols())
	assert.Contains(t, rec.texts(), "Tracking stopped for IBM\n")

	_, err = s.Thresholds("IBM")
	assert.ErrorIs(t, err, apperrors.ErrSymbolNotTracked)
}

func TestClearHistoryPublishesReset(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"IBM": 150})
	s, rec := newService(t, p)
	ctx := context.Background()

	_, err := s.AddSymbol(ctx, "IBM")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.History()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.ClearHistory(ctx))
	assert.Empty(t, s.History())
	assert.Equal(t, 1, rec.count(stream.KindClear))
	assert.Equal(t, []string{"IBM"}, s.Symbols(), "clear keeps the watch-list")
}

func TestExport(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"IBM": 150})
	s, _ := newService(t, p)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := s.Export(ctx, filepath.Join(dir, "empty.csv"))
	assert.ErrorIs(t, err, apperrors.ErrExportFailed)

	_, err = s.AddSymbol(ctx, "IBM")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.History()) == 1 }, time.Second, 5*time.Millisecond)

	path := filepath.Join(dir, "out.csv")
	n, err := s.Export(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Time,Symbol,Price"))

	_, err = s.Export(ctx, filepath.Join(dir, "out.txt"))
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	inner := provider.NewStatic(map[string]float64{"IBM": 150})
	g := provider.NewGuarded(inner, provider.GuardConfig{Timeout: time.Second, FailureThreshold: 3})
	s, _ := newService(t, g)

	st := s.Status()
	assert.Equal(t, "static", st.Provider)
	require.NotNil(t, st.Breaker)
	assert.Equal(t, "idle", st.Loop.State)
	assert.Equal(t, 50, st.HistoryCap)
	assert.Empty(t, st.Symbols)
}

func TestCommandsAfterStop(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"IBM": 150})
	s := New(Config{Location: time.UTC}, p, &recorder{}, zerolog.Nop())
	s.Start(context.Background())
	s.Stop()
	s.Wait()

	_, err := s.AddSymbol(context.Background(), "IBM")
	assert.ErrorIs(t, err, apperrors.ErrServiceStopped)
	assert.ErrorIs(t, s.ClearHistory(context.Background()), apperrors.ErrServiceStopped)
}

func TestStopWithoutStart(t *testing.T) {
	s := New(Config{}, provider.NewStatic(nil), nil, zerolog.Nop())
	s.Stop()
	s.Stop()
	s.Wait()
	_, err := s.RemoveSymbol(context.Background(), "IBM")
	assert.ErrorIs(t, err, apperrors.ErrServiceStopped)
}

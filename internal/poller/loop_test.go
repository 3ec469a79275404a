package poller

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/internal/models"
	"price-monitor/internal/provider"
	"price-monitor/internal/stream"
	"price-monitor/internal/watchlist"
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

func (r *recorder) kinds(k stream.Kind) []stream.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stream.Message
	for _, m := range r.msgs {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}

type panicky struct{ provider.Static }

func (p *panicky) FetchBatch(context.Context, []string) (map[string]float64, error) {
	panic("decoder blew up")
}

func newLoop(t *testing.T, p provider.Provider, cfg Config) (*Loop, *watchlist.Store, *recorder) {
	t.Helper()
	store := watchlist.NewStore(100)
	rec := &recorder{}
	l := New(cfg, store, p, rec, NewRenderer(12, time.UTC), zerolog.Nop())
	return l, store, rec
}

func TestCycleFeedsAlertsInOrder(t *testing.T) {
	p := provider.NewStatic(nil)
	l, store, rec := newLoop(t, p, DefaultConfig())
	store.AddSymbol("ABC")
	store.AddThreshold("ABC", models.PriceAbove, 100)

	var firedOn []int
	for i, price := range []float64{95, 101, 101, 99, 101} {
		p.Set("ABC", price)
		report := l.RunCycle(context.Background())
		require.NoError(t, report.Err)
		require.Len(t, report.Observed, 1)
		if len(report.Alerts) > 0 {
			firedOn = append(firedOn, i+1)
			assert.Equal(t, []string{"Price above 100"}, report.Alerts[0].Messages)
		}
	}
	assert.Equal(t, []int{2, 5}, firedOn)

	alertMsgs := rec.kinds(stream.KindAlert)
	require.Len(t, alertMsgs, 2)
	assert.Equal(t, "ABC", alertMsgs[0].Symbol)
	assert.Equal(t, 5, store.HistoryLen())
}

func TestPercentScenario(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"XYZ": 100})
	l, store, _ := newLoop(t, p, DefaultConfig())
	store.AddSymbol("XYZ")
	store.AddThreshold("XYZ", models.PercentBelow, -5)

	first := l.RunCycle(context.Background())
	assert.Empty(t, first.Alerts)
	assert.Nil(t, first.Observed[0].ChangePercent)

	p.Set("XYZ", 94)
	second := l.RunCycle(context.Background())
	require.Len(t, second.Alerts, 1)
	assert.Equal(t, []string{"Percentage change below -5%"}, second.Alerts[0].Messages)
}

func TestBatchFailureLeavesStateUnchanged(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"ABC": 50, "DEF": 20})
	l, store, rec := newLoop(t, p, DefaultConfig())
	store.AddSymbol("ABC")
	store.AddSymbol("DEF")
	store.AddThreshold("ABC", models.PriceBelow, 60)
	store.AddThreshold("DEF", models.PercentAbove, 1)
	l.RunCycle(context.Background())

	before := store.State()
	p.SetError(errors.New("network unreachable"))
	p.Set("ABC", 10)

	report := l.RunCycle(context.Background())
	require.Error(t, report.Err)
	assert.Equal(t, before, store.State())
	assert.Equal(t, []string{"ABC", "DEF"}, report.Skipped)

	texts := rec.kinds(stream.KindText)
	assert.Contains(t, texts[len(texts)-1].Content, "N/A")

	// the loop recovers as soon as the provider does
	p.SetError(nil)
	assert.NoError(t, l.RunCycle(context.Background()).Err)
}

func TestUnusablePricesAreSkipped(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"NAN": math.NaN(), "INF": math.Inf(1), "OK": 3})
	l, store, _ := newLoop(t, p, DefaultConfig())
	for _, s := range []string{"NAN", "INF", "MISSING", "OK"} {
		store.AddSymbol(s)
	}

	report := l.RunCycle(context.Background())
	require.NoError(t, report.Err)
	assert.Equal(t, []string{"NAN", "INF", "MISSING"}, report.Skipped)
	require.Len(t, report.Observed, 1)
	assert.Equal(t, "OK", report.Observed[0].Symbol)

	_, ok := store.LastPrice("NAN")
	assert.False(t, ok)
	assert.Equal(t, 1, store.HistoryLen())
}

func TestEmptyWatchlistDoesNoWork(t *testing.T) {
	p := provider.NewStatic(nil)
	l, _, rec := newLoop(t, p, DefaultConfig())
	report := l.RunCycle(context.Background())
	assert.NoError(t, report.Err)
	assert.Zero(t, p.Calls())
	assert.Empty(t, rec.kinds(stream.KindText))
}

func TestPanicInCycleIsRecovered(t *testing.T) {
	l, store, _ := newLoop(t, &panicky{}, DefaultConfig())
	store.AddSymbol("ABC")
	report := l.RunCycle(context.Background())
	assert.ErrorContains(t, report.Err, "decoder blew up")
	assert.Equal(t, uint64(1), l.Stats().Failures)
}

func TestLifecycle(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"ABC": 1})
	l, store, _ := newLoop(t, p, Config{Interval: 20 * time.Millisecond, FetchTimeout: time.Second})
	assert.Equal(t, Idle, l.State())

	l.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, p.Calls(), "idle loop must not poll")

	store.AddSymbol("ABC")
	l.Activate()
	assert.Equal(t, Polling, l.State())
	require.Eventually(t, func() bool { return p.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)

	// removing every symbol keeps the loop polling
	store.RemoveSymbol("ABC")
	time.Sleep(10 * time.Millisecond)
	calls := p.Calls()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, Polling, l.State())
	assert.Equal(t, calls, p.Calls())

	l.Stop()
	l.Wait()
	assert.Equal(t, Stopped, l.State())

	l.Activate()
	assert.Equal(t, Stopped, l.State())
}

func TestStopWaitsForInFlightFetch(t *testing.T) {
	p := provider.NewStatic(map[string]float64{"ABC": 10})
	p.SetDelay(100 * time.Millisecond)
	l, store, _ := newLoop(t, p, Config{Interval: time.Hour, FetchTimeout: time.Second})
	store.AddSymbol("ABC")

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	l.Activate()
	require.Eventually(t, func() bool { return p.Calls() == 1 }, time.Second, time.Millisecond)

	cancel()
	l.Stop()
	l.Wait()
	assert.Equal(t, 1, store.HistoryLen(), "the in-flight cycle finished")
}

func TestStopBeforeStart(t *testing.T) {
	l, _, _ := newLoop(t, provider.NewStatic(nil), DefaultConfig())
	l.Stop()

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked on a loop that never started")
	}

	l.Start(context.Background())
	assert.Equal(t, Stopped, l.State())
}

func TestContextCancelStopsIdleLoop(t *testing.T) {
	l, _, _ := newLoop(t, provider.NewStatic(nil), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on context cancel")
	}
	assert.Equal(t, Stopped, l.State())
}

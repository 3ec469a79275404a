package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-monitor/internal/config"
	"price-monitor/internal/stream"
)

type fakeChannel struct {
	name    string
	enabled bool
	err     error

	mu   sync.Mutex
	sent []Notification
}

func (f *fakeChannel) Name() string    { return f.name }
func (f *fakeChannel) IsEnabled() bool { return f.enabled }
func (f *fakeChannel) Send(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestMultiNotifierFansOut(t *testing.T) {
	mn := NewMultiNotifier(config.NotificationConfig{}, zerolog.Nop())
	a := &fakeChannel{name: "a", enabled: true}
	b := &fakeChannel{name: "b", enabled: true, err: errors.New("boom")}
	off := &fakeChannel{name: "off"}
	mn.AddChannel(a)
	mn.AddChannel(b)
	mn.AddChannel(off)

	assert.Equal(t, []string{"a", "b"}, mn.Channels())

	err := mn.Send(context.Background(), Notification{Symbol: "AAPL", Messages: []string{"Price above 100"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: boom")
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count(), "one failing channel does not stop the others")
	assert.Equal(t, 0, off.count())
}

func TestMultiNotifierConsumesAlertsOnly(t *testing.T) {
	mn := NewMultiNotifier(config.NotificationConfig{}, zerolog.Nop())
	ch := &fakeChannel{name: "rec", enabled: true}
	mn.AddChannel(ch)
	assert.Equal(t, []stream.Kind{stream.KindAlert}, mn.Kinds())

	mn.OnMessage(stream.TextUpdate("row"))
	assert.Equal(t, 0, ch.count())

	mn.OnMessage(stream.AlertFired("AAPL", []string{"Price above 100", "Percentage change above 2%"}))
	require.Equal(t, 1, ch.count())
	n := ch.sent[0]
	assert.Equal(t, "AAPL", n.Symbol)
	assert.Equal(t, "Alert for AAPL", n.Title)
	assert.Equal(t, "Price above 100\nPercentage change above 2%", n.Message)
}

func TestNewMultiNotifierFromConfig(t *testing.T) {
	mn := NewMultiNotifier(config.NotificationConfig{Enabled: false, Bell: true}, zerolog.Nop())
	assert.Empty(t, mn.Channels())

	mn = NewMultiNotifier(config.NotificationConfig{
		Enabled:  true,
		Bell:     true,
		Webhook:  config.WebhookConfig{Enabled: true, URL: "http://localhost"},
		Telegram: config.TelegramConfig{Enabled: true},
	}, zerolog.Nop())
	// telegram without a token stays disabled
	assert.Equal(t, []string{"bell", "webhook"}, mn.Channels())
}

func TestWebhookNotifier(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	require.True(t, w.IsEnabled())
	err := w.Send(context.Background(), Notification{
		Symbol:    "MSFT",
		Title:     "Alert for MSFT",
		Messages:  []string{"Price below 300"},
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got["symbol"])
	assert.Equal(t, []interface{}{"Price below 300"}, got["messages"])
	assert.Equal(t, "2024-03-01T10:00:00Z", got["timestamp"])
}

func TestWebhookNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	err := w.Send(context.Background(), Notification{})
	assert.EqualError(t, err, "webhook returned status 502")
}

func TestTelegramNotifier(t *testing.T) {
	var path string
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer srv.Close()

	tg := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "T0KEN", ChatID: "42"})
	tg.baseURL = srv.URL
	require.NoError(t, tg.Send(context.Background(), Notification{Title: "Alert for A&B", Message: "Price above 1"}))

	assert.Equal(t, "/botT0KEN/sendMessage", path)
	assert.Equal(t, "42", payload["chat_id"])
	assert.Equal(t, "<b>Alert for A&amp;B</b>\n\nPrice above 1", payload["text"])
}

func TestBellNotifier(t *testing.T) {
	var buf bytes.Buffer
	b := NewBellNotifier(&buf)
	require.NoError(t, b.Send(context.Background(), Notification{}))
	assert.Equal(t, "\a", buf.String())
}

func TestDesktopNotifier(t *testing.T) {
	var name string
	var args []string
	d := &DesktopNotifier{
		command: "notify-send",
		args:    func(title, body string) []string { return []string{title, body} },
		run: func(_ context.Context, n string, a ...string) error {
			name, args = n, a
			return nil
		},
	}
	require.NoError(t, d.Send(context.Background(), Notification{Title: "Alert for X", Messages: []string{"one", "two"}}))
	assert.Equal(t, "notify-send", name)
	assert.Equal(t, []string{"Alert for X", "one\ntwo"}, args)

	assert.False(t, (&DesktopNotifier{}).IsEnabled())
}

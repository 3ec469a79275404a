// Package notify delivers alert messages to notification channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"price-monitor/internal/config"
	"price-monitor/internal/logging"
	"price-monitor/internal/stream"
)

// Channel is one notification sink.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification is one alert for one symbol.
type Notification struct {
	Symbol    string
	Title     string
	Message   string
	Messages  []string
	Timestamp time.Time
}

// FromMessage builds a notification from an AlertFired message.
func FromMessage(msg stream.Message) Notification {
	return Notification{
		Symbol:    msg.Symbol,
		Title:     fmt.Sprintf("Alert for %s", msg.Symbol),
		Message:   strings.Join(msg.Messages, "\n"),
		Messages:  msg.Messages,
		Timestamp: msg.Time,
	}
}

// MultiNotifier sends notifications to every enabled channel concurrently.
// It is a stream.Consumer for alert messages.
type MultiNotifier struct {
	channels []Channel
	timeout  time.Duration
	workers  int
	logger   zerolog.Logger
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the channels enabled in cfg.
func NewMultiNotifier(cfg config.NotificationConfig, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]Channel, 0),
		timeout:  10 * time.Second,
		workers:  4,
		logger:   logging.WithComponent(logger, "notify"),
	}
	if !cfg.Enabled {
		return mn
	}

	if cfg.Bell {
		mn.channels = append(mn.channels, NewBellNotifier(nil))
	}
	if cfg.Desktop {
		mn.channels = append(mn.channels, NewDesktopNotifier())
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Channels returns the names of the enabled channels.
func (mn *MultiNotifier) Channels() []string {
	mn.mu.RLock()
	defer mn.mu.RUnlock()
	var names []string
	for _, ch := range mn.channels {
		if ch.IsEnabled() {
			names = append(names, ch.Name())
		}
	}
	return names
}

// Send sends a notification to all enabled channels and joins their errors.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := make([]Channel, len(mn.channels))
	copy(channels, mn.channels)
	mn.mu.RUnlock()

	p := pool.New().WithMaxGoroutines(mn.workers).WithErrors().WithContext(ctx)
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		ch := ch
		p.Go(func(ctx context.Context) error {
			if err := ch.Send(ctx, n); err != nil {
				return fmt.Errorf("%s: %w", ch.Name(), err)
			}
			return nil
		})
	}
	return p.Wait()
}

// OnMessage implements stream.Consumer.
func (mn *MultiNotifier) OnMessage(msg stream.Message) {
	if msg.Kind != stream.KindAlert {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mn.timeout)
	defer cancel()
	if err := mn.Send(ctx, FromMessage(msg)); err != nil {
		mn.logger.Warn().Err(err).Str("symbol", msg.Symbol).Msg("Notification delivery failed")
	}
}

// Kinds implements stream.Consumer.
func (mn *MultiNotifier) Kinds() []stream.Kind {
	return []stream.Kind{stream.KindAlert}
}

// webhookPayload is the JSON body posted to a webhook.
type webhookPayload struct {
	Type      string   `json:"type"`
	Symbol    string   `json:"symbol"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Messages  []string `json:"messages"`
	Timestamp string   `json:"timestamp"`
}

// telegramPayload is a sendMessage request in HTML parse mode.
type telegramPayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// postJSON posts v to url and fails on a non-2xx reply. The channel name
// prefixes every error.
func postJSON(ctx context.Context, client *http.Client, channel, url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", channel, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PriceMonitor/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s returned status %d", channel, resp.StatusCode)
	}
	return nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// WebhookNotifier posts alerts as JSON to a URL.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{url: cfg.URL, enabled: cfg.Enabled && cfg.URL != "", client: httpClient()}
}

func (w *WebhookNotifier) Name() string    { return "webhook" }
func (w *WebhookNotifier) IsEnabled() bool { return w.enabled }

func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}
	return postJSON(ctx, w.client, w.Name(), w.url, webhookPayload{
		Type:      "alert",
		Symbol:    n.Symbol,
		Title:     n.Title,
		Message:   n.Message,
		Messages:  n.Messages,
		Timestamp: n.Timestamp.Format(time.RFC3339),
	})
}

// TelegramNotifier sends alerts through a Telegram bot to one chat.
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	baseURL  string
	client   *http.Client
}

func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		baseURL:  "https://api.telegram.org",
		client:   httpClient(),
	}
}

func (t *TelegramNotifier) Name() string    { return "telegram" }
func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}
	endpoint := t.baseURL + "/bot" + t.botToken + "/sendMessage"
	return postJSON(ctx, t.client, t.Name(), endpoint, telegramPayload{
		ChatID:    t.chatID,
		Text:      "<b>" + htmlEscaper.Replace(n.Title) + "</b>\n\n" + htmlEscaper.Replace(n.Message),
		ParseMode: "HTML",
	})
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

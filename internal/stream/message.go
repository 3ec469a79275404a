package stream

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates UI channel messages.
type Kind string

const (
	// KindText carries a rendered log or table row.
	KindText Kind = "text"
	// KindAlert carries the alert messages fired for one symbol in one cycle.
	KindAlert Kind = "alert"
	// KindClear tells renderers the history was reset.
	KindClear Kind = "clear"
)

// Message is one item on the UI channel.
type Message struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Symbol   string    `json:"symbol,omitempty"`
	Content  string    `json:"content,omitempty"`
	Messages []string  `json:"messages,omitempty"`
	Time     time.Time `json:"time"`
}

// TextUpdate builds a text message.
func TextUpdate(content string) Message {
	return Message{ID: uuid.NewString(), Kind: KindText, Content: content, Time: time.Now()}
}

// AlertFired builds an alert message for symbol.
func AlertFired(symbol string, messages []string) Message {
	msgs := make([]string, len(messages))
	copy(msgs, messages)
	return Message{ID: uuid.NewString(), Kind: KindAlert, Symbol: symbol, Messages: msgs, Time: time.Now()}
}

// Cleared builds a history-reset marker.
func Cleared() Message {
	return Message{ID: uuid.NewString(), Kind: KindClear, Time: time.Now()}
}

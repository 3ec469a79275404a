// Package stream carries results from the poll loop to user interfaces.
package stream

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// HubConfig sizes the hub's queues.
type HubConfig struct {
	BufferSize           int // pending publishes
	SubscriberBufferSize int // per subscriber
}

func DefaultHubConfig() HubConfig {
	return HubConfig{BufferSize: 256, SubscriberBufferSize: 64}
}

// Hub fans messages out from one producer to many subscribers.
// Publishing never blocks; a full buffer drops the message and counts it.
type Hub struct {
	config HubConfig
	in     chan Message
	done   chan struct{}

	mu          sync.RWMutex // guards subscribers, started, stopped
	subscribers map[string]*Subscriber
	started     bool
	stopped     bool

	consumersMu     sync.RWMutex // guards consumers and consumersClosed
	consumers       []*consumerQueue
	consumersClosed bool

	received  atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Subscriber is one reader of the hub.
type Subscriber struct {
	ID      string
	ch      chan Message
	dropped atomic.Int64
}

// C returns the receive side of the subscriber's channel.
// It is closed when the subscriber is removed or the hub stops.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

// Drain returns every message currently buffered without blocking.
func (s *Subscriber) Drain() []Message {
	var out []Message
	for {
		select {
		case m, ok := <-s.ch:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

// Dropped returns how many messages this subscriber missed because its buffer was full.
func (s *Subscriber) Dropped() int {
	return int(s.dropped.Load())
}

// NewHub creates a hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	def := DefaultHubConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.SubscriberBufferSize <= 0 {
		config.SubscriberBufferSize = def.SubscriberBufferSize
	}
	return &Hub{
		config:      config,
		subscribers: make(map[string]*Subscriber),
		in:          make(chan Message, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// Start begins the distribution loop. Calling it twice is a no-op.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.broadcastLoop(ctx)
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.done:
			return
		case msg := <-h.in:
			h.received.Add(1)
			h.broadcast(msg)
			h.notifyConsumers(msg)
		}
	}
}

// Stop ends distribution, closes every subscriber channel and lets each
// consumer finish the messages already queued for it.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true
	close(h.done)

	for id, sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, id)
	}

	h.consumersMu.Lock()
	h.consumersClosed = true
	for _, q := range h.consumers {
		close(q.ch)
	}
	h.consumers = nil
	h.consumersMu.Unlock()
}

// Subscribe registers a new subscriber. After Stop the returned channel is
// already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ID: uuid.NewString(), ch: make(chan Message, h.config.SubscriberBufferSize)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		close(sub.ch)
		return sub
	}
	h.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.ID]; ok {
		close(sub.ch)
		delete(h.subscribers, sub.ID)
	}
}

// Publish queues msg for distribution. It never blocks.
func (h *Hub) Publish(msg Message) {
	select {
	case h.in <- msg:
	default:
		h.dropped.Add(1)
	}
}

// broadcast holds the read lock while sending so Stop cannot close a channel
// mid-send. Sends are non-blocking.
func (h *Hub) broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}
	for _, sub := range h.subscribers {
		select {
		case sub.ch <- msg:
			h.delivered.Add(1)
		default:
			sub.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsStarted reports whether the distribution loop is running.
func (h *Hub) IsStarted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started && !h.stopped
}

// HubMetrics contains hub counters.
type HubMetrics struct {
	Received    uint64 `json:"received"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// Metrics returns a copy of the hub counters.
func (h *Hub) Metrics() HubMetrics {
	return HubMetrics{
		Received:    h.received.Load(),
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
		Subscribers: h.SubscriberCount(),
	}
}

// Consumer processes hub messages outside the subscriber channels.
type Consumer interface {
	// OnMessage is called for every message whose kind matches Kinds.
	OnMessage(msg Message)
	// Kinds returns the kinds of interest; empty means all.
	Kinds() []Kind
}

// consumerQueue feeds one consumer from a single goroutine, so the consumer
// sees messages in publish order and never runs concurrently with itself.
type consumerQueue struct {
	consumer Consumer
	kinds    []Kind
	ch       chan Message
}

func (q *consumerQueue) wants(k Kind) bool {
	return len(q.kinds) == 0 || slices.Contains(q.kinds, k)
}

func (q *consumerQueue) run() {
	for msg := range q.ch {
		q.consumer.OnMessage(msg)
	}
}

// RegisterConsumer adds a consumer with its own queue and goroutine. A full
// queue drops the message. Registering after Stop is a no-op.
func (h *Hub) RegisterConsumer(c Consumer) {
	q := &consumerQueue{
		consumer: c,
		kinds:    c.Kinds(),
		ch:       make(chan Message, h.config.SubscriberBufferSize),
	}

	h.consumersMu.Lock()
	defer h.consumersMu.Unlock()
	if h.consumersClosed {
		return
	}
	h.consumers = append(h.consumers, q)
	go q.run()
}

// notifyConsumers holds the read lock while sending so Stop cannot close a
// queue mid-send.
func (h *Hub) notifyConsumers(msg Message) {
	h.consumersMu.RLock()
	defer h.consumersMu.RUnlock()

	if h.consumersClosed {
		return
	}
	for _, q := range h.consumers {
		if !q.wants(msg.Kind) {
			continue
		}
		select {
		case q.ch <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc struct {
	kinds []Kind
	fn    func(Message)
}

// NewConsumerFunc creates a ConsumerFunc for the given kinds.
func NewConsumerFunc(fn func(Message), kinds ...Kind) *ConsumerFunc {
	return &ConsumerFunc{kinds: kinds, fn: fn}
}

// OnMessage implements Consumer.
func (c *ConsumerFunc) OnMessage(msg Message) {
	if c.fn != nil {
		c.fn(msg)
	}
}

// Kinds implements Consumer.
func (c *ConsumerFunc) Kinds() []Kind {
	return c.kinds
}

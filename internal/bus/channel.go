// Package bus carries the reconcile pipeline's events between the
// API, the async worker, and downstream consumers.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clearskin/accord/internal/domain"
	"github.com/google/uuid"
)

// ChannelBus is the Community tier bus: in-process delivery over Go
// channels, one fan-out group per clinic and topic.
type ChannelBus struct {
	mu         sync.RWMutex
	bufferSize int
	clinics    map[string]map[string][]*chanSub
	closed     bool
}

type chanSub struct {
	id      string
	topic   string
	handler domain.MessageHandler
	inbox   chan *domain.Message
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewChannelBus creates an in-process bus whose subscriber inboxes
// buffer up to bufferSize messages.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &ChannelBus{
		bufferSize: bufferSize,
		clinics:    make(map[string]map[string][]*chanSub),
	}
}

// newMessage wraps a payload in the envelope both bus implementations
// publish.
func newMessage(clinicID, topic string, payload []byte) *domain.Message {
	return &domain.Message{
		ID:        uuid.New().String(),
		ClinicID:  clinicID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
}

// Publish delivers a message to every subscriber of the clinic's
// topic. Delivery is non-blocking: a subscriber with a full inbox
// misses the message rather than stalling the publisher.
func (b *ChannelBus) Publish(ctx context.Context, clinicID string, topic string, payload []byte) error {
	if clinicID == "" {
		return fmt.Errorf("clinicID is required")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	var subs []*chanSub
	if topics, ok := b.clinics[clinicID]; ok {
		subs = topics[topic]
	}
	b.mu.RUnlock()

	msg := newMessage(clinicID, topic, payload)
	for _, sub := range subs {
		select {
		case sub.inbox <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a handler for a clinic's topic and starts its
// delivery goroutine.
func (b *ChannelBus) Subscribe(ctx context.Context, clinicID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinicID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &chanSub{
		id:      uuid.New().String(),
		topic:   topic,
		handler: handler,
		inbox:   make(chan *domain.Message, b.bufferSize),
		ctx:     subCtx,
		cancel:  cancel,
	}
	go sub.run()

	topics, ok := b.clinics[clinicID]
	if !ok {
		topics = make(map[string][]*chanSub)
		b.clinics[clinicID] = topics
	}
	topics[topic] = append(topics[topic], sub)

	return sub, nil
}

// Request publishes and waits for a single reply on a one-off reply
// topic, bounded by the context or a 30s fallback.
func (b *ChannelBus) Request(ctx context.Context, clinicID string, topic string, payload []byte) ([]byte, error) {
	if clinicID == "" {
		return nil, fmt.Errorf("clinicID is required")
	}

	replyCh := make(chan []byte, 1)
	replyTopic := topic + ".reply." + uuid.New().String()

	sub, err := b.Subscribe(ctx, clinicID, replyTopic, func(ctx context.Context, msg *domain.Message) error {
		select {
		case replyCh <- msg.Payload:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, clinicID, topic, payload); err != nil {
		return nil, err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("request timeout")
	}
}

// Ping reports whether the bus is accepting traffic.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	return nil
}

// Close stops every subscriber and rejects further operations.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, topics := range b.clinics {
		for _, subs := range topics {
			for _, sub := range subs {
				sub.cancel()
				close(sub.inbox)
			}
		}
	}
	b.clinics = make(map[string]map[string][]*chanSub)
	return nil
}

// run drains the inbox until the subscription is cancelled or the bus
// closes the channel.
func (s *chanSub) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.inbox:
			if !ok {
				return
			}
			_ = s.handler(s.ctx, msg)
		}
	}
}

// Unsubscribe stops delivery. The inbox stays registered until the
// bus closes; messages published to it afterwards are dropped.
func (s *chanSub) Unsubscribe() error {
	s.cancel()
	return nil
}

// Topic returns the subscribed topic.
func (s *chanSub) Topic() string {
	return s.topic
}

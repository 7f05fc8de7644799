// Package amqpbus provides the RabbitMQ implementation of the EventBus.
//
// All events flow through one topic exchange with the flat channel name as
// the routing key. Each subscription gets its own exclusive auto-delete
// queue bound to its channel, so fan-out happens in the broker; the local
// bounded queue then applies the same overflow policies as the other bus
// implementations.
package amqpbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ordersync/internal/core/ports"
)

// ExchangeName is the topic exchange all order-sync events flow through.
const ExchangeName = "ordersync.events"

// DefaultBufferSize is the per-subscriber queue capacity used when
// SubscribeOptions does not specify one.
const DefaultBufferSize = 64

// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus is a RabbitMQ-backed pub/sub transport keyed by flat channel names.
type Bus struct {
	conn   *amqp.Connection
	logger *slog.Logger

	pubMu sync.Mutex
	pubCh *amqp.Channel

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

// New creates a bus over an established AMQP connection and declares the
// topic exchange.
func New(conn *amqp.Connection, logger *slog.Logger) (*Bus, error) {
	pubCh, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if err = pubCh.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return nil, err
	}

	return &Bus{
		conn:   conn,
		logger: logger.With("component", "amqp_bus"),
		pubCh:  pubCh,
		subs:   make(map[*subscription]struct{}),
	}, nil
}

// Publish delivers the payload to all subscribers of the channel across
// every connected process. The channel name is the routing key.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.mu.Unlock()

	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	return b.pubCh.PublishWithContext(ctx,
		ExchangeName, // exchange
		channel,      // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
			Timestamp:   time.Now(),
		},
	)
}

// Subscribe attaches a new subscriber to the channel via an exclusive
// auto-delete queue bound to the topic exchange.
func (b *Bus) Subscribe(channel string, opts ports.SubscribeOptions) (ports.Subscription, error) {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	b.mu.Unlock()

	ch, err := b.conn.Channel()
	if err != nil {
		return nil, err
	}

	queue, err := ch.QueueDeclare(
		"",    // name, broker-generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	if err = ch.QueueBind(
		queue.Name,   // queue name
		channel,      // routing key
		ExchangeName, // exchange
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = ch.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	sub := &subscription{
		bus:        b,
		ch:         ch,
		channel:    channel,
		dropOldest: opts.DropOldest,
		events:     make(chan ports.Envelope, bufferSize),
		done:       make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = ch.Close()
		return nil, ErrBusClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.feed(deliveries)
	return sub, nil
}

// Close shuts down the bus and detaches all subscribers. The underlying
// AMQP connection is owned by the caller and stays open.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	subs := make([]*subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*subscription]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		sub.detach()
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	return b.pubCh.Close()
}

func (b *Bus) forget(sub *subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// subscription adapts one consumer queue to the Subscription contract.
type subscription struct {
	bus        *Bus
	ch         *amqp.Channel
	channel    string
	dropOldest bool

	events    chan ports.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// feed moves deliveries from the broker into the local bounded queue,
// applying the overflow policy.
func (s *subscription) feed(deliveries <-chan amqp.Delivery) {
	defer close(s.events)

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			env := ports.Envelope{Channel: s.channel, Payload: delivery.Body}
			if !s.enqueue(env) {
				s.detach()
				return
			}
		case <-s.done:
			return
		}
	}
}

// enqueue appends the event without ever blocking the feed. Returns false
// when the subscriber overflowed under the force-close policy.
func (s *subscription) enqueue(env ports.Envelope) bool {
	for {
		select {
		case s.events <- env:
			return true
		default:
		}

		if !s.dropOldest {
			return false
		}

		// Make room by discarding the oldest queued event.
		select {
		case <-s.events:
		default:
		}
	}
}

// Events returns the delivery channel for this subscription.
func (s *subscription) Events() <-chan ports.Envelope {
	return s.events
}

// Done is signaled when the subscriber has been detached.
func (s *subscription) Done() <-chan struct{} {
	return s.done
}

// Close detaches the subscriber. Idempotent.
func (s *subscription) Close() error {
	s.detach()
	return nil
}

func (s *subscription) detach() {
	s.closeOnce.Do(func() {
		s.bus.forget(s)
		if err := s.ch.Close(); err != nil {
			s.bus.logger.Warn("close amqp subscription", "error", err)
		}
		close(s.done)
	})
}

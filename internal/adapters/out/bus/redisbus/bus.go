// Package redisbus provides the Redis pub/sub implementation of the EventBus.
//
// Redis carries the cross-process fan-out; each local subscriber still owns a
// bounded in-process queue with the same overflow policies as the in-memory
// bus, so a slow websocket consumer on one node never backpressures Redis or
// the publishers.
package redisbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"ordersync/internal/core/ports"
)

// DefaultBufferSize is the per-subscriber queue capacity used when
// SubscribeOptions does not specify one.
const DefaultBufferSize = 64

// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus is a Redis-backed pub/sub transport keyed by flat channel names.
type Bus struct {
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

// New creates a bus over an established Redis client.
func New(client *redis.Client, logger *slog.Logger) *Bus {
	return &Bus{
		client: client,
		logger: logger.With("component", "redis_bus"),
		subs:   make(map[*subscription]struct{}),
	}
}

// Publish delivers the payload to all subscribers of the channel across
// every connected process.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.mu.Unlock()

	return b.client.Publish(ctx, channel, payload).Err()
}

// Subscribe attaches a new subscriber to the channel.
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

	pubsub := b.client.Subscribe(context.Background(), channel)
	sub := &subscription{
		bus:        b,
		pubsub:     pubsub,
		dropOldest: opts.DropOldest,
		events:     make(chan ports.Envelope, bufferSize),
		done:       make(chan struct{}),
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.feed()
	return sub, nil
}

// Close shuts down the bus and detaches all subscribers. The underlying
// Redis client is owned by the caller and stays open.
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
	return nil
}

func (b *Bus) forget(sub *subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// subscription adapts one Redis pubsub channel to the Subscription contract.
type subscription struct {
	bus        *Bus
	pubsub     *redis.PubSub
	dropOldest bool

	events    chan ports.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// feed moves messages from Redis into the local bounded queue, applying the
// overflow policy.
func (s *subscription) feed() {
	defer close(s.events)

	ch := s.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env := ports.Envelope{Channel: msg.Channel, Payload: []byte(msg.Payload)}
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
		if err := s.pubsub.Close(); err != nil {
			s.bus.logger.Warn("close redis subscription", "error", err)
		}
		close(s.done)
	})
}

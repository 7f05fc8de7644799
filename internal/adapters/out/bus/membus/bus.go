// Package membus provides the in-process EventBus implementation.
//
// Each subscriber owns a bounded FIFO queue drained by a dedicated pump
// goroutine, so publishing never blocks on a slow consumer. Queue overflow is
// resolved per the subscription's policy: drop the oldest event (location
// channels, where only the latest fix matters) or force-close the
// subscription (status and chat channels, where a silent gap would break the
// ordering contract).
//
// The same implementation serves as the test double for the whole realtime
// core and as the single-process production transport.
package membus

import (
	"context"
	"errors"
	"sync"

	"ordersync/internal/core/ports"
)

// DefaultBufferSize is the per-subscriber queue capacity used when
// SubscribeOptions does not specify one.
const DefaultBufferSize = 64

// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus is an in-process pub/sub transport keyed by flat channel names.
type Bus struct {
	mu       sync.RWMutex
	channels map[string]map[*subscription]struct{}
	closed   bool
}

// New creates an empty in-process bus.
func New() *Bus {
	return &Bus{
		channels: make(map[string]map[*subscription]struct{}),
	}
}

// Publish delivers the payload to all current subscribers of the channel.
// The call enqueues the event on each subscriber's queue and returns; it
// never waits for consumers.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}

	subs := make([]*subscription, 0, len(b.channels[channel]))
	for sub := range b.channels[channel] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	env := ports.Envelope{Channel: channel, Payload: payload}
	for _, sub := range subs {
		sub.enqueue(env)
	}
	return nil
}

// Subscribe attaches a new subscriber to the channel.
func (b *Bus) Subscribe(channel string, opts ports.SubscribeOptions) (ports.Subscription, error) {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	sub := &subscription{
		bus:        b,
		channel:    channel,
		bufferSize: bufferSize,
		dropOldest: opts.DropOldest,
		events:     make(chan ports.Envelope),
		done:       make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	if b.channels[channel] == nil {
		b.channels[channel] = make(map[*subscription]struct{})
	}
	b.channels[channel][sub] = struct{}{}
	b.mu.Unlock()

	go sub.pump()
	return sub, nil
}

// Close shuts down the bus and detaches all subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var subs []*subscription
	for _, chanSubs := range b.channels {
		for sub := range chanSubs {
			subs = append(subs, sub)
		}
	}
	b.channels = make(map[string]map[*subscription]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		sub.detach()
	}
	return nil
}

// detachSubscription removes the subscriber from the channel registry.
func (b *Bus) detachSubscription(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if chanSubs, ok := b.channels[sub.channel]; ok {
		delete(chanSubs, sub)
		if len(chanSubs) == 0 {
			delete(b.channels, sub.channel)
		}
	}
}

// subscription is one attachment with its bounded queue and pump goroutine.
type subscription struct {
	bus        *Bus
	channel    string
	bufferSize int
	dropOldest bool

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []ports.Envelope
	closed bool

	events    chan ports.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// enqueue appends the event to the queue, applying the overflow policy.
// It never blocks the publisher.
func (s *subscription) enqueue(env ports.Envelope) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if len(s.queue) >= s.bufferSize {
		if !s.dropOldest {
			s.mu.Unlock()
			// A lagging subscriber on an ordered channel is detached
			// rather than handed a gapped stream.
			s.detach()
			return
		}
		s.queue = s.queue[1:]
	}

	s.queue = append(s.queue, env)
	s.cond.Signal()
	s.mu.Unlock()
}

// pump drains the queue into the events channel in FIFO order.
func (s *subscription) pump() {
	defer close(s.events)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		env := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.events <- env:
		case <-s.done:
			return
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
		s.bus.detachSubscription(s)

		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.cond.Broadcast()
		s.mu.Unlock()

		close(s.done)
	})
}

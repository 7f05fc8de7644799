package ports

import "context"

// Envelope is a single event delivered on a pub/sub channel.
// Payload is the JSON-encoded wire message; the bus never inspects it.
type Envelope struct {
	Channel string
	Payload []byte
}

// SubscribeOptions tunes per-subscriber buffering on a bus implementation.
type SubscribeOptions struct {
	// BufferSize is the maximum number of undelivered events queued for the
	// subscriber. Zero selects the implementation default.
	BufferSize int

	// DropOldest selects the overflow policy. When true, the oldest queued
	// event is discarded to admit the new one (location channels: only the
	// latest fix matters). When false, the subscription is force-closed on
	// overflow and the subscriber must re-subscribe (status and chat
	// channels: a silently gapped stream would violate the ordering
	// contract, so a lagging subscriber is detached instead).
	DropOldest bool
}

// Subscription is one subscriber's attachment to a channel.
type Subscription interface {
	// Events returns the channel on which envelopes are delivered, in
	// publish order.
	Events() <-chan Envelope

	// Done is signaled when the bus has detached the subscriber, either via
	// Close or forcibly (overflow, bus shutdown). After Done the Events
	// channel is drained and closed.
	Done() <-chan struct{}

	// Close detaches the subscriber and releases its buffer.
	// Close is idempotent.
	Close() error
}

// EventBus is the publish/subscribe transport the realtime core fans out on.
// Channel names are flat strings keyed by order or conversation identifier;
// no wildcard subscriptions exist.
//
// Publishing must never block indefinitely on slow subscribers: each
// subscriber owns a bounded buffer drained at its own pace, and overflow is
// resolved by the subscription's configured policy. The bus itself gives no
// ordering guarantee across channels; per-channel publish order is preserved
// for each subscriber.
//
// Implementations: in-process (membus), Redis pub/sub (redisbus), RabbitMQ
// topic exchange (amqpbus). The in-process bus doubles as the test transport.
type EventBus interface {
	// Publish delivers the payload to all current subscribers of the channel.
	// Publishing to a channel without subscribers is a no-op.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe attaches a new subscriber to the channel.
	Subscribe(channel string, opts SubscribeOptions) (Subscription, error)

	// Close shuts down the bus and detaches all subscribers.
	Close() error
}

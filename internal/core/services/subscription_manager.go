package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// ChannelKind names the three realtime channel families.
type ChannelKind string

const (
	StatusKind   ChannelKind = "status"
	LocationKind ChannelKind = "location"
	ChatKind     ChannelKind = "chat"
)

// ParseChannelKind validates a channel kind received from a client frame.
func ParseChannelKind(s string) (ChannelKind, error) {
	switch ChannelKind(s) {
	case StatusKind, LocationKind, ChatKind:
		return ChannelKind(s), nil
	default:
		return "", errs.NewValueIsInvalidErrorWithCause("channel", fmt.Errorf("unknown kind %q", s))
	}
}

// Per-subscriber queue depths. Location tolerates a shallow queue because
// only the latest fix matters; status and chat queues are deep because
// overflow there detaches the subscriber.
const (
	locationBufferSize = 8
	orderedBufferSize  = 256
)

// Delivery retry defaults for transient connection write failures.
const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 50 * time.Millisecond
)

// Connection is one client attachment as seen by the subscription manager.
// The websocket transport implements it.
type Connection interface {
	// ID uniquely identifies the connection for bookkeeping.
	ID() string

	// Send writes one event payload to the client. A returned error is
	// treated as transient and retried; persistent failure drops the
	// connection.
	Send(payload []byte) error

	// Close tears the connection down. Idempotent.
	Close() error
}

// SubscriptionManager tracks which connections listen on which channels and
// pumps bus events into them.
//
// Each (connection, channel) pair gets its own pump goroutine reading from a
// bounded bus subscription, so one slow client never stalls another. Writes
// that keep failing after a bounded retry mark the connection dead and
// release everything it held; the same cleanup runs when the transport
// reports a disconnect. A location subscriber receives the order's last
// known fix immediately on subscribe, before live events.
type SubscriptionManager struct {
	bus      ports.EventBus
	stream   *LocationStream
	resolver ConversationResolver
	logger   *slog.Logger

	retryAttempts int
	retryBackoff  time.Duration

	mu    sync.Mutex
	conns map[string]*connState
}

// connState is the per-connection bookkeeping.
type connState struct {
	conn Connection
	subs map[subKey]ports.Subscription
}

// subKey identifies one subscription within a connection.
type subKey struct {
	kind ChannelKind
	id   string
}

// ConversationResolver maps an order to its chat conversation.
// The conversation registry implements it.
type ConversationResolver interface {
	GetOrCreate(ctx context.Context, orderID kernel.UUID) (*chat.Conversation, error)
}

// NewSubscriptionManager creates the manager with default retry tuning.
func NewSubscriptionManager(bus ports.EventBus, stream *LocationStream, resolver ConversationResolver, logger *slog.Logger) *SubscriptionManager {
	return &SubscriptionManager{
		bus:           bus,
		stream:        stream,
		resolver:      resolver,
		logger:        logger.With("component", "subscription_manager"),
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
		conns:         make(map[string]*connState),
	}
}

// SetRetryPolicy overrides the per-event delivery retry tuning.
func (m *SubscriptionManager) SetRetryPolicy(attempts int, backoff time.Duration) {
	m.retryAttempts = attempts
	m.retryBackoff = backoff
}

// Subscribe attaches the connection to one of the order's channels. Chat
// subscriptions resolve the order's conversation through the registry, so
// clients address every channel family by order. Subscribing twice to the
// same channel on the same connection is a no-op.
func (m *SubscriptionManager) Subscribe(ctx context.Context, conn Connection, kind ChannelKind, orderID kernel.UUID) error {
	var channel string
	opts := ports.SubscribeOptions{BufferSize: orderedBufferSize}

	switch kind {
	case StatusKind:
		channel = StatusChannel(orderID)
	case LocationKind:
		channel = LocationChannel(orderID)
		opts = ports.SubscribeOptions{BufferSize: locationBufferSize, DropOldest: true}
	case ChatKind:
		conversation, err := m.resolver.GetOrCreate(ctx, orderID)
		if err != nil {
			return err
		}
		channel = ChatChannel(conversation.ID())
	default:
		return errs.NewValueIsInvalidErrorWithCause("channel", fmt.Errorf("unknown kind %q", kind))
	}

	key := subKey{kind: kind, id: orderID.String()}

	m.mu.Lock()
	state, ok := m.conns[conn.ID()]
	if !ok {
		state = &connState{conn: conn, subs: make(map[subKey]ports.Subscription)}
		m.conns[conn.ID()] = state
	}
	if _, exists := state.subs[key]; exists {
		m.mu.Unlock()
		return nil
	}

	sub, err := m.bus.Subscribe(channel, opts)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	state.subs[key] = sub
	m.mu.Unlock()

	// A late tracker gets the current position right away instead of
	// waiting for the rider's next fix.
	if kind == LocationKind {
		for _, update := range m.stream.LastKnown(orderID) {
			payload, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if err = m.deliver(conn, payload); err != nil {
				m.dropConnection(conn.ID())
				return err
			}
		}
	}

	go m.pump(conn, key, sub)
	return nil
}

// Unsubscribe detaches the connection from one channel. Unknown
// subscriptions are ignored.
func (m *SubscriptionManager) Unsubscribe(conn Connection, kind ChannelKind, orderID kernel.UUID) {
	key := subKey{kind: kind, id: orderID.String()}

	m.mu.Lock()
	state, ok := m.conns[conn.ID()]
	if !ok {
		m.mu.Unlock()
		return
	}
	sub, ok := state.subs[key]
	if ok {
		delete(state.subs, key)
	}
	m.mu.Unlock()

	if ok {
		_ = sub.Close()
	}
}

// Drop releases every subscription held by the connection and closes it.
// The websocket transport calls it on disconnect and heartbeat timeout.
func (m *SubscriptionManager) Drop(conn Connection) {
	m.dropConnection(conn.ID())
}

// ActiveSubscriptions reports how many subscriptions the connection holds.
func (m *SubscriptionManager) ActiveSubscriptions(conn Connection) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.conns[conn.ID()]
	if !ok {
		return 0
	}
	return len(state.subs)
}

// pump forwards bus events to the connection until the subscription ends or
// the connection proves dead.
func (m *SubscriptionManager) pump(conn Connection, key subKey, sub ports.Subscription) {
	for env := range sub.Events() {
		if err := m.deliver(conn, env.Payload); err != nil {
			m.logger.Warn("dropping dead connection",
				"connection_id", conn.ID(), "channel", env.Channel, "error", err)
			m.dropConnection(conn.ID())
			return
		}
	}

	// The bus detached us (overflow or shutdown); forget the entry so a
	// client re-subscribe starts clean.
	m.mu.Lock()
	if state, ok := m.conns[conn.ID()]; ok {
		if current, exists := state.subs[key]; exists && current == sub {
			delete(state.subs, key)
		}
	}
	m.mu.Unlock()
}

// deliver writes one payload with bounded retry and backoff.
func (m *SubscriptionManager) deliver(conn Connection, payload []byte) error {
	var err error
	for attempt := 0; attempt < m.retryAttempts; attempt++ {
		if err = conn.Send(payload); err == nil {
			return nil
		}
		time.Sleep(m.retryBackoff << attempt)
	}
	return err
}

func (m *SubscriptionManager) dropConnection(connID string) {
	m.mu.Lock()
	state, ok := m.conns[connID]
	if ok {
		delete(m.conns, connID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	for _, sub := range state.subs {
		_ = sub.Close()
	}
	_ = state.conn.Close()
}

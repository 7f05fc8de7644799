package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/keyedmutex"
)

// DefaultChatGracePeriod is how long after the owning order's terminal
// transition a conversation still accepts sends.
const DefaultChatGracePeriod = 15 * time.Minute

// MessageRouter accepts chat sends, assigns per-conversation sequence
// numbers, persists each message, and fans it out on the conversation's
// channel.
//
// Every send for one conversation runs under that conversation's lock, and
// the publish happens before the lock is released, so all subscribers of a
// channel observe messages in sequence order with no gaps.
type MessageRouter struct {
	registry *ConversationRegistry
	bus      ports.EventBus
	locks    *keyedmutex.KeyedMutex
	grace    time.Duration
	logger   *slog.Logger

	now func() time.Time
}

// NewMessageRouter creates the router. A non-positive grace duration selects
// DefaultChatGracePeriod.
func NewMessageRouter(registry *ConversationRegistry, bus ports.EventBus, grace time.Duration, logger *slog.Logger) *MessageRouter {
	if grace <= 0 {
		grace = DefaultChatGracePeriod
	}
	return &MessageRouter{
		registry: registry,
		bus:      bus,
		locks:    keyedmutex.New(),
		grace:    grace,
		logger:   logger.With("component", "message_router"),
		now:      time.Now,
	}
}

// Send accepts a message from a participant into the conversation.
//
// On success the returned message carries its assigned sequence number and
// server timestamp, and has been both persisted and published. Sends to an
// unknown conversation fail with errs.ObjectNotFoundError; sends after the
// owning order went terminal and the grace period elapsed fail with
// chat.ErrConversationClosed.
func (mr *MessageRouter) Send(
	ctx context.Context,
	conversationID kernel.UUID,
	senderID kernel.UUID,
	content string,
) (chat.Message, error) {
	key := conversationID.String()
	mr.locks.Lock(key)
	defer mr.locks.Unlock(key)

	conversation, err := mr.registry.Get(ctx, conversationID)
	if err != nil {
		return chat.Message{}, err
	}

	sentAt := mr.now().UTC()
	if !conversation.AcceptsWrites(sentAt, mr.grace) {
		return chat.Message{}, fmt.Errorf("%w: order %s is delivered", chat.ErrConversationClosed, conversation.OrderID())
	}

	msg, err := mr.registry.Append(ctx, conversation, senderID, content, sentAt)
	if err != nil {
		return chat.Message{}, err
	}

	mr.publish(ctx, msg)
	return msg, nil
}

func (mr *MessageRouter) publish(ctx context.Context, msg chat.Message) {
	payload, err := json.Marshal(newChatEvent(msg))
	if err != nil {
		mr.logger.Error("marshal chat event", "conversation_id", msg.ConversationID(), "error", err)
		return
	}

	if err = mr.bus.Publish(ctx, ChatChannel(msg.ConversationID()), payload); err != nil {
		mr.logger.Error("publish chat event", "conversation_id", msg.ConversationID(), "error", err)
	}
}

// RetireConversation drops the router's lock entry for a conversation whose
// order has been retired.
func (mr *MessageRouter) RetireConversation(conversationID kernel.UUID) {
	mr.locks.Retire(conversationID.String())
}

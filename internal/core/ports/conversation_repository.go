package ports

import (
	"context"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
)

// ConversationRepository defines the persistence contract for conversations
// and their append-only message log.
//
// Storage backs the registry's idempotency guarantee with a unique constraint
// on order_id: even if two processes race on creation, at most one
// conversation row can exist per order.
type ConversationRepository interface {
	// Add persists a new conversation. Returns an error when a conversation
	// for the same order already exists.
	Add(ctx context.Context, conversation *chat.Conversation) error

	// Update persists changes to an existing conversation (closure timestamp).
	Update(ctx context.Context, conversation *chat.Conversation) error

	// Get retrieves a conversation by its unique identifier.
	// Returns errs.ObjectNotFoundError when no such conversation exists.
	Get(ctx context.Context, id kernel.UUID) (*chat.Conversation, error)

	// GetByOrderID retrieves the single conversation owned by an order.
	// Returns errs.ObjectNotFoundError when the order has no conversation yet.
	GetByOrderID(ctx context.Context, orderID kernel.UUID) (*chat.Conversation, error)

	// AppendMessage appends an accepted message to the conversation's log.
	// Messages are immutable once stored.
	AppendMessage(ctx context.Context, message chat.Message) error

	// GetLastSequence returns the highest stored sequence number for the
	// conversation, or zero when the log is empty. Used to seed the
	// registry's sequence allocator after a restart.
	GetLastSequence(ctx context.Context, conversationID kernel.UUID) (int64, error)
}

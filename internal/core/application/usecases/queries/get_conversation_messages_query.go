package queries

import (
	"errors"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/guard"
)

var (
	ErrGetConversationMessagesQueryIsNotConstructed = errors.New(
		"GetConversationMessagesQuery must be created via NewGetConversationMessagesQuery constructor",
	)
)

// DefaultMessagePageSize bounds one page of chat history.
const DefaultMessagePageSize = 100

// GetConversationMessagesQuery retrieves a page of a conversation's message
// log in sequence order. Clients use it to backfill history after connecting,
// since live channels carry no replay.
//
// Example:
//
//	query, err := NewGetConversationMessagesQuery(conversationID, 0, 50)
//	if err != nil {
//	    return err
//	}
//
//	messages, err := handler.Handle(ctx, query)
type GetConversationMessagesQuery struct { //nolint:recvcheck //using for validation
	conversationID kernel.UUID
	afterSequence  int64
	limit          int

	guard guard.ConstructorGuard
}

// NewGetConversationMessagesQuery creates a query for one page of history.
// afterSequence selects messages with a strictly greater sequence number;
// zero starts from the beginning. A non-positive limit selects
// DefaultMessagePageSize.
func NewGetConversationMessagesQuery(
	conversationID kernel.UUID,
	afterSequence int64,
	limit int,
) (GetConversationMessagesQuery, error) {
	if err := conversationID.Validate(); err != nil {
		return GetConversationMessagesQuery{}, err
	}

	if limit <= 0 {
		limit = DefaultMessagePageSize
	}

	return GetConversationMessagesQuery{
		conversationID: conversationID,
		afterSequence:  afterSequence,
		limit:          limit,
		guard:          guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetConversationMessagesQueryIsNotConstructed if validation fails.
func (q GetConversationMessagesQuery) Validate() error {
	return q.guard.Validate(ErrGetConversationMessagesQueryIsNotConstructed)
}

// ConversationID returns the conversation whose log is being read.
func (q GetConversationMessagesQuery) ConversationID() kernel.UUID {
	return q.conversationID
}

// AfterSequence returns the exclusive lower bound on sequence numbers.
func (q GetConversationMessagesQuery) AfterSequence() int64 {
	return q.afterSequence
}

// Limit returns the page size.
func (q GetConversationMessagesQuery) Limit() int {
	return q.limit
}

// GetConversationMessagesQueryResponse represents one stored chat message.
type GetConversationMessagesQueryResponse struct {
	ConversationID kernel.UUID
	Sequence       int64
	SenderID       kernel.UUID
	Content        string
	SentAt         time.Time
}

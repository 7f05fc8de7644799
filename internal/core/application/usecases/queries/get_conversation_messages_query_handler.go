package queries

import (
	"context"
	"time"

	"ordersync/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetConversationMessagesQueryHandler reads pages of a conversation's
// message log directly from the database.
type GetConversationMessagesQueryHandler struct {
	db *gorm.DB
}

// NewGetConversationMessagesQueryHandler creates a handler for chat history queries.
// Requires a GORM database connection for query execution.
func NewGetConversationMessagesQueryHandler(db *gorm.DB) GetConversationMessagesQueryHandler {
	return GetConversationMessagesQueryHandler{db: db}
}

// Handle executes the query to retrieve one page of messages in sequence
// order. An unknown conversation yields an empty page, not an error: the
// read side does not distinguish missing from empty.
func (h GetConversationMessagesQueryHandler) Handle(
	ctx context.Context,
	query GetConversationMessagesQuery,
) ([]GetConversationMessagesQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	messages := make([]GetConversationMessagesQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			conversation_id,
			sequence,
			sender_id,
			content,
			sent_at
		FROM conversation_messages
		WHERE conversation_id = ? AND sequence > ?
		ORDER BY sequence
		LIMIT ?
	`, query.ConversationID().Bytes(), query.AfterSequence(), query.Limit()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp GetConversationMessagesQueryResponse
		var conversationID, senderID uuid.UUID
		var sequence int64
		var content string
		var sentAt time.Time

		if err = rows.Scan(&conversationID, &sequence, &senderID, &content, &sentAt); err != nil {
			return nil, err
		}

		convID, idErr := kernel.UUIDFromBytes(conversationID[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.ConversationID = convID

		sender, idErr := kernel.UUIDFromBytes(senderID[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.SenderID = sender

		resp.Sequence = sequence
		resp.Content = content
		resp.SentAt = sentAt
		messages = append(messages, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

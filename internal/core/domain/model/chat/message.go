package chat

import (
	"errors"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

var (
	// ErrMessageIsNotConstructed is returned when a Message was not created
	// through the NewMessage factory method.
	ErrMessageIsNotConstructed = errors.New("Message must be created via NewMessage constructor")

	// ErrContentIsRequired is returned when a message is created with empty content.
	ErrContentIsRequired = errs.NewValueIsRequiredError("content")

	// ErrSequenceIsInvalid is returned when a message carries a non-positive sequence number.
	ErrSequenceIsInvalid = errs.NewValueIsRequiredError("sequence")
)

// Message is a single chat message within a conversation. Messages are
// immutable once constructed: the sequence number and server timestamp are
// assigned at acceptance time by the router and never change.
type Message struct {
	conversationID kernel.UUID
	sequence       int64
	senderID       kernel.UUID
	content        string
	sentAt         time.Time

	isConstructed bool
}

// NewMessage creates an accepted chat message.
//
// Parameters:
//   - conversationID: the owning conversation (must be valid)
//   - sequence: per-conversation sequence number assigned by the registry (must be positive)
//   - senderID: the participant that sent the message (must be valid)
//   - content: the message body (must be non-empty)
//   - sentAt: the server acceptance timestamp
func NewMessage(
	conversationID kernel.UUID,
	sequence int64,
	senderID kernel.UUID,
	content string,
	sentAt time.Time,
) (Message, error) {
	if err := conversationID.Validate(); err != nil {
		return Message{}, err
	}
	if sequence <= 0 {
		return Message{}, ErrSequenceIsInvalid
	}
	if err := senderID.Validate(); err != nil {
		return Message{}, err
	}
	if content == "" {
		return Message{}, ErrContentIsRequired
	}

	return Message{
		conversationID: conversationID,
		sequence:       sequence,
		senderID:       senderID,
		content:        content,
		sentAt:         sentAt,
		isConstructed:  true,
	}, nil
}

// Validate ensures the Message was properly constructed through NewMessage.
func (m Message) Validate() error {
	if !m.isConstructed {
		return ErrMessageIsNotConstructed
	}
	return nil
}

// ConversationID returns the owning conversation's identifier.
func (m Message) ConversationID() kernel.UUID {
	return m.conversationID
}

// Sequence returns the per-conversation sequence number.
// Sequence numbers are strictly increasing with no gaps as observed by any
// single subscriber, and are never reused.
func (m Message) Sequence() int64 {
	return m.sequence
}

// SenderID returns the identifier of the sending participant.
func (m Message) SenderID() kernel.UUID {
	return m.senderID
}

// Content returns the message body.
func (m Message) Content() string {
	return m.content
}

// SentAt returns the server acceptance timestamp.
func (m Message) SentAt() time.Time {
	return m.sentAt
}

// Package conversationrepo provides data transfer objects and mapping functions
// for conversation persistence. This package implements the repository pattern
// for the conversation aggregate and its append-only message log.
package conversationrepo

import (
	"time"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"

	"github.com/google/uuid"
)

// ConversationDTO represents the database structure for persisting conversations.
// The unique index on OrderID enforces the one-conversation-per-order invariant
// at the storage level, which is what makes creation idempotent across processes.
type ConversationDTO struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	Participants []ParticipantDTO `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	ClosedAt     *time.Time
}

// TableName specifies the database table name for conversation entities.
func (ConversationDTO) TableName() string {
	return "conversations"
}

// ParticipantDTO links one member reference to its conversation.
type ParticipantDTO struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ParticipantID  uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName specifies the database table name for participant entities.
func (ParticipantDTO) TableName() string {
	return "conversation_participants"
}

// MessageDTO represents one row of the append-only message log. The composite
// primary key (conversation_id, sequence) makes sequence reuse impossible.
type MessageDTO struct {
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence       int64     `gorm:"primaryKey;autoIncrement:false"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null"`
	Content        string    `gorm:"type:text;not null"`
	SentAt         time.Time `gorm:"not null"`
}

// TableName specifies the database table name for message entities.
func (MessageDTO) TableName() string {
	return "conversation_messages"
}

// fromDomain converts a conversation aggregate to its database representation.
func fromDomain(c *chat.Conversation) ConversationDTO {
	conversationID := c.ID().Bytes()

	participants := make([]ParticipantDTO, 0, len(c.Participants()))
	for _, p := range c.Participants() {
		participants = append(participants, ParticipantDTO{
			ConversationID: conversationID,
			ParticipantID:  p.Bytes(),
		})
	}

	var closedAt *time.Time
	if !c.ClosedAt().IsZero() {
		at := c.ClosedAt()
		closedAt = &at
	}

	return ConversationDTO{
		ID:           conversationID,
		OrderID:      c.OrderID().Bytes(),
		Participants: participants,
		ClosedAt:     closedAt,
	}
}

// toDomain converts a database DTO to a conversation aggregate using
// RestoreConversation.
func toDomain(dto ConversationDTO) (*chat.Conversation, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	orderID, err := kernel.UUIDFromBytes(dto.OrderID[:])
	if err != nil {
		return nil, err
	}

	participants := make([]kernel.UUID, 0, len(dto.Participants))
	for _, p := range dto.Participants {
		participantID, pErr := kernel.UUIDFromBytes(p.ParticipantID[:])
		if pErr != nil {
			return nil, pErr
		}
		participants = append(participants, participantID)
	}

	var closedAt time.Time
	if dto.ClosedAt != nil {
		closedAt = *dto.ClosedAt
	}

	return chat.RestoreConversation(id, orderID, participants, closedAt)
}

// messageFromDomain converts an accepted message to its database representation.
func messageFromDomain(m chat.Message) MessageDTO {
	return MessageDTO{
		ConversationID: m.ConversationID().Bytes(),
		Sequence:       m.Sequence(),
		SenderID:       m.SenderID().Bytes(),
		Content:        m.Content(),
		SentAt:         m.SentAt(),
	}
}

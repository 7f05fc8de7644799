package conversationrepo

import (
	"context"
	"errors"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db      *gorm.DB
	tracker aggregateTracker
}

// aggregateTracker defines the interface for tracking aggregates.
type aggregateTracker interface {
	TrackAggregate(id kernel.UUID, aggregate any)
}

// NewGormConversationRepository creates a new GORM conversation repository.
func NewGormConversationRepository(db *gorm.DB, tracker aggregateTracker) *GormConversationRepository {
	return &GormConversationRepository{
		db:      db,
		tracker: tracker,
	}
}

// Add saves a new conversation to the database. The unique index on order_id
// rejects a second conversation for the same order.
func (r *GormConversationRepository) Add(ctx context.Context, aggregate *chat.Conversation) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return err
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Update saves an existing conversation to the database. Only the closure
// timestamp ever changes; the participant set is fixed at creation.
func (r *GormConversationRepository) Update(ctx context.Context, aggregate *chat.Conversation) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	result := r.db.WithContext(ctx).Model(&ConversationDTO{}).
		Where("id = ?", dto.ID).
		Updates(map[string]any{"closed_at": dto.ClosedAt})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	r.tracker.TrackAggregate(aggregate.ID(), aggregate)
	return nil
}

// Get retrieves a conversation by ID.
func (r *GormConversationRepository) Get(ctx context.Context, id kernel.UUID) (*chat.Conversation, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto ConversationDTO
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("conversation", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetByOrderID retrieves the single conversation owned by an order.
func (r *GormConversationRepository) GetByOrderID(ctx context.Context, orderID kernel.UUID) (*chat.Conversation, error) {
	if err := orderID.Validate(); err != nil {
		return nil, err
	}

	var dto ConversationDTO
	if err := r.db.WithContext(ctx).
		Preload("Participants").
		First(&dto, "order_id = ?", orderID.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("conversation for order", orderID.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// AppendMessage appends one accepted message to the conversation's log.
func (r *GormConversationRepository) AppendMessage(ctx context.Context, message chat.Message) error {
	if err := message.Validate(); err != nil {
		return err
	}

	dto := messageFromDomain(message)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// GetLastSequence returns the highest stored sequence number for the
// conversation, or zero when the log is empty.
func (r *GormConversationRepository) GetLastSequence(ctx context.Context, conversationID kernel.UUID) (int64, error) {
	if err := conversationID.Validate(); err != nil {
		return 0, err
	}

	var dto MessageDTO
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.Bytes()).
		Order("sequence DESC").
		First(&dto).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return dto.Sequence, nil
}

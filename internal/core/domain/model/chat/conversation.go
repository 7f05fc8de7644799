package chat

import (
	"errors"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

var (
	// ErrConversationIsNotConstructed is returned when a Conversation was not created
	// through the NewConversation factory method.
	ErrConversationIsNotConstructed = errors.New("Conversation must be created via NewConversation constructor")

	// ErrConversationClosed is returned for sends attempted after the owning order
	// reached its terminal state and the post-delivery grace period elapsed.
	ErrConversationClosed = errors.New("conversation is closed")

	// ErrParticipantsRequired is returned when a conversation is created without participants.
	ErrParticipantsRequired = errs.NewValueIsRequiredError("participants")
)

// Conversation is the single chat thread scoped to one order. The registry
// guarantees at most one conversation per order; the conversation itself
// tracks its participants and closure state.
//
// Closure follows the order lifecycle: when the order reaches Delivered the
// conversation is marked closed, and once the grace period elapses no further
// sends are accepted. Read paths stay open for lingering viewers.
type Conversation struct {
	// id uniquely identifies the conversation
	id kernel.UUID

	// orderID is the owning order; unique across all conversations
	orderID kernel.UUID

	// participants are the member references: customer, vendor, rider
	participants []kernel.UUID

	// closedAt is the time the owning order went terminal; zero while open
	closedAt time.Time

	isConstructed bool
}

// NewConversation creates a conversation for an order with its participant set.
// Participants are resolved from the order record (customer, vendor, assigned
// rider) by the registry; at least one participant is required.
func NewConversation(id kernel.UUID, orderID kernel.UUID, participants []kernel.UUID) (*Conversation, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if err := orderID.Validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrParticipantsRequired
	}
	for _, p := range participants {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	return &Conversation{
		id:            id,
		orderID:       orderID,
		participants:  participants,
		isConstructed: true,
	}, nil
}

// RestoreConversation reconstructs a conversation from persistence, including
// its closure timestamp. Used by repository implementations only.
func RestoreConversation(
	id kernel.UUID,
	orderID kernel.UUID,
	participants []kernel.UUID,
	closedAt time.Time,
) (*Conversation, error) {
	c, err := NewConversation(id, orderID, participants)
	if err != nil {
		return nil, err
	}

	c.closedAt = closedAt
	return c, nil
}

// Validate ensures the Conversation was properly constructed through a constructor.
func (c *Conversation) Validate() error {
	if c == nil || !c.isConstructed {
		return ErrConversationIsNotConstructed
	}
	return nil
}

// ID returns the conversation's unique identifier.
func (c *Conversation) ID() kernel.UUID {
	return c.id
}

// OrderID returns the identifier of the order this conversation belongs to.
func (c *Conversation) OrderID() kernel.UUID {
	return c.orderID
}

// Participants returns the conversation's member references.
func (c *Conversation) Participants() []kernel.UUID {
	return c.participants
}

// IsParticipant reports whether the given reference is a member of the conversation.
func (c *Conversation) IsParticipant(id kernel.UUID) bool {
	for _, p := range c.participants {
		if p.IsEqual(id) {
			return true
		}
	}
	return false
}

// Close marks the conversation closed as of the given time. Closing an
// already-closed conversation keeps the original closure time.
func (c *Conversation) Close(at time.Time) {
	if c.closedAt.IsZero() {
		c.closedAt = at
	}
}

// ClosedAt returns the closure time, or the zero time while the conversation is open.
func (c *Conversation) ClosedAt() time.Time {
	return c.closedAt
}

// AcceptsWrites reports whether a send at the given time is still allowed.
// Writes are accepted while the conversation is open, and during the grace
// period after the owning order went terminal.
func (c *Conversation) AcceptsWrites(at time.Time, grace time.Duration) bool {
	if c.closedAt.IsZero() {
		return true
	}
	return at.Before(c.closedAt.Add(grace))
}

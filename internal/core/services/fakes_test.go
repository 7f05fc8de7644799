package services_test

import (
	"context"
	"errors"
	"sync"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
)

// errDuplicateConversation mimics the storage unique constraint on order_id.
var errDuplicateConversation = errors.New("duplicate key value violates unique constraint")

// memStore is a thread-safe in-memory stand-in for Postgres, shared by all
// unit-of-work instances the fake factory hands out.
type memStore struct {
	mu            sync.Mutex
	orders        map[string]*order.Order
	conversations map[string]*chat.Conversation
	convByOrder   map[string]string
	messages      map[string][]chat.Message
}

func newMemStore() *memStore {
	return &memStore{
		orders:        make(map[string]*order.Order),
		conversations: make(map[string]*chat.Conversation),
		convByOrder:   make(map[string]string),
		messages:      make(map[string][]chat.Message),
	}
}

// conversationByOrder looks up the stored conversation provisioned for an
// order, for assertions that need its identifier.
func (s *memStore) conversationByOrder(orderID kernel.UUID) (*chat.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convID, ok := s.convByOrder[orderID.String()]
	if !ok {
		return nil, false
	}
	conversation, ok := s.conversations[convID]
	return conversation, ok
}

type memUoWFactory struct {
	store *memStore
}

func (f *memUoWFactory) Create() ports.UnitOfWork {
	return &memUoW{store: f.store}
}

type memUoW struct {
	store *memStore
}

func (u *memUoW) Begin(context.Context) error    { return nil }
func (u *memUoW) Commit(context.Context) error   { return nil }
func (u *memUoW) Rollback(context.Context) error { return nil }

func (u *memUoW) OrderRepository() ports.OrderRepository {
	return &memOrderRepo{store: u.store}
}

func (u *memUoW) ConversationRepository() ports.ConversationRepository {
	return &memConversationRepo{store: u.store}
}

type memOrderRepo struct {
	store *memStore
}

func (r *memOrderRepo) Add(_ context.Context, aggregate *order.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.orders[aggregate.ID().String()] = cloneOrder(aggregate)
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, aggregate *order.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.orders[aggregate.ID().String()] = cloneOrder(aggregate)
	return nil
}

func (r *memOrderRepo) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[id.String()]
	if !ok {
		return nil, errs.NewObjectNotFoundError("order", id.String())
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) GetAllActive(context.Context) ([]*order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var active []*order.Order
	for _, o := range r.store.orders {
		if !o.IsTerminal() {
			active = append(active, cloneOrder(o))
		}
	}
	return active, nil
}

// cloneOrder snapshots an aggregate so tests observe committed state, not
// shared pointers.
func cloneOrder(o *order.Order) *order.Order {
	restored, err := order.RestoreOrder(
		o.ID(), o.RestaurantID(), o.CustomerID(), o.RiderID(),
		o.Pickup(), o.Dropoff(), o.Items(), o.Status(), o.CreatedAt(),
	)
	if err != nil {
		panic(err)
	}
	return restored
}

type memConversationRepo struct {
	store *memStore
}

func (r *memConversationRepo) Add(_ context.Context, conversation *chat.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	orderKey := conversation.OrderID().String()
	if _, exists := r.store.convByOrder[orderKey]; exists {
		return errs.NewValueIsInvalidErrorWithCause("order_id", errDuplicateConversation)
	}
	r.store.conversations[conversation.ID().String()] = cloneConversation(conversation)
	r.store.convByOrder[orderKey] = conversation.ID().String()
	return nil
}

func (r *memConversationRepo) Update(_ context.Context, conversation *chat.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.conversations[conversation.ID().String()] = cloneConversation(conversation)
	return nil
}

func (r *memConversationRepo) Get(_ context.Context, id kernel.UUID) (*chat.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.conversations[id.String()]
	if !ok {
		return nil, errs.NewObjectNotFoundError("conversation", id.String())
	}
	return cloneConversation(c), nil
}

func (r *memConversationRepo) GetByOrderID(_ context.Context, orderID kernel.UUID) (*chat.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	convID, ok := r.store.convByOrder[orderID.String()]
	if !ok {
		return nil, errs.NewObjectNotFoundError("conversation", orderID.String())
	}
	return cloneConversation(r.store.conversations[convID]), nil
}

func (r *memConversationRepo) AppendMessage(_ context.Context, message chat.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := message.ConversationID().String()
	r.store.messages[key] = append(r.store.messages[key], message)
	return nil
}

func (r *memConversationRepo) GetLastSequence(_ context.Context, conversationID kernel.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	msgs := r.store.messages[conversationID.String()]
	if len(msgs) == 0 {
		return 0, nil
	}
	return msgs[len(msgs)-1].Sequence(), nil
}

func cloneConversation(c *chat.Conversation) *chat.Conversation {
	restored, err := chat.RestoreConversation(c.ID(), c.OrderID(), c.Participants(), c.ClosedAt())
	if err != nil {
		panic(err)
	}
	return restored
}

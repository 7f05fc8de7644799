package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
	"ordersync/internal/pkg/keyedmutex"
)

// ConversationRegistry maintains the one-to-one mapping between orders and
// their chat conversations.
//
// GetOrCreate is idempotent under concurrency: per-order locking resolves
// racing calls in-process, and the storage unique constraint on order_id
// resolves races across processes, so exactly one conversation ever exists
// per order. The registry also owns per-conversation sequence allocation,
// seeded from the message log after a restart.
type ConversationRegistry struct {
	uowFactory ports.UnitOfWorkFactory
	locks      *keyedmutex.KeyedMutex
	logger     *slog.Logger

	mu      sync.RWMutex
	byID    map[string]*convEntry
	byOrder map[string]string
}

// convEntry caches one conversation with its sequence allocator.
// nextSeq is the last allocated sequence; it is seeded lazily from storage
// and only ever touched under the conversation's send lock.
type convEntry struct {
	conversation *chat.Conversation
	nextSeq      int64
	seeded       bool
}

// NewConversationRegistry creates an empty registry.
func NewConversationRegistry(uowFactory ports.UnitOfWorkFactory, logger *slog.Logger) *ConversationRegistry {
	return &ConversationRegistry{
		uowFactory: uowFactory,
		locks:      keyedmutex.New(),
		logger:     logger.With("component", "conversation_registry"),
		byID:       make(map[string]*convEntry),
		byOrder:    make(map[string]string),
	}
}

// GetOrCreate returns the conversation owned by the order, creating it on
// first use with the order's participants (customer, restaurant, rider).
// All callers racing on the same order observe the same conversation.
// Fails with errs.ObjectNotFoundError when the order does not exist.
func (r *ConversationRegistry) GetOrCreate(ctx context.Context, orderID kernel.UUID) (*chat.Conversation, error) {
	orderKey := orderID.String()

	r.mu.RLock()
	convID, ok := r.byOrder[orderKey]
	if ok {
		entry := r.byID[convID]
		r.mu.RUnlock()
		return entry.conversation, nil
	}
	r.mu.RUnlock()

	r.locks.Lock(orderKey)
	defer r.locks.Unlock(orderKey)

	// Another caller may have created it while we waited for the lock.
	r.mu.RLock()
	if convID, ok = r.byOrder[orderKey]; ok {
		entry := r.byID[convID]
		r.mu.RUnlock()
		return entry.conversation, nil
	}
	r.mu.RUnlock()

	conversation, err := r.loadOrCreate(ctx, orderID)
	if err != nil {
		return nil, err
	}

	r.cache(conversation)
	return conversation, nil
}

// Get returns a conversation by its identifier, consulting storage on a
// cache miss. Fails with errs.ObjectNotFoundError when it does not exist.
func (r *ConversationRegistry) Get(ctx context.Context, conversationID kernel.UUID) (*chat.Conversation, error) {
	r.mu.RLock()
	entry, ok := r.byID[conversationID.String()]
	r.mu.RUnlock()
	if ok {
		return entry.conversation, nil
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	conversation, err := uow.ConversationRepository().Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	r.cache(conversation)
	return conversation, nil
}

// Append allocates the next sequence number, persists the message, and
// returns it. The caller (the message router) must hold the conversation's
// send lock: the allocator is only consistent under that serialization.
func (r *ConversationRegistry) Append(
	ctx context.Context,
	conversation *chat.Conversation,
	senderID kernel.UUID,
	content string,
	sentAt time.Time,
) (chat.Message, error) {
	entry, err := r.entryFor(ctx, conversation)
	if err != nil {
		return chat.Message{}, err
	}

	seq := entry.nextSeq + 1
	msg, err := chat.NewMessage(conversation.ID(), seq, senderID, content, sentAt)
	if err != nil {
		return chat.Message{}, err
	}

	uow := r.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return chat.Message{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.ConversationRepository().AppendMessage(ctx, msg); err != nil {
		return chat.Message{}, err
	}
	if err = uow.Commit(ctx); err != nil {
		return chat.Message{}, err
	}

	// Advance the allocator only after the message is durable, so a failed
	// append never leaves a sequence gap.
	entry.nextSeq = seq
	return msg, nil
}

// CloseOrder marks the order's conversation closed as of the terminal
// transition time. Reads stay open; sends are refused once the grace period
// elapses. Implements OrderCloser.
func (r *ConversationRegistry) CloseOrder(orderID kernel.UUID, at time.Time) {
	ctx := context.Background()

	conversation, err := r.GetOrCreate(ctx, orderID)
	if err != nil {
		r.logger.Error("close conversation for order", "order_id", orderID, "error", err)
		return
	}

	conversation.Close(at)

	uow := r.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		r.logger.Error("close conversation for order", "order_id", orderID, "error", err)
		return
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.ConversationRepository().Update(ctx, conversation); err != nil {
		r.logger.Error("persist conversation closure", "order_id", orderID, "error", err)
		return
	}
	if err = uow.Commit(ctx); err != nil {
		r.logger.Error("persist conversation closure", "order_id", orderID, "error", err)
	}
}

// Retire drops the cached conversation state for a delivered order, along
// with its creation lock entry. It reports the retired conversation's ID so
// callers can release per-conversation resources they hold elsewhere.
func (r *ConversationRegistry) Retire(orderID kernel.UUID) (kernel.UUID, bool) {
	orderKey := orderID.String()

	var retired kernel.UUID
	var found bool

	r.mu.Lock()
	if convID, ok := r.byOrder[orderKey]; ok {
		if entry, cached := r.byID[convID]; cached {
			retired = entry.conversation.ID()
			found = true
		}
		delete(r.byID, convID)
		delete(r.byOrder, orderKey)
	}
	r.mu.Unlock()

	r.locks.Retire(orderKey)
	return retired, found
}

// loadOrCreate fetches the order's conversation from storage, creating and
// persisting it when absent. A unique-constraint failure on insert means
// another process won the creation race; the winner's row is fetched instead.
func (r *ConversationRegistry) loadOrCreate(ctx context.Context, orderID kernel.UUID) (*chat.Conversation, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	conversation, err := uow.ConversationRepository().GetByOrderID(ctx, orderID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, errs.ErrObjectNotFound) {
		return nil, err
	}

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	participants := []kernel.UUID{o.CustomerID(), o.RestaurantID(), o.RiderID()}
	conversation, err = chat.NewConversation(kernel.NewUUID(), orderID, participants)
	if err != nil {
		return nil, err
	}

	if err = uow.ConversationRepository().Add(ctx, conversation); err != nil {
		return r.fetchExisting(ctx, orderID, err)
	}
	if err = uow.Commit(ctx); err != nil {
		return r.fetchExisting(ctx, orderID, err)
	}

	return conversation, nil
}

// fetchExisting resolves a lost cross-process creation race by returning the
// winner's conversation. The original error is surfaced when no row exists.
func (r *ConversationRegistry) fetchExisting(ctx context.Context, orderID kernel.UUID, insertErr error) (*chat.Conversation, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, insertErr
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	conversation, err := uow.ConversationRepository().GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, insertErr
	}
	return conversation, nil
}

func (r *ConversationRegistry) cache(conversation *chat.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	convID := conversation.ID().String()
	if _, ok := r.byID[convID]; ok {
		return
	}
	r.byID[convID] = &convEntry{conversation: conversation}
	r.byOrder[conversation.OrderID().String()] = convID
}

// entryFor returns the allocator entry for the conversation, seeding the
// sequence counter from the stored message log on first use.
func (r *ConversationRegistry) entryFor(ctx context.Context, conversation *chat.Conversation) (*convEntry, error) {
	r.mu.RLock()
	entry, ok := r.byID[conversation.ID().String()]
	r.mu.RUnlock()
	if !ok {
		r.cache(conversation)
		r.mu.RLock()
		entry = r.byID[conversation.ID().String()]
		r.mu.RUnlock()
	}

	if entry.seeded {
		return entry, nil
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	last, err := uow.ConversationRepository().GetLastSequence(ctx, conversation.ID())
	if err != nil {
		return nil, err
	}

	entry.nextSeq = last
	entry.seeded = true
	return entry, nil
}

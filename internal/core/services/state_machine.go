package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"
	"ordersync/internal/pkg/keyedmutex"
)

// OrderCloser is notified when an order reaches its terminal state, while the
// order's lock is still held. The location stream and the conversation
// registry implement it to tear down their per-order state in step with the
// transition.
type OrderCloser interface {
	CloseOrder(orderID kernel.UUID, at time.Time)
}

// OrderStateMachine owns the delivery status lifecycle of every active order.
//
// All transitions for one order are serialized through a per-order lock, so
// concurrent attempts resolve to one winner and the losers fail against the
// winner's resulting state. Each accepted transition is persisted and then
// published on the order's status channel before the lock is released, which
// keeps the published stream in transition order.
//
// Example:
//
//	sm := services.NewOrderStateMachine(uowFactory, bus, logger)
//	status, err := sm.Transition(ctx, orderID, riderID, order.PickedUp)
//	if errors.Is(err, order.ErrInvalidTransition) {
//	    // illegal edge; order state unchanged
//	}
type OrderStateMachine struct {
	uowFactory ports.UnitOfWorkFactory
	bus        ports.EventBus
	locks      *keyedmutex.KeyedMutex
	logger     *slog.Logger

	mu       sync.RWMutex
	statuses map[string]order.Status
	terminal map[string]time.Time

	closers []OrderCloser

	now func() time.Time
}

// NewOrderStateMachine creates the state machine with an empty status cache.
// Call WarmUp before serving traffic to seed the cache from storage.
func NewOrderStateMachine(uowFactory ports.UnitOfWorkFactory, bus ports.EventBus, logger *slog.Logger) *OrderStateMachine {
	return &OrderStateMachine{
		uowFactory: uowFactory,
		bus:        bus,
		locks:      keyedmutex.New(),
		logger:     logger.With("component", "order_state_machine"),
		statuses:   make(map[string]order.Status),
		terminal:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// AddCloser registers a per-order teardown hook invoked on terminal
// transitions. Must be called before any traffic is served.
func (sm *OrderStateMachine) AddCloser(closer OrderCloser) {
	sm.closers = append(sm.closers, closer)
}

// WarmUp seeds the status cache with every non-terminal order from storage.
func (sm *OrderStateMachine) WarmUp(ctx context.Context) error {
	uow := sm.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	orders, err := uow.OrderRepository().GetAllActive(ctx)
	if err != nil {
		return err
	}

	sm.mu.Lock()
	for _, o := range orders {
		sm.statuses[o.ID().String()] = o.Status()
	}
	sm.mu.Unlock()

	sm.logger.Info("status cache warmed", "orders", len(orders))
	return nil
}

// Track registers a freshly created order with the cache. Called by the
// create order command after a successful commit.
func (sm *OrderStateMachine) Track(orderID kernel.UUID, status order.Status) {
	sm.mu.Lock()
	sm.statuses[orderID.String()] = status
	sm.mu.Unlock()
}

// Status returns the current delivery status of a tracked order.
// Falls back to storage when the order is not in the cache.
func (sm *OrderStateMachine) Status(ctx context.Context, orderID kernel.UUID) (order.Status, error) {
	sm.mu.RLock()
	status, ok := sm.statuses[orderID.String()]
	sm.mu.RUnlock()
	if ok {
		return status, nil
	}

	o, err := sm.load(ctx, orderID)
	if err != nil {
		return order.Unknown, err
	}
	return o.Status(), nil
}

// IsTerminal reports whether the order is known to have reached Delivered.
// Unknown orders report false; the authoritative check happens under the
// order lock inside Transition.
func (sm *OrderStateMachine) IsTerminal(orderID kernel.UUID) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	_, ok := sm.terminal[orderID.String()]
	return ok
}

// Transition attempts to advance the order to the target status on behalf of
// the given rider.
//
// Legal edges are Assigned -> PickedUp -> OnTheWay -> Delivered, one step at
// a time. Illegal edges fail with order.ErrInvalidTransition and leave the
// order unchanged; any attempt on a Delivered order fails with
// order.ErrOrderClosed. On success the new status is persisted and a
// StatusUpdate is published on the order's status channel.
func (sm *OrderStateMachine) Transition(
	ctx context.Context,
	orderID kernel.UUID,
	riderID kernel.UUID,
	target order.Status,
) (order.Status, error) {
	if err := target.Validate(); err != nil {
		return order.Unknown, err
	}

	key := orderID.String()
	sm.locks.Lock(key)
	defer sm.locks.Unlock(key)

	uow := sm.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return order.Unknown, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		return order.Unknown, err
	}

	if err = o.TransitionTo(target); err != nil {
		return o.Status(), err
	}

	if err = uow.OrderRepository().Update(ctx, o); err != nil {
		return order.Unknown, err
	}
	if err = uow.Commit(ctx); err != nil {
		return order.Unknown, err
	}

	updatedAt := sm.now().UTC()

	sm.mu.Lock()
	sm.statuses[key] = o.Status()
	if o.IsTerminal() {
		sm.terminal[key] = updatedAt
	}
	sm.mu.Unlock()

	sm.publish(ctx, orderID, riderID, o.Status(), updatedAt)

	if o.IsTerminal() {
		for _, closer := range sm.closers {
			closer.CloseOrder(orderID, updatedAt)
		}
	}

	return o.Status(), nil
}

// TerminalBefore returns the identifiers of delivered orders whose terminal
// time is before the cutoff. The retirement job uses it to decide which
// per-order state to reclaim.
func (sm *OrderStateMachine) TerminalBefore(cutoff time.Time) []kernel.UUID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var ids []kernel.UUID
	for key, at := range sm.terminal {
		if !at.Before(cutoff) {
			continue
		}
		id, err := kernel.UUIDFromString(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Retire drops all in-memory state for a delivered order, including its lock
// entry. Must only be called for orders already terminal.
func (sm *OrderStateMachine) Retire(orderID kernel.UUID) {
	key := orderID.String()

	sm.mu.Lock()
	delete(sm.statuses, key)
	delete(sm.terminal, key)
	sm.mu.Unlock()

	sm.locks.Retire(key)
}

func (sm *OrderStateMachine) load(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	uow := sm.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	o, err := uow.OrderRepository().Get(ctx, orderID)
	if err != nil {
		var notFound *errs.ObjectNotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return o, nil
}

func (sm *OrderStateMachine) publish(
	ctx context.Context,
	orderID kernel.UUID,
	riderID kernel.UUID,
	status order.Status,
	updatedAt time.Time,
) {
	payload, err := json.Marshal(StatusUpdate{
		Status:    status.String(),
		UpdatedAt: updatedAt,
		RiderID:   riderID.String(),
		OrderID:   orderID.String(),
	})
	if err != nil {
		sm.logger.Error("marshal status update", "order_id", orderID, "error", err)
		return
	}

	if err = sm.bus.Publish(ctx, StatusChannel(orderID), payload); err != nil {
		sm.logger.Error("publish status update", "order_id", orderID, "error", err)
	}
}

package commands

import (
	"context"

	"ordersync/internal/core/domain/model/chat"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
)

// OrderTracker receives freshly committed orders so the realtime status
// cache starts tracking them immediately. The order state machine implements it.
type OrderTracker interface {
	Track(orderID kernel.UUID, status order.Status)
}

// CreateOrderCommandHandler handles the business logic for order creation.
// Creates the order in Assigned status and provisions its chat conversation
// in the same transaction, then registers the order with the realtime core.
//
// Example:
//
//	handler := NewCreateOrderCommandHandler(uowFactory, stateMachine)
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("order creation failed: %w", err)
//	}
//	// Order is now live on its status, location and chat channels
type CreateOrderCommandHandler struct {
	uowFactory UoWFactory
	tracker    OrderTracker
}

// NewCreateOrderCommandHandler creates a handler for order creation operations.
// Requires a UoWFactory for transactional persistence and an OrderTracker to
// seed the realtime status cache.
func NewCreateOrderCommandHandler(uowFactory UoWFactory, tracker OrderTracker) CreateOrderCommandHandler {
	return CreateOrderCommandHandler{
		uowFactory: uowFactory,
		tracker:    tracker,
	}
}

// Handle processes the order creation command.
// Persists the order and its conversation atomically; on commit the order is
// registered with the realtime status cache.
func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	o, err := order.NewOrder(
		cmd.OrderID(),
		cmd.RestaurantID(),
		cmd.CustomerID(),
		cmd.RiderID(),
		cmd.Pickup(),
		cmd.Dropoff(),
		cmd.Items(),
	)
	if err != nil {
		return err
	}

	conversation, err := chat.NewConversation(
		kernel.NewUUID(),
		o.ID(),
		[]kernel.UUID{o.CustomerID(), o.RestaurantID(), o.RiderID()},
	)
	if err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.OrderRepository().Add(ctx, o); err != nil {
		return err
	}

	if err = uow.ConversationRepository().Add(ctx, conversation); err != nil {
		return err
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.tracker.Track(o.ID(), o.Status())
	return nil
}

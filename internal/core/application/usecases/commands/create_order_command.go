package commands

import (
	"errors"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
	"ordersync/internal/pkg/guard"
)

var (
	ErrCreateOrderCommandIsNotConstructed = errors.New(
		"CreateOrderCommand must be created via NewCreateOrderCommand constructor",
	)
	ErrPickupIsInvalid  = errors.New("pickup waypoint must carry a constructed geo point")
	ErrDropoffIsInvalid = errors.New("dropoff waypoint must carry a constructed geo point")
)

// CreateOrderCommand represents a request to register a rider-assigned order
// with the realtime core. Carries the full participant set so the chat
// conversation can be provisioned in the same transaction.
//
// Example:
//
//	cmd, err := NewCreateOrderCommand(orderID, restaurantID, customerID, riderID, pickup, dropoff, items)
//	if err != nil {
//	    return fmt.Errorf("invalid order data: %w", err)
//	}
//
//	handler := NewCreateOrderCommandHandler(uowFactory, stateMachine)
//	if err := handler.Handle(ctx, cmd); err != nil {
//	    return fmt.Errorf("failed to create order: %w", err)
//	}
type CreateOrderCommand struct { //nolint:recvcheck //using for validation
	orderID      kernel.UUID
	restaurantID kernel.UUID
	customerID   kernel.UUID
	riderID      kernel.UUID
	pickup       order.Waypoint
	dropoff      order.Waypoint
	items        []order.Item

	guard guard.ConstructorGuard
}

// NewCreateOrderCommand creates a command to register a new delivery order.
// All identifiers must be valid UUIDs and both waypoints must carry
// constructed geo points. Returns an error if any validation fails.
func NewCreateOrderCommand(
	orderID kernel.UUID,
	restaurantID kernel.UUID,
	customerID kernel.UUID,
	riderID kernel.UUID,
	pickup order.Waypoint,
	dropoff order.Waypoint,
	items []order.Item,
) (CreateOrderCommand, error) {
	cmd := CreateOrderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setOrderID(orderID),
		cmd.setRestaurantID(restaurantID),
		cmd.setCustomerID(customerID),
		cmd.setRiderID(riderID),
		cmd.setPickup(pickup),
		cmd.setDropoff(dropoff),
	); err != nil {
		return CreateOrderCommand{}, err
	}

	cmd.items = items
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrCreateOrderCommandIsNotConstructed if validation fails.
func (c CreateOrderCommand) Validate() error {
	return c.guard.Validate(ErrCreateOrderCommandIsNotConstructed)
}

// OrderID returns the unique identifier for the order.
func (c CreateOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

// RestaurantID returns the restaurant participant reference.
func (c CreateOrderCommand) RestaurantID() kernel.UUID {
	return c.restaurantID
}

// CustomerID returns the customer participant reference.
func (c CreateOrderCommand) CustomerID() kernel.UUID {
	return c.customerID
}

// RiderID returns the assigned rider reference.
func (c CreateOrderCommand) RiderID() kernel.UUID {
	return c.riderID
}

// Pickup returns the restaurant-side waypoint.
func (c CreateOrderCommand) Pickup() order.Waypoint {
	return c.pickup
}

// Dropoff returns the customer-side waypoint.
func (c CreateOrderCommand) Dropoff() order.Waypoint {
	return c.dropoff
}

// Items returns the order line list.
func (c CreateOrderCommand) Items() []order.Item {
	return c.items
}

func (c *CreateOrderCommand) setOrderID(orderID kernel.UUID) error {
	if err := orderID.Validate(); err != nil {
		return err
	}

	c.orderID = orderID
	return nil
}

func (c *CreateOrderCommand) setRestaurantID(restaurantID kernel.UUID) error {
	if err := restaurantID.Validate(); err != nil {
		return err
	}

	c.restaurantID = restaurantID
	return nil
}

func (c *CreateOrderCommand) setCustomerID(customerID kernel.UUID) error {
	if err := customerID.Validate(); err != nil {
		return err
	}

	c.customerID = customerID
	return nil
}

func (c *CreateOrderCommand) setRiderID(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	c.riderID = riderID
	return nil
}

func (c *CreateOrderCommand) setPickup(pickup order.Waypoint) error {
	if err := pickup.Point.Validate(); err != nil {
		return ErrPickupIsInvalid
	}

	c.pickup = pickup
	return nil
}

func (c *CreateOrderCommand) setDropoff(dropoff order.Waypoint) error {
	if err := dropoff.Point.Validate(); err != nil {
		return ErrDropoffIsInvalid
	}

	c.dropoff = dropoff
	return nil
}

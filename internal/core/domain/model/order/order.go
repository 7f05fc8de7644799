package order

import (
	"errors"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// the NewOrder factory method. This ensures all orders are properly validated.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder constructor")

	// ErrOrderClosed is returned for writes (status transitions, location samples)
	// attempted after the order reached its terminal Delivered state.
	ErrOrderClosed = errors.New("order is closed")
)

// Waypoint is a named geographic point, used for the order's pickup and
// dropoff coordinates.
type Waypoint struct {
	Name  string
	Point kernel.GeoPoint
}

// Item is a single order line as entered by the customer.
// The core never interprets items; they travel with the order record.
type Item struct {
	Name     string
	Quantity int
}

// Order represents a delivery order in the system. It is the aggregate root
// the realtime core synchronizes around: the CRUD layer owns creation and
// the catalog fields, the core reads identity and participants and mutates
// only the delivery status.
//
// Order follows these invariants:
//   - Must have valid order, restaurant, customer, and rider identifiers
//   - Status transitions follow the Assigned -> PickedUp -> OnTheWay -> Delivered path
//   - Delivered is terminal: no further status mutation is accepted
//   - Can only be created through NewOrder or RestoreOrder
//
// The Order struct uses private fields to ensure encapsulation and maintains
// its invariants through validated methods.
type Order struct {
	// id is the unique identifier for the order
	id kernel.UUID

	// restaurantID identifies the vendor preparing the order
	restaurantID kernel.UUID

	// customerID references the customer that placed the order
	customerID kernel.UUID

	// riderID is the rider assigned to deliver the order
	riderID kernel.UUID

	// pickup and dropoff are the named endpoints of the delivery
	pickup  Waypoint
	dropoff Waypoint

	// items is the customer's order line list, opaque to the core
	items []Item

	// status is the current state in the delivery workflow
	status Status

	// createdAt is the server-side creation timestamp
	createdAt time.Time

	// isConstructed ensures the order was created via a constructor
	isConstructed bool
}

// NewOrder creates a new Order instance with validation. The order starts in
// Assigned status: the realtime core only tracks orders that already have a
// rider. All identifier parameters must be valid UUIDs and both waypoints
// must carry constructed geo points.
//
// Example:
//
//	pickup := order.Waypoint{Name: "Napoli Pizza", Point: restaurantPoint}
//	dropoff := order.Waypoint{Name: "Green Tower, apt 12", Point: customerPoint}
//	o, err := order.NewOrder(orderID, restaurantID, customerID, riderID, pickup, dropoff, items)
//	if err != nil {
//	    // Handle validation error
//	}
func NewOrder(
	id kernel.UUID,
	restaurantID kernel.UUID,
	customerID kernel.UUID,
	riderID kernel.UUID,
	pickup Waypoint,
	dropoff Waypoint,
	items []Item,
) (*Order, error) {
	o := &Order{
		status:        Assigned,
		createdAt:     time.Now().UTC(),
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setRestaurantID(restaurantID),
		o.setCustomerID(customerID),
		o.setRiderID(riderID),
		o.setPickup(pickup),
		o.setDropoff(dropoff),
	); err != nil {
		return nil, err
	}

	o.items = items
	return o, nil
}

// RestoreOrder reconstructs an order from persistence with its stored status
// and creation timestamp. Used by repository implementations only.
func RestoreOrder(
	id kernel.UUID,
	restaurantID kernel.UUID,
	customerID kernel.UUID,
	riderID kernel.UUID,
	pickup Waypoint,
	dropoff Waypoint,
	items []Item,
	status Status,
	createdAt time.Time,
) (*Order, error) {
	o, err := NewOrder(id, restaurantID, customerID, riderID, pickup, dropoff, items)
	if err != nil {
		return nil, err
	}

	if err = status.Validate(); err != nil {
		return nil, err
	}

	o.status = status
	o.createdAt = createdAt
	return o, nil
}

// Validate ensures the Order instance was properly constructed through a
// constructor. This prevents bypassing validation by directly instantiating
// the struct, and should be called when reconstructing orders from persistence.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}

	return nil
}

// IsEqual compares two orders by their unique identifiers.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

// ID returns the order's unique identifier.
func (o *Order) ID() kernel.UUID {
	return o.id
}

// RestaurantID returns the identifier of the vendor preparing the order.
func (o *Order) RestaurantID() kernel.UUID {
	return o.restaurantID
}

// CustomerID returns the identifier of the customer that placed the order.
func (o *Order) CustomerID() kernel.UUID {
	return o.customerID
}

// RiderID returns the identifier of the rider assigned to the order.
func (o *Order) RiderID() kernel.UUID {
	return o.riderID
}

// Pickup returns the named pickup waypoint (the restaurant).
func (o *Order) Pickup() Waypoint {
	return o.pickup
}

// Dropoff returns the named dropoff waypoint (the customer address).
func (o *Order) Dropoff() Waypoint {
	return o.dropoff
}

// Items returns the order's line items.
func (o *Order) Items() []Item {
	return o.items
}

// Status returns the current status of the order.
func (o *Order) Status() Status {
	return o.status
}

// CreatedAt returns the server-side creation timestamp.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// IsTerminal reports whether the order has reached its terminal Delivered state.
func (o *Order) IsTerminal() bool {
	return o.status.IsTerminal()
}

// TransitionTo advances the order's status along the delivery workflow.
//
// This method enforces the following business rules:
//   - A terminal (Delivered) order accepts no further transitions (ErrOrderClosed)
//   - The requested edge must be the next step of the workflow (ErrInvalidTransition)
//
// On failure the order's status is unchanged and remains authoritative.
//
// Example:
//
//	if err := o.TransitionTo(order.PickedUp); err != nil {
//	    // Surface "action not allowed right now" to the rider app
//	}
func (o *Order) TransitionTo(target Status) error {
	if o.status.IsTerminal() {
		return ErrOrderClosed
	}

	newStatus, err := o.status.TransitionTo(target)
	if err != nil {
		return err
	}

	o.status = newStatus
	return nil
}

// setID validates and sets the order's unique identifier.
// This is a private method used only during construction.
func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setRestaurantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.restaurantID = id
	return nil
}

func (o *Order) setCustomerID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.customerID = id
	return nil
}

func (o *Order) setRiderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.riderID = id
	return nil
}

func (o *Order) setPickup(w Waypoint) error {
	if w.Name == "" {
		return errs.NewValueIsRequiredError("pickup name")
	}
	if err := w.Point.Validate(); err != nil {
		return err
	}
	o.pickup = w
	return nil
}

func (o *Order) setDropoff(w Waypoint) error {
	if w.Name == "" {
		return errs.NewValueIsRequiredError("dropoff name")
	}
	if err := w.Point.Validate(); err != nil {
		return err
	}
	o.dropoff = w
	return nil
}

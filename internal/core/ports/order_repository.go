package ports

import (
	"context"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates.
// The realtime core reads order identity and participants through it and
// writes back accepted status transitions; all other order mutation belongs
// to the CRUD layer.
type OrderRepository interface {
	// Add persists a new order aggregate to storage.
	// The order must be valid and not already exist in the repository.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists changes to an existing order aggregate.
	// The core only ever changes the delivery status.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order aggregate by its unique identifier.
	// Returns errs.ObjectNotFoundError when no such order exists.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetAllActive retrieves all orders that have not reached the terminal
	// Delivered state. Used to warm the realtime core's status cache at
	// process start.
	GetAllActive(ctx context.Context) ([]*order.Order, error)
}

package ports

import (
	"context"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/rider"
)

// RiderRepository defines the persistence contract for rider profiles.
// Rider lifecycle belongs to the CRUD layer; the realtime core only reads
// identity and display data for attribution.
type RiderRepository interface {
	// Add persists a new rider profile to storage.
	Add(ctx context.Context, aggregate *rider.Rider) error

	// Get retrieves a rider profile by its unique identifier.
	// Returns errs.ObjectNotFoundError when no such rider exists.
	Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error)

	// GetAllByRestaurant retrieves every rider attached to a restaurant.
	GetAllByRestaurant(ctx context.Context, restaurantID kernel.UUID) ([]*rider.Rider, error)
}

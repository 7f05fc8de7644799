package queries

import (
	"errors"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/guard"
)

// ErrGetRidersQueryIsNotConstructed is returned when a GetRidersQuery was
// not created through its constructor.
var ErrGetRidersQueryIsNotConstructed = errors.New(
	"GetRidersQuery must be created via NewGetRidersQuery constructor",
)

// GetRidersQuery represents a request for a restaurant's rider roster.
type GetRidersQuery struct {
	restaurantID kernel.UUID
	guard        guard.ConstructorGuard
}

// NewGetRidersQuery creates a query for riders attached to a restaurant.
func NewGetRidersQuery(restaurantID kernel.UUID) (GetRidersQuery, error) {
	if err := restaurantID.Validate(); err != nil {
		return GetRidersQuery{}, err
	}

	return GetRidersQuery{
		restaurantID: restaurantID,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

// Validate ensures the query was created through the constructor.
// Returns ErrGetRidersQueryIsNotConstructed if validation fails.
func (q GetRidersQuery) Validate() error {
	return q.guard.Validate(ErrGetRidersQueryIsNotConstructed)
}

// RestaurantID returns the restaurant whose roster is being read.
func (q GetRidersQuery) RestaurantID() kernel.UUID {
	return q.restaurantID
}

// GetRidersQueryResponse represents one rider profile.
type GetRidersQueryResponse struct {
	ID      kernel.UUID
	Name    string
	Vehicle string
	Phone   string
}

// Package rider provides the rider profile read model consumed by the
// order-synchronization core. The CRUD layer owns rider lifecycle; the core
// only reads rider identity when resolving conversation participants and
// attributing status and location updates.
package rider

import (
	"errors"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
	"ordersync/internal/pkg/guard"
)

// Domain errors for rider construction.
var (
	// ErrNameIsRequired is returned when attempting to create a rider without a display name.
	ErrNameIsRequired = errs.NewValueIsRequiredError("name")
	// ErrRiderIsNotConstructed is returned when using an improperly initialized Rider.
	ErrRiderIsNotConstructed = errors.New("Rider must be created via NewRider constructor")
)

// Rider represents a delivery rider's profile. It is a read-only input to the
// realtime core: identity and display data for attribution, never mutated here.
//
// Business rules:
//   - Rider must have a valid UUID and a non-empty display name
//   - Rider is attached to exactly one restaurant
//   - Phone is optional and opaque to the core
type Rider struct {
	// id uniquely identifies the rider
	id kernel.UUID
	// name is the rider's display name shown in chat and tracking views
	name string
	// restaurantID is the restaurant the rider is attached to
	restaurantID kernel.UUID
	// vehicle is how the rider travels; informational only
	vehicle VehicleType
	// phone is the rider's optional contact number
	phone string
	// guard ensures the rider was properly constructed
	guard guard.ConstructorGuard
}

// NewRider creates a new Rider profile with validation.
//
// Parameters:
//   - id: Unique identifier for the rider (must be valid UUID)
//   - name: Display name (must be non-empty)
//   - restaurantID: The restaurant the rider serves (must be valid UUID)
//   - vehicle: Vehicle type (must be a valid VehicleType)
//   - phone: Optional contact number, may be empty
//
// Example:
//
//	r, err := rider.NewRider(kernel.NewUUID(), "Aidos", restaurantID, rider.Motorbike, "+7 777 000 11 22")
//	if err != nil {
//	    // Handle validation error
//	}
func NewRider(id kernel.UUID, name string, restaurantID kernel.UUID, vehicle VehicleType, phone string) (*Rider, error) {
	r := &Rider{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		r.setID(id),
		r.setName(name),
		r.setRestaurantID(restaurantID),
		r.setVehicle(vehicle),
	); err != nil {
		return nil, err
	}

	r.phone = phone
	return r, nil
}

// Validate ensures the Rider instance was properly constructed through NewRider.
func (r *Rider) Validate() error {
	if r == nil {
		return ErrRiderIsNotConstructed
	}
	return r.guard.Validate(ErrRiderIsNotConstructed)
}

// ID returns the rider's unique identifier.
func (r *Rider) ID() kernel.UUID {
	return r.id
}

// Name returns the rider's display name.
func (r *Rider) Name() string {
	return r.name
}

// RestaurantID returns the identifier of the restaurant the rider serves.
func (r *Rider) RestaurantID() kernel.UUID {
	return r.restaurantID
}

// Vehicle returns the rider's vehicle type.
func (r *Rider) Vehicle() VehicleType {
	return r.vehicle
}

// Phone returns the rider's contact number, or an empty string when not provided.
func (r *Rider) Phone() string {
	return r.phone
}

func (r *Rider) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.id = id
	return nil
}

func (r *Rider) setName(name string) error {
	if name == "" {
		return ErrNameIsRequired
	}
	r.name = name
	return nil
}

func (r *Rider) setRestaurantID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	r.restaurantID = id
	return nil
}

func (r *Rider) setVehicle(vehicle VehicleType) error {
	if err := vehicle.Validate(); err != nil {
		return err
	}
	r.vehicle = vehicle
	return nil
}

package commands

import (
	"errors"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/rider"
	"ordersync/internal/pkg/errs"
	"ordersync/internal/pkg/guard"
)

var (
	ErrCreateRiderCommandIsNotConstructed = errors.New(
		"CreateRiderCommand must be created via NewCreateRiderCommand constructor",
	)
	ErrRiderNameIsRequired = errs.NewValueIsRequiredError("name")
)

// CreateRiderCommand represents a request to register a rider profile.
// The profile is a read-only input to the realtime core; registration is
// part of the CRUD seam.
type CreateRiderCommand struct { //nolint:recvcheck //using for validation
	riderID      kernel.UUID
	name         string
	restaurantID kernel.UUID
	vehicle      rider.VehicleType
	phone        string

	guard guard.ConstructorGuard
}

// NewCreateRiderCommand creates a command to register a new rider profile.
// Returns an error if any validation fails.
func NewCreateRiderCommand(
	riderID kernel.UUID,
	name string,
	restaurantID kernel.UUID,
	vehicle rider.VehicleType,
	phone string,
) (CreateRiderCommand, error) {
	cmd := CreateRiderCommand{
		guard: guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setRiderID(riderID),
		cmd.setName(name),
		cmd.setRestaurantID(restaurantID),
		cmd.setVehicle(vehicle),
	); err != nil {
		return CreateRiderCommand{}, err
	}

	cmd.phone = phone
	return cmd, nil
}

// Validate ensures the command was created through the constructor.
// Returns ErrCreateRiderCommandIsNotConstructed if validation fails.
func (c CreateRiderCommand) Validate() error {
	return c.guard.Validate(ErrCreateRiderCommandIsNotConstructed)
}

// RiderID returns the unique identifier for the rider.
func (c CreateRiderCommand) RiderID() kernel.UUID {
	return c.riderID
}

// Name returns the rider's display name.
func (c CreateRiderCommand) Name() string {
	return c.name
}

// RestaurantID returns the restaurant the rider is attached to.
func (c CreateRiderCommand) RestaurantID() kernel.UUID {
	return c.restaurantID
}

// Vehicle returns how the rider travels.
func (c CreateRiderCommand) Vehicle() rider.VehicleType {
	return c.vehicle
}

// Phone returns the rider's optional contact number.
func (c CreateRiderCommand) Phone() string {
	return c.phone
}

func (c *CreateRiderCommand) setRiderID(riderID kernel.UUID) error {
	if err := riderID.Validate(); err != nil {
		return err
	}

	c.riderID = riderID
	return nil
}

func (c *CreateRiderCommand) setName(name string) error {
	if name == "" {
		return ErrRiderNameIsRequired
	}

	c.name = name
	return nil
}

func (c *CreateRiderCommand) setRestaurantID(restaurantID kernel.UUID) error {
	if err := restaurantID.Validate(); err != nil {
		return err
	}

	c.restaurantID = restaurantID
	return nil
}

func (c *CreateRiderCommand) setVehicle(vehicle rider.VehicleType) error {
	if err := vehicle.Validate(); err != nil {
		return err
	}

	c.vehicle = vehicle
	return nil
}

package commands

import (
	"context"

	"ordersync/internal/core/domain/model/rider"
	"ordersync/internal/core/ports"
)

// CreateRiderCommandHandler handles the business logic for rider registration.
type CreateRiderCommandHandler struct {
	riderRepository ports.RiderRepository
}

// NewCreateRiderCommandHandler creates a handler for rider registration.
func NewCreateRiderCommandHandler(riderRepository ports.RiderRepository) CreateRiderCommandHandler {
	return CreateRiderCommandHandler{
		riderRepository: riderRepository,
	}
}

// Handle processes the rider registration command.
func (h *CreateRiderCommandHandler) Handle(ctx context.Context, cmd CreateRiderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	profile, err := rider.NewRider(cmd.RiderID(), cmd.Name(), cmd.RestaurantID(), cmd.Vehicle(), cmd.Phone())
	if err != nil {
		return err
	}

	return h.riderRepository.Add(ctx, profile)
}

package commands_test

import (
	"context"
	"testing"

	"ordersync/internal/core/application/usecases/commands"
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/rider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewCreateRiderCommand(t *testing.T) {
	t.Run("should create command with valid parameters", func(t *testing.T) {
		// Given
		riderID := kernel.NewUUID()
		restaurantID := kernel.NewUUID()

		// When
		cmd, err := commands.NewCreateRiderCommand(riderID, "Aibek", restaurantID, rider.Motorbike, "+7 701 000 00 00")

		// Then
		require.NoError(t, err)
		require.NoError(t, cmd.Validate())
		assert.True(t, cmd.RiderID().IsEqual(riderID))
		assert.Equal(t, "Aibek", cmd.Name())
		assert.True(t, cmd.RestaurantID().IsEqual(restaurantID))
		assert.Equal(t, rider.Motorbike, cmd.Vehicle())
		assert.Equal(t, "+7 701 000 00 00", cmd.Phone())
	})

	t.Run("should allow empty phone", func(t *testing.T) {
		// When
		cmd, err := commands.NewCreateRiderCommand(
			kernel.NewUUID(), "Aibek", kernel.NewUUID(), rider.Bicycle, "")

		// Then
		require.NoError(t, err)
		assert.Empty(t, cmd.Phone())
	})

	t.Run("should fail with invalid rider ID", func(t *testing.T) {
		// When
		_, err := commands.NewCreateRiderCommand(
			kernel.UUID{}, "Aibek", kernel.NewUUID(), rider.Bicycle, "")

		// Then
		require.Error(t, err)
	})

	t.Run("should fail with empty name", func(t *testing.T) {
		// When
		_, err := commands.NewCreateRiderCommand(
			kernel.NewUUID(), "", kernel.NewUUID(), rider.Bicycle, "")

		// Then
		require.Error(t, err)
		assert.ErrorIs(t, err, commands.ErrRiderNameIsRequired)
	})

	t.Run("should fail with unknown vehicle type", func(t *testing.T) {
		// When
		_, err := commands.NewCreateRiderCommand(
			kernel.NewUUID(), "Aibek", kernel.NewUUID(), rider.UnknownVehicle, "")

		// Then
		require.Error(t, err)
	})

	t.Run("should reject zero-value command", func(t *testing.T) {
		// Given
		var cmd commands.CreateRiderCommand

		// Then
		assert.ErrorIs(t, cmd.Validate(), commands.ErrCreateRiderCommandIsNotConstructed)
	})
}

// MockRiderRepository is a mock implementation of ports.RiderRepository.
type MockRiderRepository struct {
	mock.Mock
}

func (m *MockRiderRepository) Add(ctx context.Context, aggregate *rider.Rider) error {
	args := m.Called(ctx, aggregate)
	return args.Error(0)
}

func (m *MockRiderRepository) Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rider.Rider), args.Error(1)
}

func (m *MockRiderRepository) GetAllByRestaurant(ctx context.Context, restaurantID kernel.UUID) ([]*rider.Rider, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rider.Rider), args.Error(1)
}

func TestCreateRiderCommandHandler(t *testing.T) {
	t.Run("should persist the rider profile", func(t *testing.T) {
		// Given
		repo := new(MockRiderRepository)
		handler := commands.NewCreateRiderCommandHandler(repo)

		cmd, err := commands.NewCreateRiderCommand(
			kernel.NewUUID(), "Aibek", kernel.NewUUID(), rider.Car, "")
		require.NoError(t, err)

		repo.On("Add", mock.Anything, mock.MatchedBy(func(r *rider.Rider) bool {
			return r.ID().IsEqual(cmd.RiderID()) && r.Name() == "Aibek"
		})).Return(nil).Once()

		// When
		err = handler.Handle(context.Background(), cmd)

		// Then
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("should reject unconstructed command", func(t *testing.T) {
		// Given
		repo := new(MockRiderRepository)
		handler := commands.NewCreateRiderCommandHandler(repo)

		// When
		err := handler.Handle(context.Background(), commands.CreateRiderCommand{})

		// Then
		require.ErrorIs(t, err, commands.ErrCreateRiderCommandIsNotConstructed)
		repo.AssertNotCalled(t, "Add")
	})
}

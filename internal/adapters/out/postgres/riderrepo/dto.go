// Package riderrepo provides data transfer objects and mapping functions for rider persistence.
// This package implements the repository pattern for the rider profile, handling
// the conversion between domain entities and database representations.
package riderrepo

import (
	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/rider"

	"github.com/google/uuid"
)

// RiderDTO represents the database structure for persisting rider profiles.
// Indexed by restaurant so per-restaurant listings stay cheap.
type RiderDTO struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Vehicle      int       `gorm:"type:int;not null"`
	Phone        string    `gorm:"type:varchar(32)"`
}

// TableName specifies the database table name for rider entities.
// Overrides GORM's default naming convention to use "riders".
func (RiderDTO) TableName() string {
	return "riders"
}

// fromDomain converts a rider profile to its database representation.
func fromDomain(r *rider.Rider) RiderDTO {
	return RiderDTO{
		ID:           r.ID().Bytes(),
		Name:         r.Name(),
		RestaurantID: r.RestaurantID().Bytes(),
		Vehicle:      int(r.Vehicle()),
		Phone:        r.Phone(),
	}
}

// toDomain converts a database DTO to a rider profile.
func toDomain(dto RiderDTO) (*rider.Rider, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	restaurantID, err := kernel.UUIDFromBytes(dto.RestaurantID[:])
	if err != nil {
		return nil, err
	}

	return rider.NewRider(id, dto.Name, restaurantID, rider.VehicleType(dto.Vehicle), dto.Phone)
}

package riderrepo

import (
	"context"
	"errors"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/rider"
	"ordersync/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormRiderRepository implements RiderRepository using GORM.
//
// Rider profiles live outside the unit of work: the CRUD layer owns their
// lifecycle and nothing realtime ever mutates them, so the repository binds
// straight to the connection.
type GormRiderRepository struct {
	db *gorm.DB
}

// NewGormRiderRepository creates a new GORM rider repository.
func NewGormRiderRepository(db *gorm.DB) *GormRiderRepository {
	return &GormRiderRepository{db: db}
}

// Add saves a new rider profile to the database.
func (r *GormRiderRepository) Add(ctx context.Context, aggregate *rider.Rider) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Get retrieves a rider profile by ID.
func (r *GormRiderRepository) Get(ctx context.Context, id kernel.UUID) (*rider.Rider, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto RiderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("rider", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// GetAllByRestaurant retrieves every rider attached to the given restaurant.
func (r *GormRiderRepository) GetAllByRestaurant(ctx context.Context, restaurantID kernel.UUID) ([]*rider.Rider, error) {
	if err := restaurantID.Validate(); err != nil {
		return nil, err
	}

	var dtos []RiderDTO
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID.Bytes()).
		Order("name").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	riders := make([]*rider.Rider, 0, len(dtos))
	for _, dto := range dtos {
		profile, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		riders = append(riders, profile)
	}

	return riders, nil
}

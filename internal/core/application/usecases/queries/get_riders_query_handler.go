package queries

import (
	"context"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/rider"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetRidersQueryHandler retrieves a restaurant's rider roster from the database.
type GetRidersQueryHandler struct {
	db *gorm.DB
}

// NewGetRidersQueryHandler creates a handler for rider roster queries.
// Requires a GORM database connection for query execution.
func NewGetRidersQueryHandler(db *gorm.DB) GetRidersQueryHandler {
	return GetRidersQueryHandler{db: db}
}

// Handle executes the query to retrieve the restaurant's riders, sorted by name.
func (h GetRidersQueryHandler) Handle(
	ctx context.Context,
	query GetRidersQuery,
) ([]GetRidersQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	riders := make([]GetRidersQueryResponse, 0)

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			name,
			vehicle,
			phone
		FROM riders
		WHERE restaurant_id = ?
		ORDER BY name
	`, query.RestaurantID().Bytes()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resp GetRidersQueryResponse
		var id uuid.UUID
		var vehicle int

		if err = rows.Scan(&id, &resp.Name, &vehicle, &resp.Phone); err != nil {
			return nil, err
		}

		riderID, idErr := kernel.UUIDFromBytes(id[:])
		if idErr != nil {
			return nil, idErr
		}
		resp.ID = riderID
		resp.Vehicle = rider.VehicleType(vehicle).String()

		riders = append(riders, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return riders, nil
}

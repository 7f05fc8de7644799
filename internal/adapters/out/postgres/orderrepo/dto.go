// Package orderrepo provides data transfer objects and mapping functions for order persistence.
// This package implements the repository pattern for the order domain aggregate, handling
// the conversion between domain entities and database representations.
package orderrepo

import (
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO represents the database structure for persisting order aggregates.
// Indexed by status so the active-order scan at process start stays cheap.
type OrderDTO struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"`
	RestaurantID uuid.UUID   `gorm:"type:uuid;not null;index"`
	CustomerID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	RiderID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	Pickup       WaypointDTO `gorm:"embedded;embeddedPrefix:pickup_"`
	Dropoff      WaypointDTO `gorm:"embedded;embeddedPrefix:dropoff_"`
	Items        []ItemDTO   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Status       int         `gorm:"type:int;not null;index"`
	CreatedAt    time.Time   `gorm:"not null"`
}

// TableName specifies the database table name for order entities.
// Overrides GORM's default naming convention to use "orders".
func (OrderDTO) TableName() string {
	return "orders"
}

// WaypointDTO represents an embedded named delivery endpoint within the order table.
type WaypointDTO struct {
	Name string  `gorm:"type:varchar(255);not null"`
	Lat  float64 `gorm:"type:double precision;not null"`
	Lng  float64 `gorm:"type:double precision;not null"`
}

// ItemDTO represents one order line. Lines are opaque to the realtime core
// and persisted only so the CRUD read side can render them.
type ItemDTO struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	OrderID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(255);not null"`
	Quantity int       `gorm:"type:int;not null"`
}

// TableName specifies the database table name for order line entities.
func (ItemDTO) TableName() string {
	return "order_items"
}

// fromDomain converts an order domain aggregate to its database representation.
func fromDomain(o *order.Order) OrderDTO {
	orderID := o.ID().Bytes()

	items := make([]ItemDTO, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, ItemDTO{
			OrderID:  orderID,
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}

	return OrderDTO{
		ID:           orderID,
		RestaurantID: o.RestaurantID().Bytes(),
		CustomerID:   o.CustomerID().Bytes(),
		RiderID:      o.RiderID().Bytes(),
		Pickup:       waypointFromDomain(o.Pickup()),
		Dropoff:      waypointFromDomain(o.Dropoff()),
		Items:        items,
		Status:       int(o.Status()),
		CreatedAt:    o.CreatedAt(),
	}
}

func waypointFromDomain(w order.Waypoint) WaypointDTO {
	return WaypointDTO{
		Name: w.Name,
		Lat:  w.Point.Lat(),
		Lng:  w.Point.Lng(),
	}
}

// toDomain converts a database DTO to an order domain aggregate.
// Reconstructs the complete aggregate including status using RestoreOrder.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	restaurantID, err := kernel.UUIDFromBytes(dto.RestaurantID[:])
	if err != nil {
		return nil, err
	}
	customerID, err := kernel.UUIDFromBytes(dto.CustomerID[:])
	if err != nil {
		return nil, err
	}
	riderID, err := kernel.UUIDFromBytes(dto.RiderID[:])
	if err != nil {
		return nil, err
	}

	pickup, err := waypointToDomain(dto.Pickup)
	if err != nil {
		return nil, err
	}
	dropoff, err := waypointToDomain(dto.Dropoff)
	if err != nil {
		return nil, err
	}

	items := make([]order.Item, 0, len(dto.Items))
	for _, item := range dto.Items {
		items = append(items, order.Item{Name: item.Name, Quantity: item.Quantity})
	}

	return order.RestoreOrder(
		id, restaurantID, customerID, riderID,
		pickup, dropoff, items,
		order.Status(dto.Status), dto.CreatedAt,
	)
}

func waypointToDomain(dto WaypointDTO) (order.Waypoint, error) {
	point, err := kernel.NewGeoPoint(dto.Lat, dto.Lng)
	if err != nil {
		return order.Waypoint{}, err
	}
	return order.Waypoint{Name: dto.Name, Point: point}, nil
}

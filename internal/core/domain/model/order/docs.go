// Package order provides domain entities and business logic for delivery
// orders in the order-synchronization core. It implements the Order aggregate
// root with lifecycle management and status transitions.
//
// The package includes:
//   - Order: The aggregate root that manages order identity, participants, and lifecycle
//   - Status: A state machine that enforces valid delivery status transitions
//
// Key business rules:
//   - Orders must have valid order, restaurant, customer, and rider identifiers
//   - Status follows a single directed path: Assigned -> PickedUp -> OnTheWay -> Delivered
//   - No skips, reversals, or repeats are permitted
//   - Delivered is terminal: status, location, and chat write paths close
//
// The package follows Domain-Driven Design principles, providing rich domain
// behavior, encapsulation, and validation to ensure business rules are enforced.
package order

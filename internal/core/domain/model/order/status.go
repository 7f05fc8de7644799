package order

import (
	"errors"
	"fmt"

	"ordersync/internal/pkg/errs"
)

// ErrInvalidTransition is returned when a requested status edge is not part of
// the delivery workflow. The order's current status is left unchanged.
var ErrInvalidTransition = errors.New("invalid status transition")

// Status represents the delivery lifecycle state of an order.
// It implements a state machine with a single directed path to ensure
// orders follow the correct delivery workflow.
//
// State transitions:
//
//	Assigned ──> PickedUp ──> OnTheWay ──> Delivered
//
// There are no skips, reversals, or self-loops. Delivered is terminal:
// once reached, no further status, location, or chat writes are accepted
// for the order.
//
// Status is a value object that validates state transitions and provides
// the wire-format string representations consumed by client applications.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Assigned is the initial status: a rider has been assigned to the order
	// and is heading to the restaurant.
	Assigned

	// PickedUp indicates the rider has collected the order from the restaurant.
	PickedUp

	// OnTheWay indicates the rider is en route to the customer.
	OnTheWay

	// Delivered indicates the order has reached the customer.
	// This is the terminal state with no further transitions allowed.
	Delivered
)

// getStatusStrings returns a map of Status values to their wire representations.
// The strings are part of the client contract and must not change.
func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "UNKNOWN",
		Assigned:  "ASSIGNED",
		PickedUp:  "PICKED_UP",
		OnTheWay:  "ON_THE_WAY",
		Delivered: "DELIVERED",
	}
}

// getValidStatusStrings returns a map of only valid Status values.
// Only valid statuses are included to support validation and parsing.
func getValidStatusStrings() map[Status]string {
	//nolint:exhaustive // Unknown is intentionally excluded as it's invalid
	return map[Status]string{
		Assigned:  "ASSIGNED",
		PickedUp:  "PICKED_UP",
		OnTheWay:  "ON_THE_WAY",
		Delivered: "DELIVERED",
	}
}

// ParseStatus converts a wire-format string to a Status value.
// Returns an error for strings that do not name a valid status.
func ParseStatus(s string) (Status, error) {
	for status, str := range getValidStatusStrings() {
		if str == s {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", s))
}

// Validate checks if the Status value is valid.
//
// Valid statuses are: Assigned, PickedUp, OnTheWay, Delivered.
// Unknown (0) and any other values are invalid.
func (s Status) Validate() error {
	if _, ok := getValidStatusStrings()[s]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the wire-format name of the status.
//
// Returns "ASSIGNED", "PICKED_UP", "ON_THE_WAY", or "DELIVERED" for valid
// statuses, and "UNKNOWN" for invalid status values. This method implements
// the fmt.Stringer interface and is safe to call on any Status value.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "UNKNOWN"
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == Delivered
}

// next returns the only status reachable from s, or Unknown when s is
// terminal or invalid.
func (s Status) next() Status {
	switch s {
	case Assigned:
		return PickedUp
	case PickedUp:
		return OnTheWay
	case OnTheWay:
		return Delivered
	default:
		return Unknown
	}
}

// CanTransitionTo reports whether the edge from s to target is part of the
// delivery workflow, without performing the transition.
func (s Status) CanTransitionTo(target Status) bool {
	return target != Unknown && s.next() == target
}

// TransitionTo transitions the status along the delivery workflow.
//
// Valid transitions:
//   - Assigned -> PickedUp
//   - PickedUp -> OnTheWay
//   - OnTheWay -> Delivered
//
// Any other requested edge, including no-ops and reversals, fails with an
// error wrapping ErrInvalidTransition and leaves the caller's status unchanged.
//
// Example:
//
//	newStatus, err := currentStatus.TransitionTo(order.PickedUp)
//	if errors.Is(err, order.ErrInvalidTransition) {
//	    // Report the illegal edge; currentStatus is still authoritative.
//	}
func (s Status) TransitionTo(target Status) (Status, error) {
	if err := target.Validate(); err != nil {
		return Unknown, err
	}

	if !s.CanTransitionTo(target) {
		return Unknown, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, target)
	}

	return target, nil
}

package rider

import (
	"fmt"

	"ordersync/internal/pkg/errs"
)

// VehicleType describes how a rider travels. Informational only: the core
// never derives behavior from it, but clients display it alongside live
// tracking data.
type VehicleType int

const (
	// UnknownVehicle represents an invalid or undefined vehicle type.
	UnknownVehicle VehicleType = iota

	// Bicycle is a pedal bicycle.
	Bicycle

	// Motorbike is a motorcycle or scooter.
	Motorbike

	// Car is a passenger car.
	Car
)

func getVehicleStrings() map[VehicleType]string {
	return map[VehicleType]string{
		UnknownVehicle: "UNKNOWN",
		Bicycle:        "BICYCLE",
		Motorbike:      "MOTORBIKE",
		Car:            "CAR",
	}
}

func getValidVehicleStrings() map[VehicleType]string {
	//nolint:exhaustive // UnknownVehicle is intentionally excluded as it's invalid
	return map[VehicleType]string{
		Bicycle:   "BICYCLE",
		Motorbike: "MOTORBIKE",
		Car:       "CAR",
	}
}

// ParseVehicleType converts a wire-format string to a VehicleType value.
func ParseVehicleType(s string) (VehicleType, error) {
	for vehicle, str := range getValidVehicleStrings() {
		if str == s {
			return vehicle, nil
		}
	}
	return UnknownVehicle, errs.NewValueIsInvalidErrorWithCause("vehicle",
		fmt.Errorf("%q is not a valid vehicle type", s))
}

// Validate checks if the VehicleType value is valid.
func (v VehicleType) Validate() error {
	if _, ok := getValidVehicleStrings()[v]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("vehicle",
			fmt.Errorf("%d is not a valid vehicle type", v))
	}
	return nil
}

// String returns the wire-format name of the vehicle type.
// This method implements the fmt.Stringer interface.
func (v VehicleType) String() string {
	if str, ok := getVehicleStrings()[v]; ok {
		return str
	}
	return "UNKNOWN"
}

// Package tracking provides the rider position domain model for live order
// tracking. A Sample is one validated GPS fix from a rider's device; the
// LocationStream service keeps only the last accepted sample per order and
// rider, so the package deliberately has no history type.
package tracking

import (
	"errors"
	"fmt"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/pkg/errs"
)

const (
	// MinBearing is the lowest valid bearing in degrees (inclusive).
	MinBearing float64 = 0
	// MaxBearing is the highest valid bearing in degrees (exclusive).
	MaxBearing float64 = 360
)

// ErrInvalidSample is returned when a location sample carries out-of-range
// fields. Invalid samples are dropped without broadcast and reported to the
// sender only.
var ErrInvalidSample = errors.New("invalid location sample")

// Sample is one GPS fix from a rider's device. The timestamp comes from the
// sender's clock and is used only for staleness ordering per (order, rider)
// pair; the core never compares timestamps across riders.
//
// Sample is an immutable value object; use NewSample to construct it.
type Sample struct {
	point    kernel.GeoPoint
	speed    float64
	bearing  float64
	ts       time.Time
	accuracy *float64

	isConstructed bool
}

// NewSample validates and creates a location sample.
//
// Validation rules:
//   - lat within [-90, 90], lng within [-180, 180]
//   - speed >= 0 (meters per second)
//   - bearing within [0, 360)
//   - ts must be non-zero
//
// Any violation fails with an error wrapping ErrInvalidSample.
func NewSample(lat, lng, speed, bearing float64, ts time.Time, accuracy *float64) (Sample, error) {
	point, err := kernel.NewGeoPoint(lat, lng)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}

	if speed < 0 {
		return Sample{}, fmt.Errorf("%w: %w", ErrInvalidSample,
			errs.NewValueIsInvalidErrorWithCause("speed", fmt.Errorf("%f is negative", speed)))
	}

	if bearing < MinBearing || bearing >= MaxBearing {
		return Sample{}, fmt.Errorf("%w: %w", ErrInvalidSample,
			errs.NewValueIsOutOfRangeError("bearing", bearing, MinBearing, MaxBearing))
	}

	if ts.IsZero() {
		return Sample{}, fmt.Errorf("%w: %w", ErrInvalidSample, errs.NewValueIsRequiredError("ts"))
	}

	return Sample{
		point:         point,
		speed:         speed,
		bearing:       bearing,
		ts:            ts,
		accuracy:      accuracy,
		isConstructed: true,
	}, nil
}

// Validate ensures the Sample was properly constructed through NewSample.
func (s Sample) Validate() error {
	if !s.isConstructed {
		return fmt.Errorf("%w: %w", ErrInvalidSample,
			errs.NewValueIsRequiredError("sample must be created via NewSample constructor"))
	}
	return nil
}

// Point returns the sample's validated coordinates.
func (s Sample) Point() kernel.GeoPoint {
	return s.point
}

// Speed returns the reported ground speed in meters per second.
func (s Sample) Speed() float64 {
	return s.speed
}

// Bearing returns the reported heading in degrees, within [0, 360).
func (s Sample) Bearing() float64 {
	return s.bearing
}

// Ts returns the sender-clock capture time of the fix.
func (s Sample) Ts() time.Time {
	return s.ts
}

// Accuracy returns the reported horizontal accuracy in meters, or nil when
// the device did not provide one.
func (s Sample) Accuracy() *float64 {
	return s.accuracy
}

// IsNewerThan reports whether this sample's timestamp is strictly after the
// other's. Samples with equal timestamps are considered stale: under GPS
// jitter and retried uploads the first accepted fix wins.
func (s Sample) IsNewerThan(other Sample) bool {
	return s.ts.After(other.ts)
}

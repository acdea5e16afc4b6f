// Package motor defines the actuator contract the control loop drives and a
// driver for Gyems RMD-series servos speaking their CAN command protocol.
package motor

import (
	"context"
	"errors"
)

var (
	// ErrConfiguration marks an invalid setup value detected before the
	// output stage is enabled.
	ErrConfiguration = errors.New("invalid actuator configuration")

	// ErrCommunication marks a transport fault talking to the device.
	ErrCommunication = errors.New("actuator communication failure")
)

// State is one reading of the actuator, taken per control tick.
type State struct {
	Angle    float64 // multi-turn shaft angle, degrees
	Velocity float64 // shaft velocity, rad/s
	Current  float64 // measured torque current, raw units
}

// Actuator is the synchronous read/write boundary to the hardware. The
// implementation, not the caller, clamps commanded current to the limit set
// by Configure.
type Actuator interface {
	// Configure sets the current limit. One-time setup, before Enable.
	Configure(currentLimit float64) error

	// Enable turns the output stage on.
	Enable(ctx context.Context) error

	// Disable turns the output stage off. Idempotent.
	Disable(ctx context.Context) error

	// ReadState reads the current shaft state from the device.
	ReadState(ctx context.Context) (State, error)

	// SendCurrent commands a desired torque current, clamped to the
	// configured limit.
	SendCurrent(ctx context.Context, value float64) error
}

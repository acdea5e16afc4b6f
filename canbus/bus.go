// Package canbus provides the CAN transport the motor driver talks through.
package canbus

import (
	"context"

	"go.einride.tech/can"
)

// Bus is a raw CAN endpoint. Send transmits one frame; Receive blocks until
// a frame arrives or ctx is done.
type Bus interface {
	Send(ctx context.Context, frame can.Frame) error
	Receive(ctx context.Context) (can.Frame, error)
	Close() error
}

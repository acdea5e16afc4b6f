package motor

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.einride.tech/can"

	"pd-ident-core/canbus"
)

// Gyems command bytes (RMD servo protocol, 8-byte frames, data[0] = command).
const (
	cmdMotorOff      = 0x80
	cmdMotorOn       = 0x88
	cmdTorqueControl = 0xA1
	cmdReadAngle     = 0x92
	cmdReadState     = 0x9C
)

const (
	angleLSBDeg = 0.01 // multi-turn angle reply, deg per LSB
	degToRad    = math.Pi / 180.0
)

// Gyems drives one RMD-series servo over a CAN bus. Commands and replies
// share the device arbitration ID (0x140 + motor number); replies echo the
// command byte, which is how transact pairs them up.
type Gyems struct {
	bus     canbus.Bus
	id      uint32
	timeout time.Duration
	limit   float64
}

// NewGyems creates a driver for the servo at CAN ID id (e.g. 0x141) on bus.
// The bus handle is borrowed; closing it is the caller's business.
func NewGyems(bus canbus.Bus, id uint32) *Gyems {
	return &Gyems{
		bus:     bus,
		id:      id,
		timeout: 500 * time.Millisecond,
	}
}

// Configure sets the torque-current limit, in raw units. Must be called
// before Enable; commanded currents are clamped to ±currentLimit.
func (g *Gyems) Configure(currentLimit float64) error {
	if !(currentLimit > 0) || math.IsInf(currentLimit, 0) {
		return fmt.Errorf("%w: current limit %v must be finite and > 0", ErrConfiguration, currentLimit)
	}
	g.limit = currentLimit
	return nil
}

// Enable turns the output stage on.
func (g *Gyems) Enable(ctx context.Context) error {
	if g.limit <= 0 {
		return fmt.Errorf("%w: Configure must run before Enable", ErrConfiguration)
	}
	_, err := g.transact(ctx, cmdMotorOn, nil)
	return err
}

// Disable turns the output stage off. Safe to call repeatedly; the motor-off
// command has no effect on an already stopped device.
func (g *Gyems) Disable(ctx context.Context) error {
	_, err := g.transact(ctx, cmdMotorOff, nil)
	return err
}

// ReadState reads the multi-turn angle and the speed/current telemetry.
// Two transactions; the device has no single frame carrying all three.
func (g *Gyems) ReadState(ctx context.Context) (State, error) {
	angleReply, err := g.transact(ctx, cmdReadAngle, nil)
	if err != nil {
		return State{}, err
	}
	stateReply, err := g.transact(ctx, cmdReadState, nil)
	if err != nil {
		return State{}, err
	}

	return State{
		Angle:    float64(getInt56(angleReply.Data[:], 1)) * angleLSBDeg,
		Velocity: float64(getInt16(stateReply.Data[:], 4)) * degToRad, // reply speed is deg/s
		Current:  float64(getInt16(stateReply.Data[:], 2)),
	}, nil
}

// SendCurrent commands a desired torque current in raw units. The value is
// clamped to the configured limit here, at the device boundary.
func (g *Gyems) SendCurrent(ctx context.Context, value float64) error {
	v := clamp(value, -g.limit, g.limit)
	raw := int16(math.Round(v))

	var payload [8]byte
	putInt16(payload[:], 4, raw)
	_, err := g.transact(ctx, cmdTorqueControl, payload[:])
	return err
}

// transact sends one command frame and waits for the matching reply,
// skipping unrelated traffic. payload may be nil for argument-less commands.
func (g *Gyems) transact(ctx context.Context, cmd byte, payload []byte) (can.Frame, error) {
	var f can.Frame
	f.ID = g.id
	f.Length = 8
	if payload != nil {
		copy(f.Data[:], payload)
	}
	f.Data[0] = cmd

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.bus.Send(ctx, f); err != nil {
		return can.Frame{}, fmt.Errorf("%w: send cmd 0x%02X: %v", ErrCommunication, cmd, err)
	}

	for {
		reply, err := g.bus.Receive(ctx)
		if err != nil {
			return can.Frame{}, fmt.Errorf("%w: reply to cmd 0x%02X: %v", ErrCommunication, cmd, err)
		}
		if reply.ID == g.id && reply.Data[0] == cmd {
			return reply, nil
		}
	}
}

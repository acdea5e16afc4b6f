//go:build linux || darwin
// +build linux darwin

package canbus

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// SocketCANBus implements Bus on a single SocketCAN connection using
// Einride's socketcan. A background goroutine drains the receiver into a
// channel so Receive can honor context cancellation.
type SocketCANBus struct {
	conn   net.Conn
	tx     *socketcan.Transmitter
	frames chan can.Frame
	errs   chan error
	done   chan struct{}
}

// Dial opens the named SocketCAN interface ("can0", "vcan0", ...), retrying
// with exponential backoff while the interface comes up.
func Dial(ctx context.Context, iface string) (*SocketCANBus, error) {
	var conn net.Conn
	op := func() error {
		var err error
		conn, err = socketcan.DialContext(ctx, "can", iface)
		return err
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     100 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      5 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}

	b := &SocketCANBus{
		conn:   conn,
		tx:     socketcan.NewTransmitter(conn),
		frames: make(chan can.Frame, 64),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go b.receiveLoop(socketcan.NewReceiver(conn))
	return b, nil
}

func (b *SocketCANBus) receiveLoop(recv *socketcan.Receiver) {
	for recv.Receive() {
		select {
		case b.frames <- recv.Frame():
		case <-b.done:
			return
		}
	}
	err := recv.Err()
	if err == nil {
		err = fmt.Errorf("receive failed")
	}
	select {
	case b.errs <- err:
	case <-b.done:
	}
}

func (b *SocketCANBus) Send(ctx context.Context, frame can.Frame) error {
	return b.tx.TransmitFrame(ctx, frame)
}

func (b *SocketCANBus) Receive(ctx context.Context) (can.Frame, error) {
	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case frame := <-b.frames:
		return frame, nil
	case err := <-b.errs:
		return can.Frame{}, err
	}
}

func (b *SocketCANBus) Close() error {
	close(b.done)
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

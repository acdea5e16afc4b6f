// Package regulator implements the PD regulation loop: it drives a single
// actuator toward a static setpoint, records every tick, and guarantees the
// zero-command/disable shutdown sequence on every exit path.
package regulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pd-ident-core/motor"
	"pd-ident-core/utils"
)

// Reason tags why the loop terminated.
type Reason int

const (
	NormalCompletion Reason = iota
	Cancelled
	Fault
)

func (r Reason) String() string {
	switch r {
	case NormalCompletion:
		return "normal completion"
	case Cancelled:
		return "cancelled"
	case Fault:
		return "fault"
	default:
		return "unknown"
	}
}

// shutdownTimeout bounds the cleanup I/O. Cleanup runs on its own context
// so a cancelled run context cannot starve it.
const shutdownTimeout = 2 * time.Second

// Result describes a terminated run.
type Result struct {
	Reason  Reason
	Elapsed time.Duration

	// CleanupErr reports failures of the shutdown sequence. It never
	// changes the already-determined Reason.
	CleanupErr error
}

// Controller runs the loop Initializing -> Running -> ShuttingDown ->
// Terminated(reason). It borrows the actuator handle and is its sole caller
// for the run's duration; the recording is exclusively owned.
type Controller struct {
	cfg Config
	act motor.Actuator
	log *utils.Logger
	rec *Recording
}

// NewController validates cfg and builds a controller around the borrowed
// actuator. A nil log discards.
func NewController(cfg Config, act motor.Actuator, log *utils.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = utils.NewDiscardLogger()
	}
	return &Controller{cfg: cfg, act: act, log: log, rec: &Recording{}}, nil
}

// Recording returns the sample store. Read it only after Run has returned.
func (c *Controller) Recording() *Recording {
	return c.rec
}

// Run executes one regulation run. Setup failures abort before any tick and
// skip the shutdown sequence (the output stage was never enabled). Once the
// loop has started, the shutdown sequence executes exactly once no matter
// how the loop ends. The returned error is the fault that ended the loop,
// nil for normal completion and cancellation.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	// Initializing.
	if err := c.act.Configure(c.cfg.CurrentLimit); err != nil {
		return Result{}, fmt.Errorf("configure actuator: %w", err)
	}
	if err := c.act.Enable(ctx); err != nil {
		return Result{}, fmt.Errorf("enable actuator: %w", err)
	}

	start := time.Now()
	reason, loopErr := c.loop(ctx, start)

	// ShuttingDown -> Terminated. Runs unconditionally, exactly once.
	cleanupErr := c.shutdown()

	res := Result{Reason: reason, Elapsed: time.Since(start), CleanupErr: cleanupErr}
	c.log.Info("Run terminated: reason=%s elapsed=%.3fs samples=%d", reason, res.Elapsed.Seconds(), c.rec.Len())
	if cleanupErr != nil {
		c.log.Error("Shutdown sequence reported: %v", cleanupErr)
	}
	return res, loopErr
}

// loop is the Running state. Each tick: read state, compute the PD command,
// send it, append a sample, then check termination (cancellation before the
// time limit).
func (c *Controller) loop(ctx context.Context, start time.Time) (Reason, error) {
	var tick *time.Ticker
	if c.cfg.TickInterval > 0 {
		tick = time.NewTicker(c.cfg.TickInterval)
		defer tick.Stop()
	}

	for {
		elapsed := time.Since(start).Seconds()

		st, err := c.act.ReadState(ctx)
		if err != nil {
			return c.classify(ctx, err, "read state")
		}

		e := c.cfg.QDef - st.Angle
		edot := c.cfg.DQDef - st.Velocity
		u := c.cfg.Kp*e + c.cfg.Kd*edot

		// The actuator clamps u to the configured current limit; the
		// loop commands the raw PD output.
		if err := c.act.SendCurrent(ctx, u); err != nil {
			return c.classify(ctx, err, "send current")
		}

		c.rec.append(Record{
			T:              elapsed,
			Angle:          st.Angle,
			Velocity:       st.Velocity,
			Current:        st.Current,
			DesiredCurrent: u,
		})
		c.log.Trace("tick t=%.3f q=%.3f dq=%.4f u=%.4f", elapsed, st.Angle, st.Velocity, u)

		select {
		case <-ctx.Done():
			return Cancelled, nil
		default:
		}
		if elapsed >= c.cfg.TimeStop {
			return NormalCompletion, nil
		}

		if tick != nil {
			select {
			case <-tick.C:
			case <-ctx.Done():
				return Cancelled, nil
			}
		}
	}
}

// classify maps a mid-tick actuator failure to a termination reason. An
// error caused by the run context being cancelled is a cancellation, not a
// fault.
func (c *Controller) classify(ctx context.Context, err error, op string) (Reason, error) {
	if ctx.Err() != nil {
		return Cancelled, nil
	}
	return Fault, fmt.Errorf("%s: %w", op, err)
}

// shutdown sends a zero current command and then disables the output stage.
// Both sub-steps are attempted even if the other fails.
func (c *Controller) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var zeroErr, disableErr error
	if err := c.act.SendCurrent(ctx, 0); err != nil {
		zeroErr = fmt.Errorf("zero command: %w", err)
	}
	if err := c.act.Disable(ctx); err != nil {
		disableErr = fmt.Errorf("disable: %w", err)
	}
	return errors.Join(zeroErr, disableErr)
}

package regulator

import (
	"fmt"
	"math"
	"time"

	"pd-ident-core/motor"
)

// Config holds the gains and run parameters of one regulation run. Built
// once, never mutated.
type Config struct {
	Kp float64 // proportional gain on position error
	Kd float64 // derivative gain on velocity error

	QDef  float64 // target angle, deg
	DQDef float64 // target velocity, rad/s

	CurrentLimit float64 // raw units, > 0; enforced by the actuator
	TimeStop     float64 // run duration, seconds, > 0

	// TickInterval paces the loop with a fixed-period ticker when > 0.
	// Zero keeps the default back-to-back loop bounded only by actuator
	// I/O latency.
	TickInterval time.Duration
}

// Validate rejects configs that must never reach the hardware.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"kp": c.Kp, "kd": c.Kd, "q_def": c.QDef, "dq_def": c.DQDef,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", motor.ErrConfiguration, name)
		}
	}
	if !(c.CurrentLimit > 0) || math.IsInf(c.CurrentLimit, 0) {
		return fmt.Errorf("%w: current_limit %v must be finite and > 0", motor.ErrConfiguration, c.CurrentLimit)
	}
	if !(c.TimeStop > 0) || math.IsInf(c.TimeStop, 0) {
		return fmt.Errorf("%w: time_stop %v must be finite and > 0", motor.ErrConfiguration, c.TimeStop)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("%w: tick_interval must not be negative", motor.ErrConfiguration)
	}
	return nil
}

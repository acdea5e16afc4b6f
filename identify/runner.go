//go:build linux || darwin
// +build linux darwin

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pd-ident-core/canbus"
	"pd-ident-core/estimate"
	"pd-ident-core/motor"
	"pd-ident-core/regulator"
	"pd-ident-core/report"
	"pd-ident-core/utils"
)

// Runner wires the bus, the motor driver, the regulation loop and the
// post-run estimation together for one identification run.
type Runner struct {
	cfg RunConfig
	log *utils.Logger
	bus *canbus.SocketCANBus
	act *motor.Gyems
}

func NewRunner(ctx context.Context, cfg RunConfig, log *utils.Logger) (*Runner, error) {
	bus, err := canbus.Dial(ctx, cfg.Interface)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg: cfg,
		log: log,
		bus: bus,
		act: motor.NewGyems(bus, cfg.MotorID),
	}, nil
}

func (r *Runner) Close() {
	if r.bus != nil {
		_ = r.bus.Close()
	}
}

// Run drives the actuator to the setpoint, then estimates J and B from the
// recording and writes the CSV dump and plots. Outputs are produced for
// every terminated run, faulted or not, like the reference implementation
// plotted from its finally block.
func (r *Runner) Run(ctx context.Context) error {
	rcfg := r.cfg.Control.Regulator()
	r.log.Info("Starting run: iface=%s motor=0x%X kp=%.3f kd=%.3f q_def=%.2f dq_def=%.3f limit=%.1f time_stop=%.2fs",
		r.cfg.Interface, r.cfg.MotorID, rcfg.Kp, rcfg.Kd, rcfg.QDef, rcfg.DQDef, rcfg.CurrentLimit, rcfg.TimeStop)

	ctrl, err := regulator.NewController(rcfg, r.act, r.log)
	if err != nil {
		return err
	}

	res, runErr := ctrl.Run(ctx)
	rec := ctrl.Recording()

	if outErr := r.writeOutputs(rec); outErr != nil {
		r.log.Error("Output generation failed: %v", outErr)
	}

	t, _, dq, cur, _ := rec.Columns()
	est, estErr := estimate.Fit(t, dq, cur)
	if estErr != nil {
		r.log.Error("Estimation failed: %v", estErr)
	} else {
		r.log.Info("Moment of inertia: %g units", est.MomentOfInertia)
		r.log.Info("Friction coefficient: %g units", est.Friction)
		r.log.Debug("Fit residual RMS: %g", est.ResidualRMS)
	}

	if runErr != nil {
		return fmt.Errorf("run terminated by fault: %w", runErr)
	}
	if res.Reason == regulator.Cancelled {
		return context.Canceled
	}
	if estErr != nil {
		return estErr
	}
	return nil
}

func (r *Runner) writeOutputs(rec *regulator.Recording) error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	csvPath := filepath.Join(r.cfg.OutputDir, "samples.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	defer f.Close()
	if err := rec.WriteCSV(f); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	if err := report.SavePlots(rec, r.cfg.OutputDir); err != nil {
		return err
	}
	r.log.Debug("Wrote samples.csv and plots to %s", r.cfg.OutputDir)
	return nil
}

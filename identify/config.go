package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"pd-ident-core/regulator"
)

// ControlConfig is the YAML shape of the regulation parameters.
type ControlConfig struct {
	Kp             float64 `koanf:"kp"`
	Kd             float64 `koanf:"kd"`
	QDef           float64 `koanf:"q_def"`            // deg
	DQDef          float64 `koanf:"dq_def"`           // rad/s
	CurrentLimit   float64 `koanf:"current_limit"`    // raw units
	TimeStop       float64 `koanf:"time_stop"`        // seconds
	TickIntervalMS float64 `koanf:"tick_interval_ms"` // 0 = busy loop
}

// RunConfig is the full run configuration.
type RunConfig struct {
	Interface string        `koanf:"interface"`
	MotorID   uint32        `koanf:"motor_id"`
	Log       string        `koanf:"log"`
	OutputDir string        `koanf:"output_dir"`
	Control   ControlConfig `koanf:"control"`
}

// defaultConfig mirrors the reference run: kp=kd=3 toward 90 deg with a
// current limit of 200 raw units for 10 seconds.
func defaultConfig() RunConfig {
	return RunConfig{
		Interface: "can0",
		MotorID:   0x141,
		Log:       "info",
		OutputDir: ".",
		Control: ControlConfig{
			Kp:           3,
			Kd:           3,
			QDef:         90,
			DQDef:        0,
			CurrentLimit: 200,
			TimeStop:     10,
		},
	}
}

// LoadConfig overlays the YAML file at path onto the defaults. A missing
// file is not an error; the defaults stand.
func LoadConfig(path string) (RunConfig, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return RunConfig{}, fmt.Errorf("load defaults: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return RunConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return RunConfig{}, fmt.Errorf("stat config %s: %w", path, statErr)
	}

	var cfg RunConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Interface == "" {
		return RunConfig{}, fmt.Errorf("interface must not be empty")
	}
	if cfg.MotorID == 0 {
		return RunConfig{}, fmt.Errorf("motor_id must not be zero")
	}
	if cfg.Control.TickIntervalMS < 0 {
		return RunConfig{}, fmt.Errorf("tick_interval_ms must not be negative")
	}
	if err := cfg.Control.Regulator().Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}

// Regulator converts the YAML shape into the loop config.
func (c ControlConfig) Regulator() regulator.Config {
	return regulator.Config{
		Kp:           c.Kp,
		Kd:           c.Kd,
		QDef:         c.QDef,
		DQDef:        c.DQDef,
		CurrentLimit: c.CurrentLimit,
		TimeStop:     c.TimeStop,
		TickInterval: time.Duration(c.TickIntervalMS * float64(time.Millisecond)),
	}
}

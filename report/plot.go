// Package report renders a finished run recording as PNG time-series plots.
package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pd-ident-core/regulator"
)

var (
	blue = color.RGBA{B: 255, A: 255}
	red  = color.RGBA{R: 255, A: 255}
)

// SavePlots writes angle.png, velocity.png and current.png for the recording
// into dir. The current panel overlays actual and desired control.
func SavePlots(rec *regulator.Recording, dir string) error {
	t, q, dq, cur, des := rec.Columns()

	err := plotToFile(filepath.Join(dir, "angle.png"), "Time [sec]", "Motor angle [deg]", func(p *plot.Plot) error {
		return addLine(p, t, q, blue, "")
	})
	if err != nil {
		return err
	}

	err = plotToFile(filepath.Join(dir, "velocity.png"), "Time [sec]", "Velocity [rad/sec]", func(p *plot.Plot) error {
		return addLine(p, t, dq, red, "")
	})
	if err != nil {
		return err
	}

	return plotToFile(filepath.Join(dir, "current.png"), "Time [sec]", "Current [units]", func(p *plot.Plot) error {
		if err := addLine(p, t, cur, blue, "Actual control"); err != nil {
			return err
		}
		return addLine(p, t, des, red, "Desired control")
	})
}

// plotToFile builds a plot with the given axis titles using draw, then saves
// it as a PNG at path.
func plotToFile(path, xTitle, yTitle string, draw func(*plot.Plot) error) error {
	p := plot.New()
	p.X.Label.Text = xTitle
	p.Y.Label.Text = yTitle
	p.Add(plotter.NewGrid())
	if err := draw(p); err != nil {
		return fmt.Errorf("could not draw plot contents: %w", err)
	}
	if err := p.Save(15*vg.Centimeter, 10*vg.Centimeter, path); err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

func addLine(p *plot.Plot, x, y []float64, c color.Color, name string) error {
	xy := make(plotter.XYs, len(x))
	for i := range x {
		xy[i].X = x[i]
		xy[i].Y = y[i]
	}
	line, err := plotter.NewLine(xy)
	if err != nil {
		return fmt.Errorf("could not create line: %w", err)
	}
	line.Color = c
	p.Add(line)
	if name != "" {
		p.Legend.Add(name, line)
	}
	return nil
}

package regulator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Record is one control-loop sample.
type Record struct {
	T              float64 // elapsed seconds from loop start, non-decreasing
	Angle          float64 // deg
	Velocity       float64 // rad/s
	Current        float64 // measured, raw units
	DesiredCurrent float64 // commanded, raw units
}

// Recording is the append-only, time-ordered sample store of a run. It is
// mutated only by the Controller while the loop runs and is frozen once the
// loop terminates. Growth is unbounded; runs are expected to be bounded by
// time_stop.
type Recording struct {
	records []Record
}

func (r *Recording) append(rec Record) {
	r.records = append(r.records, rec)
}

func (r *Recording) Len() int {
	return len(r.records)
}

func (r *Recording) At(i int) Record {
	return r.records[i]
}

// Columns returns the samples as index-aligned column slices
// (t, angle, velocity, current, desired current).
func (r *Recording) Columns() (t, angle, velocity, current, desired []float64) {
	n := len(r.records)
	t = make([]float64, n)
	angle = make([]float64, n)
	velocity = make([]float64, n)
	current = make([]float64, n)
	desired = make([]float64, n)
	for i, rec := range r.records {
		t[i] = rec.T
		angle[i] = rec.Angle
		velocity[i] = rec.Velocity
		current[i] = rec.Current
		desired[i] = rec.DesiredCurrent
	}
	return t, angle, velocity, current, desired
}

// WriteCSV dumps the recording with a header row, one row per sample.
func (r *Recording) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t_s", "angle_deg", "velocity_rad_s", "current", "current_desired"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 5)
	for _, rec := range r.records {
		for i, v := range []float64{rec.T, rec.Angle, rec.Velocity, rec.Current, rec.DesiredCurrent} {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

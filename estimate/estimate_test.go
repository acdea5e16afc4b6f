package estimate

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

// synthetic builds n samples of a trajectory whose current obeys
// I = J*ddq + B*dq, with ddq taken from the same forward differences the
// estimator uses and optional gaussian noise on the current.
func synthetic(n int, j, b, noise float64, rnd *rand.Rand) (t, dq, current []float64) {
	const dt = 0.002
	t = make([]float64, n)
	dq = make([]float64, n)
	current = make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = float64(i) * dt
		dq[i] = math.Sin(3 * t[i])
	}
	for i := 0; i < n-1; i++ {
		ddq := (dq[i+1] - dq[i]) / (t[i+1] - t[i])
		current[i+1] = j*ddq + b*dq[i+1]
		if noise > 0 {
			current[i+1] += noise * rnd.NormFloat64()
		}
	}
	return t, dq, current
}

func TestRecoverKnownConstants(t *testing.T) {
	const wantJ, wantB = 2.0, 0.5
	rnd := rand.New(rand.NewSource(1))

	ts, dq, cur := synthetic(2000, wantJ, wantB, 0, rnd)
	res, err := Fit(ts, dq, cur)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.MomentOfInertia, test.ShouldAlmostEqual, wantJ, 1e-9)
	test.That(t, res.Friction, test.ShouldAlmostEqual, wantB, 1e-9)
	test.That(t, res.ResidualRMS, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestRecoverWithNoise(t *testing.T) {
	const wantJ, wantB = 2.0, 0.5
	rnd := rand.New(rand.NewSource(7))

	ts, dq, cur := synthetic(5000, wantJ, wantB, 0.01, rnd)
	res, err := Fit(ts, dq, cur)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(res.MomentOfInertia-wantJ)/wantJ, test.ShouldBeLessThan, 0.05)
	test.That(t, math.Abs(res.Friction-wantB)/wantB, test.ShouldBeLessThan, 0.05)
	test.That(t, res.ResidualRMS, test.ShouldBeGreaterThan, 0.0)
}

func TestTwoSamplesSucceed(t *testing.T) {
	res, err := Fit([]float64{0, 0.01}, []float64{0, 0.1}, []float64{0, 25})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.IsNaN(res.MomentOfInertia), test.ShouldBeFalse)
	test.That(t, math.IsNaN(res.Friction), test.ShouldBeFalse)
}

func TestOneSampleFails(t *testing.T) {
	_, err := Fit([]float64{0}, []float64{0}, []float64{0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInsufficientSamples), test.ShouldBeTrue)
}

func TestMismatchedColumnsFail(t *testing.T) {
	_, err := Fit([]float64{0, 1}, []float64{0}, []float64{0, 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDegenerateData), test.ShouldBeTrue)
}

func TestZeroTimeDeltaIsDegenerate(t *testing.T) {
	// Identical consecutive timestamps make the finite difference blow
	// up; the solve must report degenerate data instead of panicking.
	_, err := Fit(
		[]float64{0, 0.01, 0.01, 0.02},
		[]float64{0, 0.1, 0.3, 0.4},
		[]float64{0, 1, 2, 3},
	)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrDegenerateData), test.ShouldBeTrue)
}

func TestRankDeficientDataYieldsMinimumNorm(t *testing.T) {
	// Constant velocity: the acceleration column is identically zero, so
	// the design matrix has rank 1. The pseudo-inverse solve must still
	// return the finite minimum-norm answer, J = 0.
	const b = 0.5
	n := 100
	ts := make([]float64, n)
	dq := make([]float64, n)
	cur := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) * 0.01
		dq[i] = 2.0
		cur[i] = b * dq[i]
	}

	res, err := Fit(ts, dq, cur)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Friction, test.ShouldAlmostEqual, b, 1e-9)
	test.That(t, res.MomentOfInertia, test.ShouldAlmostEqual, 0, 1e-9)
}

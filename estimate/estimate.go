// Package estimate identifies the effective moment of inertia and viscous
// friction coefficient of an actuator from a recorded trajectory, under the
// model I(t) ≈ J*ddq(t) + B*dq(t) with the measured current as torque proxy.
package estimate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientSamples means the recording is too short to form
	// even one finite difference.
	ErrInsufficientSamples = errors.New("estimation requires at least 2 samples")

	// ErrDegenerateData means the samples cannot support a numeric
	// solution (non-finite values from zero time deltas, zero-rank data).
	ErrDegenerateData = errors.New("degenerate sample data")
)

// Result holds the identified physical constants.
type Result struct {
	MomentOfInertia float64 // J, coefficient of angular acceleration
	Friction        float64 // B, coefficient of angular velocity

	// ResidualRMS is the root-mean-square misfit of the model over the
	// samples used for the fit.
	ResidualRMS float64
}

// rcond is the relative singular-value cutoff for the rank decision.
const rcond = 1e-15

// Fit solves the batch least-squares problem for J and B from index-aligned
// columns of elapsed time, angular velocity (rad/s), and measured current.
//
// Angular acceleration comes from forward finite differences of dq over t;
// the first raw sample is dropped so all columns align with it. The solve
// uses the SVD pseudo-inverse, so rank-deficient or collinear data still
// yields the finite minimum-norm solution.
func Fit(t, dq, current []float64) (Result, error) {
	n := len(t)
	if len(dq) != n || len(current) != n {
		return Result{}, fmt.Errorf("%w: column lengths differ (%d, %d, %d)", ErrDegenerateData, n, len(dq), len(current))
	}
	if n < 2 {
		return Result{}, ErrInsufficientSamples
	}

	m := n - 1
	ddq := make([]float64, m)
	for i := 0; i < m; i++ {
		// A zero time delta produces Inf/NaN here on purpose; the
		// factorization below surfaces it as degenerate data.
		ddq[i] = (dq[i+1] - dq[i]) / (t[i+1] - t[i])
	}
	dqa := dq[1:]
	cur := current[1:]

	a := mat.NewDense(m, 2, nil)
	for i := 0; i < m; i++ {
		a.Set(i, 0, dqa[i])
		a.Set(i, 1, ddq[i])
	}
	b := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		b.SetVec(i, cur[i])
	}

	x, err := pinvSolve(a, b)
	if err != nil {
		return Result{}, err
	}

	res := Result{Friction: x[0], MomentOfInertia: x[1]}

	residuals := make([]float64, m)
	for i := 0; i < m; i++ {
		residuals[i] = cur[i] - (res.Friction*dqa[i] + res.MomentOfInertia*ddq[i])
	}
	if m == 1 {
		res.ResidualRMS = math.Abs(residuals[0])
	} else {
		mean, std := stat.MeanStdDev(residuals, nil)
		res.ResidualRMS = math.Sqrt(mean*mean + std*std*float64(m-1)/float64(m))
	}
	return res, nil
}

// pinvSolve computes the minimum-norm least-squares solution x of a*x ≈ b
// through the thin SVD: x = V * diag(1/s) * Uᵀ * b over the singular values
// above the rank cutoff. It never inverts a singular system; rank-deficient
// directions simply contribute nothing.
func pinvSolve(a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD failed to factorize", ErrDegenerateData)
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, fmt.Errorf("%w: zero-rank design matrix", ErrDegenerateData)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	m, cols := a.Dims()
	x := make([]float64, cols)
	for k := 0; k < rank; k++ {
		var proj float64
		for i := 0; i < m; i++ {
			proj += u.At(i, k) * b.AtVec(i)
		}
		proj /= s[k]
		for j := 0; j < cols; j++ {
			x[j] += v.At(j, k) * proj
		}
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite solution", ErrDegenerateData)
		}
	}
	return x, nil
}

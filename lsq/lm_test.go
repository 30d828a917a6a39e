package lsq_test

import (
	"errors"
	"math"
	"testing"

	"github.com/katalvlaran/xtalred/lsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exponential returns residuals for y = a·exp(b·t) against exact data.
func exponential(a, b float64) (lsq.ResidualFunc, int) {
	ts := []float64{0, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2}
	ys := make([]float64, len(ts))
	for i, t := range ts {
		ys[i] = a * math.Exp(b*t)
	}

	return func(x, r []float64) error {
		for i, t := range ts {
			r[i] = x[0]*math.Exp(x[1]*t) - ys[i]
		}

		return nil
	}, len(ts)
}

// TestMinimize_RecoversExponential verifies noise-free data is fitted exactly.
func TestMinimize_RecoversExponential(t *testing.T) {
	f, m := exponential(2.5, -1.3)

	res, err := lsq.Minimize(lsq.Problem{Residuals: f, M: m, X0: []float64{1, -0.5}}, lsq.DefaultSettings())
	require.NoError(t, err)
	assert.InDelta(t, 2.5, res.X[0], 1e-6)
	assert.InDelta(t, -1.3, res.X[1], 1e-6)
	assert.Less(t, res.Cost, 1e-12)
	assert.Greater(t, res.Evaluations, 0)
}

// TestMinimize_RespectsBounds verifies the solution is clamped to an active bound.
func TestMinimize_RespectsBounds(t *testing.T) {
	f, m := exponential(2.5, -1.3)

	res, err := lsq.Minimize(lsq.Problem{
		Residuals: f, M: m,
		X0:    []float64{1, -0.5},
		Lower: []float64{0, -1},
		Upper: []float64{2, 0},
	}, lsq.DefaultSettings())
	require.NoError(t, err)
	assert.LessOrEqual(t, res.X[0], 2.0)
	assert.GreaterOrEqual(t, res.X[1], -1.0)
	assert.Greater(t, res.Cost, 0.0)
}

// TestMinimize_SingularJacobian verifies a parameter with no influence is reported.
func TestMinimize_SingularJacobian(t *testing.T) {
	f := func(x, r []float64) error {
		r[0] = x[0] - 1
		r[1] = x[0] + 1

		return nil
	}

	_, err := lsq.Minimize(lsq.Problem{Residuals: f, M: 2, X0: []float64{0, 3}}, lsq.DefaultSettings())
	assert.ErrorIs(t, err, lsq.ErrSingularJacobian)
}

// TestMinimize_CollinearColumns verifies duplicated parameters are rejected.
func TestMinimize_CollinearColumns(t *testing.T) {
	f := func(x, r []float64) error {
		for i := range r {
			r[i] = (x[0]+x[1])*float64(i) - 1
		}

		return nil
	}

	_, err := lsq.Minimize(lsq.Problem{Residuals: f, M: 4, X0: []float64{0.5, 0.5}}, lsq.DefaultSettings())
	assert.ErrorIs(t, err, lsq.ErrSingularJacobian)
}

// TestMinimize_BadProblem covers the validation guards.
func TestMinimize_BadProblem(t *testing.T) {
	f, m := exponential(1, 1)
	cases := []lsq.Problem{
		{Residuals: nil, M: m, X0: []float64{1, 1}},
		{Residuals: f, M: m, X0: nil},
		{Residuals: f, M: m, X0: []float64{1, 1}, Lower: []float64{0}},
		{Residuals: f, M: m, X0: []float64{1, 1}, Lower: []float64{2, 0}, Upper: []float64{1, 1}},
	}
	for i, p := range cases {
		_, err := lsq.Minimize(p, lsq.DefaultSettings())
		assert.ErrorIs(t, err, lsq.ErrBadProblem, "case %d", i)
	}
}

// TestMinimize_NonFiniteStart verifies NaN residuals at x0 fail fast.
func TestMinimize_NonFiniteStart(t *testing.T) {
	f := func(x, r []float64) error {
		r[0] = math.Sqrt(x[0])

		return nil
	}

	_, err := lsq.Minimize(lsq.Problem{Residuals: f, M: 1, X0: []float64{-1}}, lsq.DefaultSettings())
	assert.ErrorIs(t, err, lsq.ErrNonFinite)
}

// TestMinimize_ResidualError verifies residual errors propagate unchanged.
func TestMinimize_ResidualError(t *testing.T) {
	boom := errors.New("boom")
	f := func(x, r []float64) error { return boom }

	_, err := lsq.Minimize(lsq.Problem{Residuals: f, M: 1, X0: []float64{0}}, lsq.DefaultSettings())
	assert.ErrorIs(t, err, boom)
}

// TestMinimize_IterationBudget verifies ErrNotConverged when the budget is tiny.
func TestMinimize_IterationBudget(t *testing.T) {
	f, m := exponential(2.5, -1.3)
	s := lsq.DefaultSettings()
	s.MaxIterations = 1

	res, err := lsq.Minimize(lsq.Problem{Residuals: f, M: m, X0: []float64{1, -0.5}}, s)
	assert.ErrorIs(t, err, lsq.ErrNotConverged)
	assert.Len(t, res.X, 2)
}

// TestMinimize_Stalled verifies a fit whose every step is rejected while
// the gradient is still large is not reported as converged.
func TestMinimize_Stalled(t *testing.T) {
	cliff := func(x, r []float64) error {
		r[0] = x[0]
		if x[0] < 1 {
			r[0] = 10
		}

		return nil
	}
	s := lsq.DefaultSettings()
	s.XTol = 0

	res, err := lsq.Minimize(lsq.Problem{Residuals: cliff, M: 1, X0: []float64{1}}, s)
	require.ErrorIs(t, err, lsq.ErrNotConverged)
	assert.Equal(t, []float64{1}, res.X)
	assert.Less(t, res.Iterations, s.MaxIterations)
}

// TestResult_ReducedChiSquare checks the degrees-of-freedom guard.
func TestResult_ReducedChiSquare(t *testing.T) {
	r := lsq.Result{X: []float64{1}, Residuals: []float64{1, 1, 1}, Cost: 1.5}
	assert.InDelta(t, 1.5, r.ReducedChiSquare(), 1e-15)

	r.Residuals = r.Residuals[:1]
	assert.True(t, math.IsInf(r.ReducedChiSquare(), 1))
}

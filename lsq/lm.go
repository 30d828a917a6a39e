package lsq

import (
	"fmt"
	"math"

	"github.com/katalvlaran/xtalred/matrix"
)

const (
	maxDamping  = 1e16
	minDamping  = 1e-15
	tinyDiag    = 1e-30
	tinyCost    = 1e-32
	eigenTol    = 1e-12
	eigenSweeps = 100
	// stallSlack is how far above GTol the gradient may be when the
	// damping saturates before the fit counts as stalled.
	stallSlack = 1e6
)

// Minimize runs bounded Levenberg–Marquardt on p.
//
// Stage 1 (Validate): shapes, bounds, finite start.
// Stage 2 (Prepare): Jacobian at the start point and its conditioning.
// Stage 3 (Iterate): damped normal-equation steps projected into the bounds;
// successful steps shrink μ, failed steps grow it.
//
// On ErrNotConverged the returned Result holds the last accepted point.
func Minimize(p Problem, s Settings) (Result, error) {
	lower, upper, err := validate(p)
	if err != nil {
		return Result{}, err
	}
	n := len(p.X0)

	x := make([]float64, n)
	copy(x, p.X0)
	project(x, lower, upper)

	ev := evaluator{fn: p.Residuals, m: p.M}
	r, err := ev.eval(x)
	if err != nil {
		return Result{}, err
	}
	if !finite(r) {
		return Result{}, ErrNonFinite
	}
	cost := halfSumSquares(r)

	J, err := ev.jacobian(x, r, upper, s.DiffStep)
	if err != nil {
		return Result{}, err
	}
	if err = checkConditioning(J, s.MaxCondition); err != nil {
		return Result{}, err
	}

	result := func(iter int) Result {
		return Result{X: x, Residuals: r, Cost: cost, Iterations: iter, Evaluations: ev.count}
	}

	mu := s.InitialDamping
	var (
		A     *matrix.Dense
		g     []float64
		fresh = true // A and g describe the current x
	)
	// saturated ends the iteration once μ has grown past maxDamping.
	saturated := func(iter int) (Result, error) {
		if maxAbs(g) > stallSlack*s.GTol {
			return result(iter), ErrNotConverged
		}

		return result(iter), nil
	}
	for iter := 0; iter < s.MaxIterations; iter++ {
		if cost <= tinyCost {
			return result(iter), nil
		}
		if fresh {
			if A, g, err = normalEquations(J, r); err != nil {
				return Result{}, err
			}
			if maxAbs(g) <= s.GTol {
				return result(iter), nil
			}
			fresh = false
		}

		delta, err := dampedStep(A, g, mu)
		if err != nil {
			mu *= 10
			if mu > maxDamping {
				return saturated(iter)
			}
			continue
		}

		trial := make([]float64, n)
		for i := range x {
			trial[i] = x[i] + delta[i]
		}
		project(trial, lower, upper)

		var stepNorm float64
		for i := range x {
			stepNorm += (trial[i] - x[i]) * (trial[i] - x[i])
		}
		if math.Sqrt(stepNorm) <= s.XTol*(norm(x)+s.XTol) {
			return result(iter), nil
		}

		rt, err := ev.eval(trial)
		if err != nil {
			return Result{}, err
		}
		trialCost := math.Inf(1)
		if finite(rt) {
			trialCost = halfSumSquares(rt)
		}

		if trialCost < cost {
			reduction := (cost - trialCost) / cost
			x, r, cost = trial, rt, trialCost
			mu = math.Max(mu/10, minDamping)
			if reduction <= s.FTol {
				return result(iter + 1), nil
			}
			if J, err = ev.jacobian(x, r, upper, s.DiffStep); err != nil {
				return Result{}, err
			}
			fresh = true
			continue
		}

		// Rejected step: no descent direction left at this damping.
		mu *= 10
		if mu > maxDamping {
			return saturated(iter + 1)
		}
	}

	return result(s.MaxIterations), ErrNotConverged
}

// validate checks the problem shape and expands nil bounds to ±Inf.
func validate(p Problem) ([]float64, []float64, error) {
	n := len(p.X0)
	if p.Residuals == nil || n == 0 || p.M < 1 {
		return nil, nil, ErrBadProblem
	}
	lower, upper := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
	}
	if p.Lower != nil {
		if len(p.Lower) != n {
			return nil, nil, fmt.Errorf("lower bounds: %w", ErrBadProblem)
		}
		copy(lower, p.Lower)
	}
	if p.Upper != nil {
		if len(p.Upper) != n {
			return nil, nil, fmt.Errorf("upper bounds: %w", ErrBadProblem)
		}
		copy(upper, p.Upper)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(p.X0[i]) || !(lower[i] <= upper[i]) {
			return nil, nil, fmt.Errorf("parameter %d: %w", i, ErrBadProblem)
		}
	}

	return lower, upper, nil
}

// evaluator counts residual evaluations and guards the output length.
type evaluator struct {
	fn    ResidualFunc
	m     int
	count int
}

func (e *evaluator) eval(x []float64) ([]float64, error) {
	r := make([]float64, e.m)
	e.count++
	if err := e.fn(x, r); err != nil {
		return nil, fmt.Errorf("lsq: residuals: %w", err)
	}

	return r, nil
}

// jacobian approximates ∂r/∂x by forward differences, stepping backwards
// when the forward point would leave the upper bound.
func (e *evaluator) jacobian(x, r, upper []float64, rel float64) (*matrix.Dense, error) {
	n := len(x)
	J, err := matrix.NewDense(e.m, n)
	if err != nil {
		return nil, err
	}
	xp := make([]float64, n)
	for j := 0; j < n; j++ {
		copy(xp, x)
		h := rel * math.Max(math.Abs(x[j]), 1)
		if x[j]+h > upper[j] {
			h = -h
		}
		xp[j] = x[j] + h
		rp, err := e.eval(xp)
		if err != nil {
			return nil, err
		}
		for i := 0; i < e.m; i++ {
			d := (rp[i] - r[i]) / h
			if math.IsNaN(d) || math.IsInf(d, 0) {
				return nil, fmt.Errorf("column %d not finite: %w", j, ErrSingularJacobian)
			}
			_ = J.Set(i, j, d)
		}
	}

	return J, nil
}

// normalEquations returns JᵀJ and Jᵀr.
func normalEquations(J *matrix.Dense, r []float64) (*matrix.Dense, []float64, error) {
	Jt, err := matrix.Transpose(J)
	if err != nil {
		return nil, nil, err
	}
	A, err := matrix.Mul(Jt, J)
	if err != nil {
		return nil, nil, err
	}
	g, err := matrix.MatVec(Jt, r)
	if err != nil {
		return nil, nil, err
	}

	return A, g, nil
}

// dampedStep solves (A + μ·diag(A))·δ = −g.
func dampedStep(A *matrix.Dense, g []float64, mu float64) ([]float64, error) {
	n := A.Rows()
	M := A.Clone().(*matrix.Dense)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		d, _ := A.At(i, i)
		_ = M.Set(i, i, d+mu*math.Max(d, tinyDiag))
		rhs[i] = -g[i]
	}

	return matrix.Solve(M, rhs)
}

// checkConditioning rejects Jacobians with a zero column or whose
// column-normalised normal matrix has a condition number above limit.
func checkConditioning(J *matrix.Dense, limit float64) error {
	A, _, err := normalEquations(J, make([]float64, J.Rows()))
	if err != nil {
		return err
	}
	n := A.Rows()
	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i], _ = A.At(i, i)
		if diag[i] == 0 {
			return fmt.Errorf("parameter %d has no effect: %w", i, ErrSingularJacobian)
		}
	}
	C, _ := matrix.NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, _ := A.At(i, j)
			_ = C.Set(i, j, a/math.Sqrt(diag[i]*diag[j]))
		}
	}
	vals, _, err := matrix.Eigen(C, eigenTol, eigenSweeps*n*n)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrSingularJacobian)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo <= 0 || hi/lo > limit {
		return fmt.Errorf("condition %.3g: %w", hi/math.Max(lo, 0), ErrSingularJacobian)
	}

	return nil
}

func project(x, lower, upper []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lower[i]), upper[i])
	}
}

func halfSumSquares(r []float64) float64 {
	var s float64
	for _, v := range r {
		s += v * v
	}

	return 0.5 * s
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}

	return true
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}

	return math.Sqrt(s)
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}

	return m
}

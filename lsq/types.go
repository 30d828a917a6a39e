package lsq

import "math"

// ResidualFunc writes the m residuals at x into r.
// It must not retain x or r after returning.
type ResidualFunc func(x, r []float64) error

// Problem describes one bounded least-squares problem.
// Lower and Upper may be nil (unbounded); individual entries may be ±Inf.
type Problem struct {
	Residuals ResidualFunc
	M         int       // number of residuals
	X0        []float64 // starting point, projected into the bounds
	Lower     []float64
	Upper     []float64
}

// Settings tunes the iteration.
type Settings struct {
	MaxIterations  int     // accepted+rejected steps
	FTol           float64 // relative cost reduction threshold
	XTol           float64 // relative step size threshold
	GTol           float64 // max-norm of the scaled gradient
	InitialDamping float64 // μ₀
	DiffStep       float64 // relative finite-difference step
	MaxCondition   float64 // cond(JᵀJ) of the column-scaled Jacobian above this is singular
}

// Defaults for Settings.
const (
	DefaultMaxIterations  = 500
	DefaultFTol           = 1e-12
	DefaultXTol           = 1e-12
	DefaultGTol           = 1e-12
	DefaultInitialDamping = 1e-3
	DefaultMaxCondition   = 1e12
)

// DefaultSettings returns the recommended settings.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations:  DefaultMaxIterations,
		FTol:           DefaultFTol,
		XTol:           DefaultXTol,
		GTol:           DefaultGTol,
		InitialDamping: DefaultInitialDamping,
		DiffStep:       math.Sqrt(2.220446049250313e-16),
		MaxCondition:   DefaultMaxCondition,
	}
}

// Result is the outcome of a successful minimisation.
type Result struct {
	X           []float64
	Residuals   []float64
	Cost        float64 // ½·Σ r²
	Iterations  int
	Evaluations int
}

// ReducedChiSquare returns 2·Cost/(m−n), or +Inf when there are no degrees of freedom.
func (r Result) ReducedChiSquare() float64 {
	dof := len(r.Residuals) - len(r.X)
	if dof <= 0 {
		return math.Inf(1)
	}

	return 2 * r.Cost / float64(dof)
}

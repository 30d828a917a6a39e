package calibrate

import (
	"fmt"
	"math"

	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/lsq"
)

// DefaultCellTolerance bounds each free cell constant to ±10% of its start.
const DefaultCellTolerance = 0.1

// Settings configures Refine.
type Settings struct {
	CellTolerance float64
	LSQ           lsq.Settings
}

// DefaultSettings returns ±10% cell bounds and default solver settings.
func DefaultSettings() Settings {
	return Settings{CellTolerance: DefaultCellTolerance, LSQ: lsq.DefaultSettings()}
}

// Result is a refined geometry.
type Result struct {
	System     crystal.System
	Lattice    crystal.Lattice
	U          crystal.Mat3
	UB         crystal.Mat3
	RMS        float64 // root mean square of the residual components (Å⁻¹)
	Pairs      int
	Iterations int
}

// Geometry returns a copy of base with the refined lattice and U.
func (r Result) Geometry(base *crystal.Geometry) *crystal.Geometry {
	g := base.Clone()
	g.Lattice, g.U = r.Lattice, r.U

	return g
}

// Refine fits the cell constants free under the crystal system of g and the
// orientation to pairs.
//
// Stage 1 (Parameterise): system from g's lattice; free cell constants and
// the axis-angle decomposition of g.U as the start.
// Stage 2 (Bound): cell constants within CellTolerance; angles in their
// natural ranges.
// Stage 3 (Solve): lsq.Minimize over the stacked residual.
func Refine(g *crystal.Geometry, pairs []Pair, s Settings) (Result, error) {
	if g == nil {
		return Result{}, ErrNilGeometry
	}
	sys := crystal.DetectSystem(g.Lattice)
	cell := freeCell(sys, g.Lattice)
	n := len(cell) + 3
	if 3*len(pairs) < n {
		return Result{}, fmt.Errorf("%d reflections for %d parameters: %w", len(pairs), n, ErrTooFewPairs)
	}

	phi, theta, omega := crystal.AxisAngleFrom(g.U)
	x0 := append(append([]float64(nil), cell...), phi, theta, omega)
	lower, upper := make([]float64, n), make([]float64, n)
	for i, v := range cell {
		lower[i], upper[i] = v*(1-s.CellTolerance), v*(1+s.CellTolerance)
	}
	k := len(cell)
	lower[k], upper[k] = 0, 2*math.Pi
	lower[k+1], upper[k+1] = 0, math.Pi
	lower[k+2], upper[k+2] = 0, 2*math.Pi

	residuals := func(x, r []float64) error {
		ub, ok := orientation(sys, x)
		if !ok {
			for i := range r {
				r[i] = math.Inf(1)
			}

			return nil
		}
		for i, p := range pairs {
			q := ub.MulVec(p.HKL).Scale(2 * math.Pi).Sub(p.Q)
			r[3*i], r[3*i+1], r[3*i+2] = q[0], q[1], q[2]
		}

		return nil
	}

	res, err := lsq.Minimize(lsq.Problem{Residuals: residuals, M: 3 * len(pairs), X0: x0, Lower: lower, Upper: upper}, s.LSQ)
	if err != nil {
		return Result{}, fmt.Errorf("calibrate %v: %w", sys, err)
	}

	l := cellFrom(sys, res.X[:k])
	U := crystal.AxisAngle(res.X[k], res.X[k+1], res.X[k+2])
	B, err := l.BMatrix()
	if err != nil {
		return Result{}, err
	}

	return Result{
		System:     sys,
		Lattice:    l,
		U:          U,
		UB:         U.Mul(B),
		RMS:        math.Sqrt(2 * res.Cost / float64(len(res.Residuals))),
		Pairs:      len(pairs),
		Iterations: res.Iterations,
	}, nil
}

// orientation builds UB from a parameter vector; false when the cell is not
// a valid lattice.
func orientation(sys crystal.System, x []float64) (crystal.Mat3, bool) {
	k := len(x) - 3
	B, err := cellFrom(sys, x[:k]).BMatrix()
	if err != nil {
		return crystal.Mat3{}, false
	}

	return crystal.AxisAngle(x[k], x[k+1], x[k+2]).Mul(B), true
}

// freeCell returns the constants sys leaves free, angles in degrees.
func freeCell(sys crystal.System, l crystal.Lattice) []float64 {
	switch sys {
	case crystal.Cubic:
		return []float64{l.A}
	case crystal.Rhombohedral:
		return []float64{l.A, l.Alpha}
	case crystal.Tetragonal, crystal.Hexagonal:
		return []float64{l.A, l.C}
	case crystal.Orthorhombic:
		return []float64{l.A, l.B, l.C}
	case crystal.MonoclinicGamma:
		return []float64{l.A, l.B, l.C, l.Gamma}
	case crystal.MonoclinicBeta:
		return []float64{l.A, l.B, l.C, l.Beta}
	default:
		return []float64{l.A, l.B, l.C, l.Alpha, l.Beta, l.Gamma}
	}
}

// cellFrom expands the free constants of sys into a lattice.
func cellFrom(sys crystal.System, x []float64) crystal.Lattice {
	switch sys {
	case crystal.Cubic:
		return crystal.Lattice{A: x[0], B: x[0], C: x[0], Alpha: 90, Beta: 90, Gamma: 90}
	case crystal.Rhombohedral:
		return crystal.Lattice{A: x[0], B: x[0], C: x[0], Alpha: x[1], Beta: x[1], Gamma: x[1]}
	case crystal.Tetragonal:
		return crystal.Lattice{A: x[0], B: x[0], C: x[1], Alpha: 90, Beta: 90, Gamma: 90}
	case crystal.Hexagonal:
		return crystal.Lattice{A: x[0], B: x[0], C: x[1], Alpha: 90, Beta: 90, Gamma: 120}
	case crystal.Orthorhombic:
		return crystal.Lattice{A: x[0], B: x[1], C: x[2], Alpha: 90, Beta: 90, Gamma: 90}
	case crystal.MonoclinicGamma:
		return crystal.Lattice{A: x[0], B: x[1], C: x[2], Alpha: 90, Beta: 90, Gamma: x[3]}
	case crystal.MonoclinicBeta:
		return crystal.Lattice{A: x[0], B: x[1], C: x[2], Alpha: 90, Beta: x[3], Gamma: 90}
	default:
		return crystal.Lattice{A: x[0], B: x[1], C: x[2], Alpha: x[3], Beta: x[4], Gamma: x[5]}
	}
}

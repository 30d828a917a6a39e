package crystal

import (
	"fmt"
	"math"

	"github.com/katalvlaran/xtalred/matrix"
)

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// Validate rejects non-positive lengths, angles outside (0°,180°) and
// angle triples that do not close a cell.
func (l Lattice) Validate() error {
	for _, v := range []float64{l.A, l.B, l.C} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("length %g: %w", v, ErrInvalidLattice)
		}
	}
	for _, v := range []float64{l.Alpha, l.Beta, l.Gamma} {
		if !(v > 0 && v < 180) {
			return fmt.Errorf("angle %g: %w", v, ErrInvalidLattice)
		}
	}
	if _, err := matrix.Cholesky(l.Metric().dense()); err != nil {
		return fmt.Errorf("metric: %w", ErrInvalidLattice)
	}

	return nil
}

// Metric returns the direct metric tensor G.
func (l Lattice) Metric() Mat3 {
	ca, cb, cg := math.Cos(deg2rad(l.Alpha)), math.Cos(deg2rad(l.Beta)), math.Cos(deg2rad(l.Gamma))

	return Mat3{
		{l.A * l.A, l.A * l.B * cg, l.A * l.C * cb},
		{l.B * l.A * cg, l.B * l.B, l.B * l.C * ca},
		{l.C * l.A * cb, l.C * l.B * ca, l.C * l.C},
	}
}

// Volume returns the cell volume √det(G).
func (l Lattice) Volume() float64 {
	ca, cb, cg := math.Cos(deg2rad(l.Alpha)), math.Cos(deg2rad(l.Beta)), math.Cos(deg2rad(l.Gamma))

	return l.A * l.B * l.C * math.Sqrt(1-ca*ca-cb*cb-cg*cg+2*ca*cb*cg)
}

// BMatrix returns the upper-triangular B with BᵀB = G⁻¹.
//
// Stage 1: invert the metric.
// Stage 2: lower Cholesky factor L of G⁻¹; B = Lᵀ.
func (l Lattice) BMatrix() (Mat3, error) {
	if err := l.Validate(); err != nil {
		return Mat3{}, err
	}
	inv, err := matrix.Inverse(l.Metric().dense())
	if err != nil {
		return Mat3{}, fmt.Errorf("BMatrix: %w", err)
	}
	L, err := matrix.Cholesky(inv)
	if err != nil {
		return Mat3{}, fmt.Errorf("BMatrix: %w", err)
	}

	return fromDense(L).T(), nil
}

// DSpacing returns the interplanar spacing for fractional indices h.
func (l Lattice) DSpacing(h Vec3) (float64, error) {
	B, err := l.BMatrix()
	if err != nil {
		return 0, err
	}

	return 1 / B.MulVec(h).Norm(), nil
}

// LatticeFromUB recovers the cell constants from UB via G = ((UB)ᵀ·UB)⁻¹.
func LatticeFromUB(ub Mat3) (Lattice, error) {
	gstar := ub.T().Mul(ub)
	G, err := gstar.Inverse()
	if err != nil {
		return Lattice{}, fmt.Errorf("LatticeFromUB: %w", ErrSingularUB)
	}
	a, b, c := math.Sqrt(G[0][0]), math.Sqrt(G[1][1]), math.Sqrt(G[2][2])
	l := Lattice{
		A: a, B: b, C: c,
		Alpha: rad2deg(math.Acos(clamp(G[1][2]/(b*c), -1, 1))),
		Beta:  rad2deg(math.Acos(clamp(G[0][2]/(a*c), -1, 1))),
		Gamma: rad2deg(math.Acos(clamp(G[0][1]/(a*b), -1, 1))),
	}
	if err = l.Validate(); err != nil {
		return Lattice{}, err
	}

	return l, nil
}

// isClose mirrors the usual floating comparison |x−y| <= atol + rtol·|y|.
func isClose(x, y float64) bool {
	return math.Abs(x-y) <= 1e-8+1e-5*math.Abs(y)
}

// DetectSystem picks the most constrained system whose equalities hold.
// Checks run from cubic to triclinic; the first match wins.
func DetectSystem(l Lattice) System {
	abc := isClose(l.A, l.C) && isClose(l.B, l.C)
	right := isClose(l.Alpha, 90) && isClose(l.Beta, 90) && isClose(l.Gamma, 90)
	switch {
	case abc && right:
		return Cubic
	case abc && isClose(l.Alpha, l.Gamma) && isClose(l.Beta, l.Gamma):
		return Rhombohedral
	case isClose(l.A, l.B) && right:
		return Tetragonal
	case isClose(l.A, l.B) && isClose(l.Alpha, 90) && isClose(l.Beta, 90) && isClose(l.Gamma, 120):
		return Hexagonal
	case right:
		return Orthorhombic
	case isClose(l.Alpha, 90) && isClose(l.Beta, 90):
		return MonoclinicGamma
	case isClose(l.Alpha, 90) && isClose(l.Gamma, 90):
		return MonoclinicBeta
	default:
		return Triclinic
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

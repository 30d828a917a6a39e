package extinction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/xtalred/peak"
)

// Constants are the extinction constants derived from a fit: one value for
// every reflection, or a quadratic form in h, k, l.
type Constants struct {
	Isotropic    float64
	Anisotropic  bool
	Coefficients [6]float64 // c₀h² + c₁k² + c₂l² + c₃|hk| + c₄|kl| + c₅|lh|
}

// At returns the constant of key.
func (c Constants) At(key peak.Key) float64 {
	if !c.Anisotropic {
		return c.Isotropic
	}
	t := quadraticTerms(key)
	var v float64
	for i := range t {
		v += c.Coefficients[i] * t[i]
	}

	return v
}

// PointConstants returns c = 2x/(L·I) for every point with a positive
// intensity, the constant for which the small-correction limit of the
// extinction scale matches 1/y of the fit.
func PointConstants(f Fit, points []Point) ([]peak.Key, []float64) {
	var (
		keys []peak.Key
		cs   []float64
	)
	for _, p := range points {
		if !(p.Intensity > 0) || !(p.Lorentz > 0) {
			continue
		}
		c := 2 * f.X(p) / (p.Lorentz * p.Intensity)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		keys = append(keys, p.Key)
		cs = append(cs, c)
	}

	return keys, cs
}

// NewConstants derives constants from f. The isotropic constant is the mean
// point constant; the anisotropic form is fitted with FitQuadraticForm.
func NewConstants(f Fit, points []Point, anisotropic bool) (Constants, error) {
	keys, cs := PointConstants(f, points)
	if len(cs) == 0 {
		return Constants{}, ErrNoPoints
	}
	out := Constants{Isotropic: stat.Mean(cs, nil)}
	if !anisotropic {
		return out, nil
	}
	coef, err := FitQuadraticForm(keys, cs)
	if err != nil {
		return Constants{}, err
	}
	out.Anisotropic, out.Coefficients = true, coef

	return out, nil
}

// FitQuadraticForm solves the least-squares problem c ≈ Σ cᵢ·tᵢ(key) over
// the terms h², k², l², |hk|, |kl|, |lh|.
func FitQuadraticForm(keys []peak.Key, c []float64) ([6]float64, error) {
	var coef [6]float64
	if len(keys) != len(c) {
		return coef, fmt.Errorf("%d keys, %d constants: %w", len(keys), len(c), ErrUnderdetermined)
	}
	if len(keys) < len(coef) {
		return coef, fmt.Errorf("%d points: %w", len(keys), ErrUnderdetermined)
	}

	A := mat.NewDense(len(keys), len(coef), nil)
	for i, k := range keys {
		t := quadraticTerms(k)
		A.SetRow(i, t[:])
	}
	b := mat.NewVecDense(len(c), append([]float64(nil), c...))

	var qr mat.QR
	qr.Factorize(A)
	var R mat.Dense
	qr.RTo(&R)
	var maxDiag float64
	for i := 0; i < len(coef); i++ {
		maxDiag = math.Max(maxDiag, math.Abs(R.At(i, i)))
	}
	for i := 0; i < len(coef); i++ {
		if math.Abs(R.At(i, i)) <= 1e-12*maxDiag {
			return coef, fmt.Errorf("rank deficient: %w", ErrUnderdetermined)
		}
	}

	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return coef, fmt.Errorf("%v: %w", err, ErrUnderdetermined)
	}
	for i := range coef {
		coef[i] = x.AtVec(i)
	}

	return coef, nil
}

func quadraticTerms(k peak.Key) [6]float64 {
	h, kk, l := float64(k[0]), float64(k[1]), float64(k[2])

	return [6]float64{h * h, kk * kk, l * l, math.Abs(h * kk), math.Abs(kk * l), math.Abs(l * h)}
}

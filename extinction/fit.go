package extinction

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/xtalred/lsq"
)

const (
	// DefaultInitialR is the starting crystallite size (Å).
	DefaultInitialR = 1e3
	// DefaultInitialG is the starting mosaic parameter.
	DefaultInitialG = 1e2
	// RefineRatio is the r/(λg) ratio beyond which a generic secondary
	// model is replaced by its type I or type II limit.
	RefineRatio = 1e-3
)

// Settings configures a fit.
type Settings struct {
	InitialR   float64
	InitialG   float64
	FitOffsets bool // also fit a, c, ω₀, e, φ₀
	LSQ        lsq.Settings
}

// DefaultSettings returns settings with isotropic path length and no
// angular offsets.
func DefaultSettings() Settings {
	return Settings{InitialR: DefaultInitialR, InitialG: DefaultInitialG, LSQ: lsq.DefaultSettings()}
}

// Fit is a converged model fit.
type Fit struct {
	Model          Model
	Params         Params
	ChiSquare      float64 // reduced χ²
	MeanWavelength float64 // λ̄ of the fitted points
	Points         int
	Iterations     int
}

// Predict returns the fitted intensity at p.
func (f Fit) Predict(p Point) float64 {
	return Predict(f.Model, f.Params, p, f.MeanWavelength)
}

// X returns the fitted extinction parameter at p.
func (f Fit) X(p Point) float64 { return X(f.Model, f.Params, p) }

// FitModel fits model m to points by minimising Σ((I − I_pred)/σ)².
//
// Stage 1 (Seed): scale from the linear fit with y = 1; r, g from settings.
// Stage 2 (Layout): log r, log g, scale, U and, with FitOffsets, the
// wavelength sensitivity and the angular path-length terms.
// Stage 3 (Solve): lsq.Minimize with scale ≥ 0.
func FitModel(m Model, points []Point, s Settings) (Fit, error) {
	pts := usable(points)
	if len(pts) == 0 {
		return Fit{}, ErrNoPoints
	}
	wl := make([]float64, len(pts))
	for i, p := range pts {
		wl[i] = p.Wavelength
	}
	meanLambda := stat.Mean(wl, nil)

	seed := Params{R: s.InitialR, G: s.InitialG, Scale: initialScale(pts)}
	if !(seed.R > 0) {
		seed.R = DefaultInitialR
	}
	if !(seed.G > 0) {
		seed.G = DefaultInitialG
	}
	lay := layout{model: m, offsets: s.FitOffsets}
	x0, lower := lay.pack(seed)

	residuals := func(x, r []float64) error {
		pr := lay.unpack(x, seed)
		for i, p := range pts {
			r[i] = (p.Intensity - Predict(m, pr, p, meanLambda)) / p.Sigma
		}

		return nil
	}
	res, err := lsq.Minimize(lsq.Problem{Residuals: residuals, M: len(pts), X0: x0, Lower: lower}, s.LSQ)
	if err != nil {
		return Fit{}, fmt.Errorf("%v: %w", m, err)
	}

	return Fit{
		Model:          m,
		Params:         lay.unpack(res.X, seed),
		ChiSquare:      res.ReducedChiSquare(),
		MeanWavelength: meanLambda,
		Points:         len(pts),
		Iterations:     res.Iterations,
	}, nil
}

// usable drops points that cannot enter a weighted fit.
func usable(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Sigma > 0 && p.Ideal > 0 && p.Lorentz > 0 && p.Wavelength > 0 &&
			!math.IsNaN(p.Intensity) && !math.IsInf(p.Intensity, 0) {
			out = append(out, p)
		}
	}

	return out
}

// initialScale solves min Σ((I − s·q)/σ)² for s.
func initialScale(pts []Point) float64 {
	w := make([]float64, len(pts))
	qi := make([]float64, len(pts))
	qq := make([]float64, len(pts))
	for i, p := range pts {
		q := p.Ideal * p.Lorentz
		w[i] = 1 / (p.Sigma * p.Sigma)
		qi[i] = q * p.Intensity
		qq[i] = q * q
	}
	den := floats.Dot(w, qq)
	if den == 0 {
		return 1
	}
	s := floats.Dot(w, qi) / den
	if !(s > 0) {
		return 1
	}

	return s
}

// layout maps Params to the fitted vector of one model.
//
// With offsets, c·cos(ω−ω₀) is fitted as p·cos ω + q·sin ω and the φ term
// likewise, so the columns stay independent at c = e = 0. b is held at its
// seed: T̄·(1+b) only ever enters x as a product with r or g. Primary has
// no path length and fits only the wavelength sensitivity.
type layout struct {
	model   Model
	offsets bool
}

func (l layout) pathTerms() bool { return l.offsets && l.model != Primary }

func (l layout) pack(p Params) (x, lower []float64) {
	if l.model.hasR() {
		x = append(x, math.Log(p.R))
		lower = append(lower, math.Inf(-1))
	}
	if l.model.hasG() {
		x = append(x, math.Log(p.G))
		lower = append(lower, math.Inf(-1))
	}
	x = append(x, p.Scale, p.Uiso)
	lower = append(lower, 0, math.Inf(-1))
	if l.offsets {
		x = append(x, p.Wavelength)
		lower = append(lower, math.Inf(-1))
	}
	if l.pathTerms() {
		pc, qc := polar(p.OffRadius, p.GonioOffset)
		pe, qe := polar(p.Eccentricity, p.SampleOffset)
		x = append(x, pc, qc, pe, qe)
		lower = append(lower, math.Inf(-1), math.Inf(-1), math.Inf(-1), math.Inf(-1))
	}

	return x, lower
}

// unpack is the inverse of pack; b is taken from fixed.
func (l layout) unpack(x []float64, fixed Params) Params {
	p := Params{OffMean: fixed.OffMean}
	i := 0
	if l.model.hasR() {
		p.R = math.Exp(x[i])
		i++
	}
	if l.model.hasG() {
		p.G = math.Exp(x[i])
		i++
	}
	p.Scale, p.Uiso = x[i], x[i+1]
	i += 2
	if l.offsets {
		p.Wavelength = x[i]
		i++
	}
	if l.pathTerms() {
		p.OffRadius, p.GonioOffset = amplitude(x[i], x[i+1])
		p.Eccentricity, p.SampleOffset = amplitude(x[i+2], x[i+3])
	}

	return p
}

// polar returns a·cos φ, a·sin φ for φ in degrees.
func polar(a, deg float64) (float64, float64) {
	s, c := math.Sincos(deg * math.Pi / 180)

	return a * c, a * s
}

// amplitude returns a ≥ 0 and φ (degrees) with p = a·cos φ, q = a·sin φ.
func amplitude(p, q float64) (float64, float64) {
	return math.Hypot(p, q), math.Atan2(q, p) * 180 / math.Pi
}

// Refine replaces a generic secondary model by its type I limit when
// g/(r/λ) < RefineRatio and by its type II limit when (r/λ)/g <
// RefineRatio, with λ = 1 Å. The message names the regime.
func Refine(m Model, p Params) (Model, string) {
	if !m.IsGeneric() || !(p.R > 0) || !(p.G > 0) {
		return m, ""
	}
	const lambda = 1.0
	rl := p.R / lambda
	typeI, typeII := m.limits()
	switch {
	case p.G/rl < RefineRatio:
		return typeI, "r >> lambda g"
	case rl/p.G < RefineRatio:
		return typeII, "r << lambda g"
	default:
		return m, ""
	}
}

// Selection is the outcome of fitting several models.
//
// Fits holds the converged fits in candidate order and Errors the failed
// ones. Best is the lowest-χ² fit after refinement; Chosen is the model
// that won before refinement and Message names the refinement regime.
type Selection struct {
	Fits    []Fit
	Errors  map[Model]error
	Best    Fit
	Chosen  Model
	Message string
}

// FitAll fits every model in order and selects the best.
func FitAll(models []Model, points []Point, s Settings) (Selection, error) {
	fits := make([]Fit, len(models))
	errs := make([]error, len(models))
	for i, m := range models {
		fits[i], errs[i] = FitModel(m, points, s)
	}

	return Choose(models, fits, errs, points, s)
}

// Choose selects among precomputed fits: fits[i] with errs[i] == nil
// belongs to models[i]. The generic winner is refined with Refine; the
// refined model's own fit replaces it when available (fitting it if it
// was not a candidate). Fails with ErrNoModelConverged when every fit
// failed.
func Choose(models []Model, fits []Fit, errs []error, points []Point, s Settings) (Selection, error) {
	sel := Selection{Errors: make(map[Model]error)}
	best := -1
	for i, m := range models {
		if errs[i] != nil {
			sel.Errors[m] = errs[i]
			continue
		}
		sel.Fits = append(sel.Fits, fits[i])
		if math.IsNaN(fits[i].ChiSquare) {
			continue
		}
		if best < 0 || fits[i].ChiSquare < fits[best].ChiSquare {
			best = i
		}
	}
	if best < 0 {
		all := make([]error, 0, len(sel.Errors))
		for _, m := range sortedModels(sel.Errors) {
			all = append(all, sel.Errors[m])
		}

		return sel, fmt.Errorf("%w: %w", ErrNoModelConverged, errors.Join(all...))
	}

	sel.Chosen = models[best]
	sel.Best = fits[best]
	refined, msg := Refine(sel.Chosen, sel.Best.Params)
	if refined == sel.Chosen {
		return sel, nil
	}
	for _, f := range sel.Fits {
		if f.Model == refined {
			sel.Best, sel.Message = f, msg

			return sel, nil
		}
	}
	if f, err := FitModel(refined, points, s); err == nil {
		sel.Best, sel.Message = f, msg
	} else {
		sel.Errors[refined] = err
	}

	return sel, nil
}

func sortedModels(m map[Model]error) []Model {
	out := make([]Model, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

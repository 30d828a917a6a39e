package extinction

import "math"

// Params are the parameters of every model; a model ignores what it does
// not fit.
//
// Fields:
//   - R:            crystallite size r (Å).
//   - G:            mosaic parameter g.
//   - Scale:        overall scale s.
//   - Uiso:         isotropic displacement U (Å²).
//   - GonioOffset:  ω₀ (degrees).
//   - SampleOffset: φ₀ (degrees).
//   - Wavelength:   wavelength sensitivity a.
//   - OffMean:      off-centering mean parameter b.
//   - OffRadius:    off-centering effective radius c.
//   - Eccentricity: e.
type Params struct {
	R            float64
	G            float64
	Scale        float64
	Uiso         float64
	GonioOffset  float64
	SampleOffset float64
	Wavelength   float64
	OffMean      float64
	OffRadius    float64
	Eccentricity float64
}

// PathLength returns T for p: T̄·(1 + b + c·cos(ω−ω₀) + e·cos(φ−φ₀)),
// never negative. An unknown T̄ counts as 1.
func (pr Params) PathLength(p Point) float64 {
	tbar := p.PathLength
	if tbar == 0 {
		tbar = 1
	}
	t := tbar * (1 + pr.OffMean +
		pr.OffRadius*math.Cos((p.Omega-pr.GonioOffset)*math.Pi/180) +
		pr.Eccentricity*math.Cos((p.Phi-pr.SampleOffset)*math.Pi/180))

	return math.Max(t, 0)
}

// X returns the extinction parameter x of model m at p.
func X(m Model, pr Params, p Point) float64 {
	lambda := p.Wavelength
	q := p.Ideal * p.Lorentz
	if m == Primary {
		return 2.0 / 3.0 * q * pr.R * pr.R / lambda
	}
	t := pr.PathLength(p)
	rl := pr.R / lambda
	switch {
	case m.typeI():
		return 2.0 / 3.0 * q * t * pr.G
	case m.typeII():
		return 2.0 / 3.0 * q * t * rl
	case m.Distribution() == Gaussian:
		k := pr.R / (lambda * pr.G)

		return 2.0 / 3.0 * q * t * rl / math.Sqrt(1+k*k)
	default:
		return 2.0 / 3.0 * q * t * rl / (1 + pr.R/(lambda*pr.G))
	}
}

// Y returns the Becker–Coppens extinction factor y(x) at scattering angle
// twoTheta for model m.
func Y(m Model, x, twoTheta float64) float64 {
	a, b := coefficients(m, math.Cos(twoTheta))

	return 1 / math.Sqrt(1+2*x+a*x*x/(1+b*x))
}

// coefficients returns the angular coefficients A(2θ), B(2θ).
func coefficients(m Model, c2t float64) (float64, float64) {
	switch m.Distribution() {
	case Gaussian:
		return 0.58 + 0.48*c2t + 0.24*c2t*c2t, 0.02 - 0.025*c2t
	case Lorentzian:
		b := -0.45 * c2t
		if c2t > 0 {
			b = 0.15 - 0.2*(0.75-c2t)*(0.75-c2t)
		}

		return 0.025 + 0.285*c2t, b
	default:
		return 0.20 + 0.45*c2t, 0.22 - 0.12*(0.5-c2t)*(0.5-c2t)
	}
}

// Predict returns the predicted intensity of p under model m.
// meanLambda is λ̄, the mean wavelength of the fitted points.
func Predict(m Model, pr Params, p Point, meanLambda float64) float64 {
	q := p.Ideal * p.Lorentz
	st := math.Sin(p.TwoTheta / 2)
	dw := math.Exp(-8 * math.Pi * math.Pi * pr.Uiso * st * st / (p.Wavelength * p.Wavelength))
	wl := 1 + pr.Wavelength*(p.Wavelength-meanLambda)

	return pr.Scale * q * dw * wl * Y(m, X(m, pr, p), p.TwoTheta)
}

package extinction_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/extinction"
	"github.com/katalvlaran/xtalred/lsq"
	"github.com/katalvlaran/xtalred/peak"
	"github.com/katalvlaran/xtalred/store"
)

var (
	k100 = peak.Key{1, 0, 0, 0, 0, 0}
	k110 = peak.Key{1, 1, 0, 0, 0, 0}
)

// synthetic returns noise-free points predicted by m with params pr.
func synthetic(m extinction.Model, pr extinction.Params) []extinction.Point {
	var pts []extinction.Point
	for i := 0; i < 24; i++ {
		p := extinction.Point{
			Key:        peak.Key{1 + i%4, i % 3, 0, 0, 0, 0},
			Ideal:      1e-4 * float64(1+2*i),
			Lorentz:    1,
			Wavelength: 0.8 + 0.05*float64(i%6),
			TwoTheta:   0.4 + 0.1*float64(i%10),
		}
		p.Family = peak.Key{p.Key[0], p.Key[1], 0, 0, 0, 0}
		pts = append(pts, p)
	}
	lambda := meanWavelength(pts)
	for i := range pts {
		pts[i].Intensity = extinction.Predict(m, pr, pts[i], lambda)
		pts[i].Sigma = 0.01 * pts[i].Intensity
	}

	return pts
}

func meanWavelength(pts []extinction.Point) float64 {
	var s float64
	for _, p := range pts {
		s += p.Wavelength
	}

	return s / float64(len(pts))
}

// TestModel_Names verifies String/ParseModel round trips and distributions.
func TestModel_Names(t *testing.T) {
	for _, m := range extinction.Models() {
		got, err := extinction.ParseModel(strings.ToUpper(m.String()))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := extinction.ParseModel("secondary ,  gaussian")
	require.NoError(t, err)
	assert.Equal(t, extinction.SecondaryGaussian, got)

	_, err = extinction.ParseModel("tertiary")
	assert.ErrorIs(t, err, extinction.ErrUnknownModel)

	assert.Equal(t, extinction.NoDistribution, extinction.Primary.Distribution())
	assert.Equal(t, extinction.Lorentzian, extinction.LorentzianTypeII.Distribution())
	assert.True(t, extinction.SecondaryLorentzian.IsGeneric())
	assert.False(t, extinction.GaussianTypeI.IsGeneric())
}

// TestY verifies y(0) = 1 and that y decreases with x for every model.
func TestY(t *testing.T) {
	for _, m := range extinction.Models() {
		for _, tt := range []float64{0.2, 1, 2.5} {
			assert.Equal(t, 1.0, extinction.Y(m, 0, tt), m.String())
			prev := 1.0
			for _, x := range []float64{0.01, 0.1, 1, 10} {
				y := extinction.Y(m, x, tt)
				assert.Less(t, y, prev, "%v x=%g", m, x)
				prev = y
			}
		}
	}
}

// TestPathLength verifies the off-centering form and the clamp at zero.
func TestPathLength(t *testing.T) {
	p := extinction.Point{Omega: 30, Phi: 0}
	assert.Equal(t, 1.0, extinction.Params{}.PathLength(p))

	pr := extinction.Params{OffMean: 0.5, OffRadius: 0.2, GonioOffset: 30, Eccentricity: 0.1, SampleOffset: 90}
	assert.InDelta(t, 1.7, pr.PathLength(p), 1e-12)

	p.PathLength = 2
	assert.InDelta(t, 3.4, pr.PathLength(p), 1e-12)

	pr = extinction.Params{OffMean: -3}
	assert.Equal(t, 0.0, pr.PathLength(p))
}

// TestFitModel_RecoversTypeII fits noise-free type II data from an offset
// starting size.
func TestFitModel_RecoversTypeII(t *testing.T) {
	want := extinction.Params{R: 500, Scale: 2, Uiso: 0.01}
	pts := synthetic(extinction.GaussianTypeII, want)

	s := extinction.DefaultSettings()
	s.InitialR = 300
	f, err := extinction.FitModel(extinction.GaussianTypeII, pts, s)
	require.NoError(t, err)

	assert.InEpsilon(t, 500, f.Params.R, 1e-3)
	assert.InEpsilon(t, 2, f.Params.Scale, 1e-3)
	assert.InDelta(t, 0.01, f.Params.Uiso, 1e-4)
	assert.Equal(t, 0.0, f.Params.G)
	assert.Less(t, f.ChiSquare, 1e-6)
	assert.Equal(t, len(pts), f.Points)
	assert.InDelta(t, meanWavelength(pts), f.MeanWavelength, 1e-12)
}

// offCentered returns noise-free points spread over ω and φ.
func offCentered(m extinction.Model, pr extinction.Params) []extinction.Point {
	pts := make([]extinction.Point, 40)
	for i := range pts {
		pts[i] = extinction.Point{
			Key:        peak.Key{1 + i%5, i % 4, 0, 0, 0, 0},
			Ideal:      1e-4 * float64(1+i),
			Lorentz:    1,
			Wavelength: 0.8 + 0.05*float64(i%6),
			TwoTheta:   0.4 + 0.1*float64(i%10),
			Omega:      9 * float64(i),
			Phi:        float64(37 * i % 360),
		}
	}
	lambda := meanWavelength(pts)
	for i := range pts {
		pts[i].Intensity = extinction.Predict(m, pr, pts[i], lambda)
		pts[i].Sigma = 0.01 * pts[i].Intensity
	}

	return pts
}

// TestFitModel_RecoversOffsets fits the angular path-length terms and the
// wavelength sensitivity starting from zero offsets.
func TestFitModel_RecoversOffsets(t *testing.T) {
	want := extinction.Params{
		R: 500, Scale: 2, Uiso: 0.01, Wavelength: 0.05,
		OffRadius: 0.1, GonioOffset: 10, Eccentricity: 0.05, SampleOffset: 40,
	}
	pts := offCentered(extinction.GaussianTypeII, want)

	s := extinction.DefaultSettings()
	s.InitialR = 400
	s.FitOffsets = true
	f, err := extinction.FitModel(extinction.GaussianTypeII, pts, s)
	require.NoError(t, err)

	assert.InEpsilon(t, 500, f.Params.R, 1e-3)
	assert.InEpsilon(t, 2, f.Params.Scale, 1e-3)
	assert.InDelta(t, 0.05, f.Params.Wavelength, 1e-3)
	assert.InDelta(t, 0.1, f.Params.OffRadius, 1e-3)
	assert.InDelta(t, 10, f.Params.GonioOffset, 0.5)
	assert.InDelta(t, 0.05, f.Params.Eccentricity, 1e-3)
	assert.InDelta(t, 40, f.Params.SampleOffset, 1)
	assert.Zero(t, f.Params.OffMean)
	assert.Less(t, f.ChiSquare, 1e-6)
}

// TestFitAll_Offsets verifies no model is rejected as singular when the
// offsets are fitted from a zero start.
func TestFitAll_Offsets(t *testing.T) {
	pts := offCentered(extinction.GaussianTypeII, extinction.Params{R: 500, Scale: 2, OffRadius: 0.1, GonioOffset: 10})

	s := extinction.DefaultSettings()
	s.FitOffsets = true
	sel, err := extinction.FitAll(extinction.Models(), pts, s)
	require.NoError(t, err)
	for m, ferr := range sel.Errors {
		assert.NotErrorIs(t, ferr, lsq.ErrSingularJacobian, m.String())
	}
	for _, f := range sel.Fits {
		if f.Model == extinction.Primary {
			assert.Zero(t, f.Params.OffRadius, "primary has no path length")
		}
	}
}

// TestFitModel_NoPoints verifies unusable input is rejected.
func TestFitModel_NoPoints(t *testing.T) {
	_, err := extinction.FitModel(extinction.Primary, nil, extinction.DefaultSettings())
	assert.ErrorIs(t, err, extinction.ErrNoPoints)

	bad := []extinction.Point{{Ideal: 1, Lorentz: 1, Wavelength: 1, Intensity: 1, Sigma: 0}}
	_, err = extinction.FitModel(extinction.Primary, bad, extinction.DefaultSettings())
	assert.ErrorIs(t, err, extinction.ErrNoPoints)
}

// TestFitAll_NoneConverged verifies ErrNoModelConverged wraps each failure.
func TestFitAll_NoneConverged(t *testing.T) {
	sel, err := extinction.FitAll(extinction.Models(), nil, extinction.DefaultSettings())
	require.ErrorIs(t, err, extinction.ErrNoModelConverged)
	assert.ErrorIs(t, err, extinction.ErrNoPoints)
	assert.Len(t, sel.Errors, len(extinction.Models()))
	assert.Empty(t, sel.Fits)
}

// TestRefine verifies the type I / type II thresholds at λ = 1 Å.
func TestRefine(t *testing.T) {
	cases := []struct {
		name  string
		model extinction.Model
		r, g  float64
		want  extinction.Model
		msg   string
	}{
		{"gaussian type I", extinction.SecondaryGaussian, 1e6, 1e2, extinction.GaussianTypeI, "r >> lambda g"},
		{"lorentzian type II", extinction.SecondaryLorentzian, 1, 1e4, extinction.LorentzianTypeII, "r << lambda g"},
		{"comparable", extinction.SecondaryGaussian, 1e3, 1e2, extinction.SecondaryGaussian, ""},
		{"not generic", extinction.GaussianTypeII, 1, 1e4, extinction.GaussianTypeII, ""},
		{"primary", extinction.Primary, 1e6, 0, extinction.Primary, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, msg := extinction.Refine(tc.model, extinction.Params{R: tc.r, G: tc.g})
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

// TestChoose verifies lowest-χ² selection and refinement to a fitted limit.
func TestChoose(t *testing.T) {
	models := []extinction.Model{extinction.Primary, extinction.SecondaryGaussian, extinction.GaussianTypeI}
	fits := []extinction.Fit{
		{Model: extinction.Primary, ChiSquare: 5},
		{Model: extinction.SecondaryGaussian, ChiSquare: 1, Params: extinction.Params{R: 1e6, G: 10}},
		{Model: extinction.GaussianTypeI, ChiSquare: 1.5, Params: extinction.Params{G: 10}},
	}
	errs := make([]error, 3)

	sel, err := extinction.Choose(models, fits, errs, nil, extinction.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, extinction.SecondaryGaussian, sel.Chosen)
	assert.Equal(t, extinction.GaussianTypeI, sel.Best.Model)
	assert.Equal(t, "r >> lambda g", sel.Message)
	assert.Len(t, sel.Fits, 3)

	errs[1] = errors.New("diverged")
	sel, err = extinction.Choose(models, fits, errs, nil, extinction.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, extinction.GaussianTypeI, sel.Best.Model)
	assert.Empty(t, sel.Message)
	assert.Contains(t, sel.Errors, extinction.SecondaryGaussian)
}

// TestChoose_RefinedNotFitted keeps the generic model when its limit
// cannot be fitted.
func TestChoose_RefinedNotFitted(t *testing.T) {
	models := []extinction.Model{extinction.SecondaryLorentzian}
	fits := []extinction.Fit{{Model: extinction.SecondaryLorentzian, ChiSquare: 1, Params: extinction.Params{R: 1, G: 1e5}}}

	sel, err := extinction.Choose(models, fits, make([]error, 1), nil, extinction.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, extinction.SecondaryLorentzian, sel.Best.Model)
	assert.Empty(t, sel.Message)
	assert.ErrorIs(t, sel.Errors[extinction.LorentzianTypeII], extinction.ErrNoPoints)
}

// TestConstants_Isotropic verifies c = 2x/(L·I) averaged over points.
func TestConstants_Isotropic(t *testing.T) {
	f := extinction.Fit{Model: extinction.GaussianTypeI, Params: extinction.Params{G: 3, Scale: 1}}
	pts := []extinction.Point{
		{Key: k100, Ideal: 1, Lorentz: 2, Intensity: 4, Sigma: 1, Wavelength: 1},
		{Key: k110, Ideal: 2, Lorentz: 1, Intensity: 1, Sigma: 1, Wavelength: 1},
		{Key: k110, Ideal: 2, Lorentz: 1, Intensity: 0, Sigma: 1, Wavelength: 1},
	}
	// x = ⅔·q·g: 4 and 4.
	c, err := extinction.NewConstants(f, pts, false)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+8.0)/2, c.Isotropic, 1e-12)
	assert.Equal(t, c.Isotropic, c.At(k100))

	_, err = extinction.NewConstants(f, pts, true)
	assert.ErrorIs(t, err, extinction.ErrUnderdetermined)
}

// TestFitQuadraticForm verifies an exact solve and rank checks.
func TestFitQuadraticForm(t *testing.T) {
	want := [6]float64{1, 2, 3, 0.5, 0.25, 0.125}
	keys := []peak.Key{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1}, {1, 0, 1}, {1, -2, 3}, {2, 1, -1},
	}
	c := extinction.Constants{Anisotropic: true, Coefficients: want}
	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = c.At(k)
	}
	assert.InDelta(t, 1+8+27+1+1.5+0.375, c.At(peak.Key{1, -2, 3}), 1e-12)

	got, err := extinction.FitQuadraticForm(keys, vals)
	require.NoError(t, err)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}

	_, err = extinction.FitQuadraticForm(keys[:5], vals[:5])
	assert.ErrorIs(t, err, extinction.ErrUnderdetermined)

	same := []peak.Key{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}, {4, 0, 0}, {5, 0, 0}, {6, 0, 0}}
	_, err = extinction.FitQuadraticForm(same, make([]float64, 6))
	assert.ErrorIs(t, err, extinction.ErrUnderdetermined)
}

// TestWriteReport verifies the report layout.
func TestWriteReport(t *testing.T) {
	sel := extinction.Selection{
		Fits: []extinction.Fit{{
			Model:     extinction.SecondaryGaussian,
			Params:    extinction.Params{R: 25000, G: 10, Scale: 2, Uiso: 0.01},
			ChiSquare: 1.5,
		}},
	}
	sel.Best, sel.Chosen = sel.Fits[0], extinction.SecondaryGaussian

	var buf bytes.Buffer
	require.NoError(t, extinction.WriteReport(&buf, sel))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "model: secondary, gaussian\ncrystallite size r: 2.5000 micron\n"))
	assert.Contains(t, out, "crystallite parameter g: 10.0000\n")
	assert.Contains(t, out, "crystallite misorientation: 1.6163 deg\n")
	assert.Contains(t, out, "scale: 2.0000e+00\n")
	assert.Contains(t, out, "chi^2: 1.5000e+00\n\n")
	assert.True(t, strings.HasSuffix(out, "model: secondary, gaussian \n"))
}

// TestCurves verifies grouping by family and ordering by x.
func TestCurves(t *testing.T) {
	f := extinction.Fit{Model: extinction.GaussianTypeI, Params: extinction.Params{G: 1, Scale: 1}, MeanWavelength: 1}
	pts := []extinction.Point{
		{Key: k110, Family: k110, Ideal: 3, Lorentz: 1, Intensity: 1, Sigma: 0.1, Wavelength: 1},
		{Key: k100, Family: k100, Ideal: 2, Lorentz: 1, Intensity: 1, Sigma: 0.1, Wavelength: 1},
		{Key: k100, Family: k100, Ideal: 1, Lorentz: 1, Intensity: 2, Sigma: 0.2, Wavelength: 1},
	}
	curves := extinction.Curves(f, pts)
	require.Len(t, curves, 2)
	assert.Equal(t, k100, curves[0].Family)
	require.Len(t, curves[0].X, 2)
	assert.Less(t, curves[0].X[0], curves[0].X[1])
	assert.Equal(t, 2.0, curves[0].Intensity[0])

	var buf bytes.Buffer
	require.NoError(t, extinction.WriteCurves(&buf, curves))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "1,0,0,"))
	assert.True(t, strings.HasPrefix(lines[2], "1,1,0,"))
	assert.Len(t, strings.Split(lines[0], ","), 7)
}

// TestStructureTable verifies YAML loading and family defaults.
func TestStructureTable(t *testing.T) {
	doc := `
reflections:
  - {key: [1, 0, 0], intensity: 12.5, family: [1, 0, 0]}
  - {key: [0, 1, 0], intensity: 12.5, family: [1, 0, 0]}
  - {key: [1, 1, 0, 0, 0, 0], intensity: 3}
`
	tab, err := extinction.LoadStructureTable(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, tab.Len())
	v, ok := tab.Ideal(peak.Key{0, 1, 0})
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)
	assert.Equal(t, k100, tab.Family(peak.Key{0, 1, 0}))
	assert.Equal(t, k110, tab.Family(k110))

	_, err = extinction.LoadStructureTable(strings.NewReader("reflections:\n  - {key: [1, 0], intensity: 1}\n"))
	assert.ErrorIs(t, err, extinction.ErrBadStructure)
	_, err = extinction.LoadStructureTable(strings.NewReader("reflections:\n  - {key: [1, 0, 0], intensity: -1}\n"))
	assert.ErrorIs(t, err, extinction.ErrBadStructure)
}

// TestCollect verifies one point per Lorentz cluster with the scale
// constant removed.
func TestCollect(t *testing.T) {
	g, err := crystal.NewGeometry(crystal.Lattice{A: 5, B: 5, C: 5, Alpha: 90, Beta: 90, Gamma: 90})
	require.NoError(t, err)
	s, err := store.New(g)
	require.NoError(t, err)

	for _, k := range []peak.Key{k100, k110} {
		ok, err := s.Accumulate(k, peak.Observation{
			Run: 1, Wavelength: 1, TwoTheta: 1, Azimuth: 0.5, Omega: 10, EstIntensity: 10, EstSigma: 1,
		})
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, s.Integrate(k100, 0, peak.Integration{
		BinSize: [3]float64{1, 1, 1},
		Voxels: []peak.Voxels{{
			PeakData: []float64{10, 10, math.NaN()},
			PeakNorm: []float64{1, 1, 0},
			BkgData:  []float64{1, 1},
			BkgNorm:  []float64{1, 1},
		}},
	}))

	tab := extinction.NewStructureTable()
	tab.Set(k100, 7, k100)
	tab.Set(k110, 3, k110)

	pts := extinction.Collect(s, tab, s.MergeOptions())
	require.Len(t, pts, 1, "only integrated records contribute")
	p := pts[0]
	assert.Equal(t, k100, p.Key)
	assert.Equal(t, 7.0, p.Ideal)
	assert.InDelta(t, 18, p.Intensity, 1e-9)
	assert.Greater(t, p.Sigma, 0.0)
	assert.InDelta(t, 1/math.Pow(math.Sin(0.5), 2), p.Lorentz, 1e-9)
	assert.Equal(t, 10.0, p.Omega)
}

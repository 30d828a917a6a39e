package absorption

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/katalvlaran/xtalred/peak"
	"github.com/katalvlaran/xtalred/store"
)

// ReferenceWavelength is the wavelength (Å) of tabulated absorption cross
// sections.
const ReferenceWavelength = 1.8

var (
	// ErrBadTable indicates a malformed transmission table.
	ErrBadTable = errors.New("absorption: malformed table")

	// ErrBadSample indicates non-physical sample parameters.
	ErrBadSample = errors.New("absorption: invalid sample")
)

// Table is A*(μR, 2θ) on a rectangular grid.
type Table struct {
	muR  []float64
	rows []*interp.PiecewiseLinear // one per μR, over 2θ in degrees
}

// ReadTable reads a comma-separated table whose header holds the Bragg
// angles θ in degrees after one label column, and whose rows hold μR
// followed by A* at each angle:
//
//	muR,0,5,10,...,90
//	0.0,1.0,1.0,1.0,...
//	0.1,1.15,1.15,1.14,...
//
// Both axes must be strictly increasing with at least two points.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadTable)
	}
	if len(recs) < 3 || len(recs[0]) < 3 {
		return nil, fmt.Errorf("need at least 2 rows and 2 angles: %w", ErrBadTable)
	}

	twoTheta, err := parseRow(recs[0][1:])
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for j := range twoTheta {
		twoTheta[j] *= 2
	}

	t := &Table{}
	for i, rec := range recs[1:] {
		v, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if n := len(t.muR); n > 0 && !(v[0] > t.muR[n-1]) {
			return nil, fmt.Errorf("row %d: muR %g not increasing: %w", i+1, v[0], ErrBadTable)
		}
		row := new(interp.PiecewiseLinear)
		if err = row.Fit(twoTheta, v[1:]); err != nil {
			return nil, fmt.Errorf("row %d: %v: %w", i+1, err, ErrBadTable)
		}
		t.muR = append(t.muR, v[0])
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func parseRow(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("field %d %q: %w", i, f, ErrBadTable)
		}
		out[i] = v
	}

	return out, nil
}

// At returns A* and ∂A*/∂μR at (muR, twoTheta degrees). Queries outside
// the grid are clamped to its edges.
func (t *Table) At(muR, twoTheta float64) (float64, float64, error) {
	col := make([]float64, len(t.rows))
	for i, row := range t.rows {
		col[i] = row.Predict(twoTheta)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(t.muR, col); err != nil {
		return 0, 0, fmt.Errorf("%v: %w", err, ErrBadTable)
	}

	return pl.Predict(muR), pl.PredictDerivative(muR), nil
}

// Sphere is a spherical sample.
type Sphere struct {
	Radius     float64 // cm
	Scattering float64 // linear scattering coefficient n·σs (1/cm)
	Absorption float64 // linear absorption coefficient n·σa at 1.8 Å (1/cm)
}

// RadiusFromMass returns the radius (cm) of a sphere of mass g and density
// g/cm³.
func RadiusFromMass(mass, density float64) float64 {
	return math.Cbrt(0.75 / math.Pi * mass / density)
}

// Validate checks that the radius is positive and the coefficients are
// finite and non-negative.
func (s Sphere) Validate() error {
	if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
		return fmt.Errorf("radius %g: %w", s.Radius, ErrBadSample)
	}
	for _, v := range []float64{s.Scattering, s.Absorption} {
		if !(v >= 0) || math.IsInf(v, 0) {
			return fmt.Errorf("coefficient %g: %w", v, ErrBadSample)
		}
	}

	return nil
}

// Mu returns the linear attenuation coefficient at wavelength lambda (Å).
func (s Sphere) Mu(lambda float64) float64 {
	return s.Scattering + s.Absorption*lambda/ReferenceWavelength
}

// Func returns the store correction for the sample: data scale A* and
// mean path length R·(∂A*/∂μR)/A* in cm.
func (s Sphere) Func(t *Table) store.AbsorptionFunc {
	return func(_ peak.Key, o *peak.Observation) (float64, float64, error) {
		muR := s.Mu(o.Wavelength) * s.Radius
		tt := o.TwoTheta * 180 / math.Pi
		a, da, err := t.At(muR, tt)
		if err != nil {
			return 0, 0, err
		}
		if !(a > 0) {
			return 0, 0, fmt.Errorf("A*(%g, %g°) = %g: %w", muR, tt, a, ErrBadTable)
		}

		return a, s.Radius * da / a, nil
	}
}

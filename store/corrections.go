package store

import (
	"fmt"
	"math"

	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/peak"
)

// AbsorptionFunc returns the absorption correction (data scale) and the
// weighted mean path length T̄ for one observation.
type AbsorptionFunc func(key peak.Key, obs *peak.Observation) (scale, pathLength float64, err error)

// ExtinctionFunc returns the extinction constant for a reflection.
type ExtinctionFunc func(key peak.Key) float64

// SetScaleConstant replaces the global intensity scale constant.
func (s *Store) SetScaleConstant(c float64) error {
	if !(c > 0) || math.IsInf(c, 0) {
		return fmt.Errorf("%g: %w", c, ErrBadScaleConstant)
	}
	s.opts.ScaleConstant = c

	return nil
}

// SetBankScale sets every observation's normalisation scale from its bank.
// Every bank must be present and every scale positive; on error nothing
// is changed.
func (s *Store) SetBankScale(scales map[int]float64) error {
	for b, v := range scales {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("bank %d scale %g: %w", b, v, peak.ErrBadScale)
		}
	}
	err := s.Each(func(k peak.Key, _ int, rec *peak.Record) error {
		for i := range rec.Observations {
			if _, ok := scales[rec.Observations[i].Bank]; !ok {
				return fmt.Errorf("%v bank %d: %w", k, rec.Observations[i].Bank, ErrUnknownBank)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	return s.Each(func(_ peak.Key, _ int, rec *peak.Record) error {
		for i := range rec.Observations {
			rec.Observations[i].NormScale = scales[rec.Observations[i].Bank]
		}

		return nil
	})
}

// ApplyAbsorption sets data scale and path length of every observation
// from fn. All corrections are computed before any is stored, so an error
// leaves the store unchanged.
func (s *Store) ApplyAbsorption(fn AbsorptionFunc) error {
	type correction struct{ scale, length float64 }
	var pending []correction
	err := s.Each(func(k peak.Key, _ int, rec *peak.Record) error {
		for i := range rec.Observations {
			scale, length, err := fn(k, &rec.Observations[i])
			if err != nil {
				return fmt.Errorf("absorption %v: %w", k, err)
			}
			if !(scale > 0) || math.IsInf(scale, 0) {
				return fmt.Errorf("absorption %v scale %g: %w", k, scale, peak.ErrBadScale)
			}
			pending = append(pending, correction{scale, length})
		}

		return nil
	})
	if err != nil {
		return err
	}

	n := 0

	return s.Each(func(_ peak.Key, _ int, rec *peak.Record) error {
		for i := range rec.Observations {
			rec.Observations[i].DataScale = pending[n].scale
			rec.Observations[i].PathLength = pending[n].length
			n++
		}

		return nil
	})
}

// ApplyExtinction sets the extinction constant of every record from fn.
// Subsequent merges with extinction enabled use it.
func (s *Store) ApplyExtinction(fn ExtinctionFunc) {
	_ = s.Each(func(k peak.Key, _ int, rec *peak.Record) error {
		rec.ExtConstant = fn(k)

		return nil
	})
}

// SetGeometry replaces the geometry. Records that are not yet integrated
// get their Q recomputed; integrated records keep the measured Q.
func (s *Store) SetGeometry(g *crystal.Geometry) error {
	if g == nil {
		return ErrNilGeometry
	}
	qs := make(map[peak.Key]crystal.Vec3, len(s.records))
	for k := range s.records {
		Q, err := g.Q(k.HKL(), k.MNP())
		if err != nil {
			return err
		}
		qs[k] = Q
	}
	s.geometry = g.Clone()
	for k, recs := range s.records {
		for _, rec := range recs {
			if !rec.Integrated() {
				rec.Q = qs[k]
			}
		}
	}

	return nil
}

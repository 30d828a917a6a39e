package extinction

import (
	"github.com/katalvlaran/xtalred/peak"
	"github.com/katalvlaran/xtalred/store"
)

// Point is one observed intensity entering the fit: a Lorentz cluster of
// one reflection domain, merged without extinction and divided by the
// scale constant.
type Point struct {
	Key        peak.Key
	Family     peak.Key
	Ideal      float64 // F²
	Intensity  float64
	Sigma      float64
	Lorentz    float64
	Wavelength float64 // Å
	TwoTheta   float64 // radians
	Omega      float64 // degrees
	Phi        float64 // degrees
	PathLength float64 // T̄, 0 if unknown
}

// Collect builds one point per Lorentz cluster of every integrated record
// whose reflection has a positive ideal intensity. Clusters with a
// non-positive uncertainty are skipped.
func Collect(s *store.Store, structure StructureModel, opts peak.MergeOptions) []Point {
	var out []Point
	_ = s.Each(func(k peak.Key, _ int, rec *peak.Record) error {
		ideal, ok := structure.Ideal(k)
		if !ok || !(ideal > 0) || !rec.Integrated() {
			return nil
		}
		family := structure.Family(k)
		for _, cp := range rec.LorentzClusterPoints(opts) {
			if !(cp.Sigma > 0) {
				continue
			}
			o := rec.Observations[cp.Representative]
			out = append(out, Point{
				Key:        k,
				Family:     family,
				Ideal:      ideal,
				Intensity:  cp.Intensity,
				Sigma:      cp.Sigma,
				Lorentz:    cp.Lorentz,
				Wavelength: o.Wavelength,
				TwoTheta:   o.TwoTheta,
				Omega:      o.Omega,
				Phi:        o.Phi,
				PathLength: o.PathLength,
			})
		}

		return nil
	})

	return out
}

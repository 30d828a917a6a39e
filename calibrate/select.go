package calibrate

import (
	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/peak"
	"github.com/katalvlaran/xtalred/store"
)

const (
	DefaultMinIntensity      = 5
	DefaultMinSignalNoise    = 3
	DefaultMinVolumeFraction = 0.9
)

// Thresholds gate the reflections used for calibration. Intensity and
// signal-to-noise must exceed their minimum; the volume fraction must reach
// its minimum.
type Thresholds struct {
	MinIntensity      float64
	MinSignalNoise    float64
	MinVolumeFraction float64
}

// DefaultThresholds returns I > 5, I/σ > 3 and volume fraction ≥ 0.9.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinIntensity:      DefaultMinIntensity,
		MinSignalNoise:    DefaultMinSignalNoise,
		MinVolumeFraction: DefaultMinVolumeFraction,
	}
}

// Pair is one measured reflection: its fractional index and Q-vector.
type Pair struct {
	Key            peak.Key
	HKL            crystal.Vec3 // hkl + Δ
	Q              crystal.Vec3
	Intensity      float64
	Sigma          float64
	VolumeFraction float64
}

// Select returns one pair per record whose quality-gated merge passes th,
// in key then domain order.
func Select(s *store.Store, th Thresholds) []Pair {
	g := s.Geometry()
	opts := s.MergeOptions()
	var out []Pair
	_ = s.Each(func(k peak.Key, _ int, rec *peak.Record) error {
		m := rec.Merge(opts)
		if !m.Defined || !(m.Intensity > th.MinIntensity) || !(m.SignalNoise() > th.MinSignalNoise) ||
			m.VolumeFraction < th.MinVolumeFraction {
			return nil
		}
		out = append(out, Pair{
			Key:            k,
			HKL:            g.Fractional(k.HKL(), k.MNP()),
			Q:              rec.Q,
			Intensity:      m.Intensity,
			Sigma:          m.Sigma,
			VolumeFraction: m.VolumeFraction,
		})

		return nil
	})

	return out
}

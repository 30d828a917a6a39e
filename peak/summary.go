package peak

import "math"

// Summary is a flat, rounded view of a record for reports.
type Summary struct {
	PeakNumber       int       `yaml:"peak_number"`
	Runs             []int     `yaml:"runs"`
	Banks            []int     `yaml:"banks"`
	MergedIntensity  float64   `yaml:"merged_intensity"`
	MergedSigma      float64   `yaml:"merged_sigma"`
	MergedVolRatio   float64   `yaml:"merged_volume_ratio"`
	MergedVolFract   float64   `yaml:"merged_volume_fraction"`
	Q                []float64 `yaml:"q"`
	BinSize          []float64 `yaml:"bin_size"`
	Intensities      []float64 `yaml:"intensities,omitempty"`
	Sigmas           []float64 `yaml:"sigmas,omitempty"`
	VolumeFractions  []float64 `yaml:"volume_fractions,omitempty"`
	ExtConstant      float64   `yaml:"ext_constant"`
	Wavelengths      []float64 `yaml:"wavelengths"`
	ScatteringAngles []float64 `yaml:"scattering_angles"`
	Omegas           []float64 `yaml:"omegas"`
}

// Summarize merges r with opts and collects the per-observation values.
// Angles are reported in degrees.
func (r *Record) Summarize(opts MergeOptions) Summary {
	m := r.Merge(opts)
	s := Summary{
		PeakNumber:      r.PeakNumber,
		MergedIntensity: round(m.Intensity, 2),
		MergedSigma:     round(m.Sigma, 2),
		MergedVolRatio:  round(m.VolumeRatio, 2),
		MergedVolFract:  round(m.VolumeFraction, 2),
		Q:               roundAll(r.Q[:], 3),
		BinSize:         roundAll(r.BinSize[:], 3),
		ExtConstant:     r.ExtConstant,
	}
	for i := range r.Observations {
		o := &r.Observations[i]
		s.Runs = append(s.Runs, o.Run)
		s.Banks = append(s.Banks, o.Bank)
		s.Wavelengths = append(s.Wavelengths, round(o.Wavelength, 2))
		s.ScatteringAngles = append(s.ScatteringAngles, round(o.TwoTheta*180/math.Pi, 2))
		s.Omegas = append(s.Omegas, round(o.Omega, 2))
	}
	for _, oi := range r.ObservationIntensities(opts) {
		s.Intensities = append(s.Intensities, round(oi.Intensity, 2))
		s.Sigmas = append(s.Sigmas, round(oi.Sigma, 2))
		s.VolumeFractions = append(s.VolumeFractions, round(oi.VolumeFraction, 2))
	}

	return s
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))

	return math.Round(v*p) / p
}

func roundAll(v []float64, digits int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = round(x, digits)
	}

	return out
}

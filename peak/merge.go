package peak

import (
	"fmt"
	"math"
)

const (
	// DefaultScaleConstant multiplies every merged intensity.
	DefaultScaleConstant = 1e4

	// DefaultMinVolumeFraction is the per-observation volume fraction an
	// observation must exceed to enter the canonical merge.
	DefaultMinVolumeFraction = 0.5
)

// MergeOptions configures a merge.
//
// Fields:
//   - ScaleConstant:     global intensity scale.
//   - Extinction:        apply per-observation extinction scales. Off while
//     fitting the extinction model itself.
//   - Laue:              Lorentz factor flavour used for extinction clusters.
//   - MinVolumeFraction: quality gate for Record.Merge.
//   - VolumeRatio:       when > 0, replaces the measured peak/background
//     volume ratio.
type MergeOptions struct {
	ScaleConstant     float64
	Extinction        bool
	Laue              bool
	MinVolumeFraction float64
	VolumeRatio       float64
}

// DefaultMergeOptions returns the options used for reported intensities.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		ScaleConstant:     DefaultScaleConstant,
		Extinction:        true,
		Laue:              true,
		MinVolumeFraction: DefaultMinVolumeFraction,
	}
}

// Merged is the result of merging a set of observations.
//
// Defined is false when nothing was merged or when the background region
// had no usable voxel and no volume ratio override was given; Intensity and
// Sigma are then 0.
type Merged struct {
	Intensity      float64 `yaml:"intensity"`
	Sigma          float64 `yaml:"sigma"`
	VolumeFraction float64 `yaml:"volume_fraction"`
	VolumeRatio    float64 `yaml:"volume_ratio"`
	Observations   int     `yaml:"observations"`
	Defined        bool    `yaml:"defined"`
}

// SignalNoise returns I/σ, or 0 when σ is not positive.
func (m Merged) SignalNoise() float64 {
	if !(m.Sigma > 0) {
		return 0
	}

	return m.Intensity / m.Sigma
}

// Partial accumulates observations for a merge. The zero value is an empty
// accumulator. Combining partials of disjoint index sets equals the partial
// of their union.
type Partial struct {
	// NaN-ignoring sums of scaled arrays.
	peakData, peakNorm []float64
	bkgData, bkgNorm   []float64
	// Plain sums of unscaled peak arrays; a NaN in any observation stays.
	rawData, rawNorm []float64

	peakVoxels, bkgVoxels int
	observations          int
}

// Observations returns the number of accumulated observations.
func (p Partial) Observations() int { return p.observations }

// add folds one observation with extinction scale ext into p.
func (p *Partial) add(o *Observation, ext float64) error {
	v := o.Voxels
	if p.observations == 0 {
		np, nb := len(v.PeakData), len(v.BkgData)
		p.peakData, p.peakNorm = make([]float64, np), make([]float64, np)
		p.rawData, p.rawNorm = make([]float64, np), make([]float64, np)
		p.bkgData, p.bkgNorm = make([]float64, nb), make([]float64, nb)
	} else if len(v.PeakData) != len(p.peakData) || len(v.BkgData) != len(p.bkgData) {
		return ErrVoxelLength
	}

	p.peakVoxels += nanSumInto(p.peakData, p.peakNorm, v.PeakData, v.PeakNorm, o.DataScale*ext, o.NormScale)
	p.bkgVoxels += nanSumInto(p.bkgData, p.bkgNorm, v.BkgData, v.BkgNorm, o.DataScale*ext, o.NormScale)
	for i := range v.PeakData {
		p.rawData[i] += v.PeakData[i]
		p.rawNorm[i] += v.PeakNorm[i]
	}
	p.observations++

	return nil
}

// nanSumInto adds scaled data and norm into the running sums, skipping NaN
// entries independently, and returns the number of voxels where both are
// present.
func nanSumInto(sumD, sumN, d, n []float64, sd, sn float64) int {
	joint := 0
	for i := range d {
		okD, okN := !math.IsNaN(d[i]), !math.IsNaN(n[i])
		if okD {
			sumD[i] += d[i] * sd
		}
		if okN {
			sumN[i] += n[i] * sn
		}
		if okD && okN {
			joint++
		}
	}

	return joint
}

// Combine returns the element-wise sum of p and o.
func (p Partial) Combine(o Partial) (Partial, error) {
	if p.observations == 0 {
		return o.clone(), nil
	}
	if o.observations == 0 {
		return p.clone(), nil
	}
	if len(p.peakData) != len(o.peakData) || len(p.bkgData) != len(o.bkgData) {
		return Partial{}, ErrVoxelLength
	}
	c := p.clone()
	addInto(c.peakData, o.peakData)
	addInto(c.peakNorm, o.peakNorm)
	addInto(c.bkgData, o.bkgData)
	addInto(c.bkgNorm, o.bkgNorm)
	addInto(c.rawData, o.rawData)
	addInto(c.rawNorm, o.rawNorm)
	c.peakVoxels += o.peakVoxels
	c.bkgVoxels += o.bkgVoxels
	c.observations += o.observations

	return c, nil
}

func (p Partial) clone() Partial {
	c := p
	c.peakData = append([]float64(nil), p.peakData...)
	c.peakNorm = append([]float64(nil), p.peakNorm...)
	c.bkgData = append([]float64(nil), p.bkgData...)
	c.bkgNorm = append([]float64(nil), p.bkgNorm...)
	c.rawData = append([]float64(nil), p.rawData...)
	c.rawNorm = append([]float64(nil), p.rawNorm...)

	return c
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Result evaluates the merge with intensity constant C (scale constant
// times voxel volume). volumeRatio > 0 overrides the measured ratio.
func (p Partial) Result(constant, volumeRatio float64) Merged {
	if p.observations == 0 {
		return Merged{}
	}
	m := Merged{Observations: p.observations}

	if len(p.rawData) > 0 {
		defined := 0
		for i := range p.rawData {
			if isFinite(p.rawData[i] / p.rawNorm[i]) {
				defined++
			}
		}
		m.VolumeFraction = float64(defined) / float64(len(p.rawData))
	}

	switch {
	case volumeRatio > 0:
		m.VolumeRatio = volumeRatio
	case p.bkgVoxels > 0:
		m.VolumeRatio = float64(p.peakVoxels) / float64(p.bkgVoxels)
	default:
		return m
	}

	pk, pkVar := ratioSums(p.peakData, p.peakNorm)
	bkg, bkgVar := ratioSums(p.bkgData, p.bkgNorm)
	r := m.VolumeRatio
	m.Intensity = (pk - r*bkg) * constant
	m.Sigma = math.Sqrt(pkVar+r*r*bkgVar) * constant
	m.Defined = true

	return m
}

// ratioSums returns Σ D/N and Σ D/N²·(1+D/N) over voxels where the terms
// are finite.
func ratioSums(d, n []float64) (sum, variance float64) {
	for i := range d {
		ratio := d[i] / n[i]
		if isFinite(ratio) {
			sum += ratio
		}
		if v := ratio / n[i] * (1 + ratio); isFinite(v) {
			variance += v
		}
	}

	return sum, variance
}

// Constant returns scale·Π BinSize.
func (r *Record) Constant(scale float64) float64 {
	return scale * r.BinSize[0] * r.BinSize[1] * r.BinSize[2]
}

// Partial accumulates the listed observations. Extinction scales are
// applied when opts.Extinction is set. A record that is not integrated
// yields an empty partial.
func (r *Record) Partial(indices []int, opts MergeOptions) (Partial, error) {
	var p Partial
	if err := r.checkIndices(indices); err != nil {
		return p, err
	}
	if !r.Integrated() || len(indices) == 0 {
		return p, nil
	}
	var ext []float64
	if opts.Extinction && r.ExtConstant != 0 {
		ext = r.ExtinctionScales(opts)
	}
	for _, i := range indices {
		s := 1.0
		if ext != nil {
			s = ext[i]
		}
		if err := p.add(&r.Observations[i], s); err != nil {
			return Partial{}, fmt.Errorf("observation %d: %w", i, err)
		}
	}

	return p, nil
}

// MergeSubset merges the listed observations without the quality gate.
func (r *Record) MergeSubset(indices []int, opts MergeOptions) (Merged, error) {
	p, err := r.Partial(indices, opts)
	if err != nil {
		return Merged{}, err
	}

	return p.Result(r.Constant(opts.ScaleConstant), opts.VolumeRatio), nil
}

// MergeAll merges every observation.
func (r *Record) MergeAll(opts MergeOptions) Merged {
	m, _ := r.MergeSubset(allIndices(len(r.Observations)), opts)

	return m
}

// Merge merges the observations whose volume fraction exceeds
// opts.MinVolumeFraction. This is the reported intensity of the record.
func (r *Record) Merge(opts MergeOptions) Merged {
	m, _ := r.MergeSubset(r.GoodObservations(opts.MinVolumeFraction), opts)

	return m
}

// GoodObservations lists observations with volume fraction above min.
func (r *Record) GoodObservations(min float64) []int {
	if !r.Integrated() {
		return nil
	}
	var out []int
	for i := range r.Observations {
		if r.Observations[i].VolumeFraction() > min {
			out = append(out, i)
		}
	}

	return out
}

// ObservationIntensity is the intensity of a single observation.
type ObservationIntensity struct {
	Intensity      float64
	Sigma          float64
	VolumeFraction float64
	VolumeRatio    float64
}

// ObservationIntensities evaluates every observation on its own, each with
// its own volume ratio and without extinction scaling. It returns nil when
// the record is not integrated.
func (r *Record) ObservationIntensities(opts MergeOptions) []ObservationIntensity {
	if !r.Integrated() {
		return nil
	}
	opts.Extinction = false
	constant := r.Constant(opts.ScaleConstant)
	out := make([]ObservationIntensity, len(r.Observations))
	for i := range r.Observations {
		var p Partial
		// A fresh Partial takes its lengths from the first observation, so
		// add cannot report ErrVoxelLength here.
		_ = p.add(&r.Observations[i], 1)
		m := p.Result(constant, opts.VolumeRatio)
		out[i] = ObservationIntensity{
			Intensity:      m.Intensity,
			Sigma:          m.Sigma,
			VolumeFraction: r.Observations[i].VolumeFraction(),
			VolumeRatio:    m.VolumeRatio,
		}
	}

	return out
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

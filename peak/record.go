package peak

import (
	"fmt"

	"github.com/katalvlaran/xtalred/crystal"
)

// Record is one domain of a reflection: its observations plus the results
// of integrating them.
type Record struct {
	PeakNumber   int           `yaml:"peak_number"`
	Q            crystal.Vec3  `yaml:"q"`
	Shape        crystal.Mat3  `yaml:"shape"`
	BinSize      [3]float64    `yaml:"bin_size"`
	PeakFit      float64       `yaml:"peak_fit"`
	PeakBkgRatio float64       `yaml:"peak_bkg_ratio"`
	PeakScore    float64       `yaml:"peak_score"`
	ExtConstant  float64       `yaml:"ext_constant,omitempty"`
	Observations []Observation `yaml:"observations"`
}

// NewRecord returns an empty record with the given peak number and an
// identity shape.
func NewRecord(peakNumber int) *Record {
	return &Record{PeakNumber: peakNumber, Shape: crystal.Identity3()}
}

// Len returns the number of observations.
func (r *Record) Len() int { return len(r.Observations) }

// Integrated reports whether every observation carries voxels.
func (r *Record) Integrated() bool {
	if len(r.Observations) == 0 {
		return false
	}
	for i := range r.Observations {
		if r.Observations[i].Voxels == nil {
			return false
		}
	}

	return true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	c.Observations = make([]Observation, len(r.Observations))
	for i, o := range r.Observations {
		o.Voxels = o.Voxels.Clone()
		c.Observations[i] = o
	}

	return &c
}

// Subset returns a copy of r keeping only the listed observations, in the
// given order. Domain-level fields are inherited.
func (r *Record) Subset(indices []int) (*Record, error) {
	if err := r.checkIndices(indices); err != nil {
		return nil, err
	}
	c := *r
	c.Observations = make([]Observation, 0, len(indices))
	for _, i := range indices {
		o := r.Observations[i]
		o.Voxels = o.Voxels.Clone()
		c.Observations = append(c.Observations, o)
	}

	return &c, nil
}

// Integration carries the output of the external integration stage for
// one record: domain fields plus one voxel set per observation.
type Integration struct {
	Q            crystal.Vec3 `yaml:"q"`
	Shape        crystal.Mat3 `yaml:"shape"`
	BinSize      [3]float64   `yaml:"bin_size"`
	PeakFit      float64      `yaml:"peak_fit"`
	PeakBkgRatio float64      `yaml:"peak_bkg_ratio"`
	PeakScore    float64      `yaml:"peak_score"`
	Voxels       []Voxels     `yaml:"voxels"`
}

// Integrate stores in on r. Correction scales are reset to 1 since they
// refer to the previous integration. Nothing is changed on error.
func (r *Record) Integrate(in Integration) error {
	if len(in.Voxels) != len(r.Observations) {
		return fmt.Errorf("%d voxel sets for %d observations: %w", len(in.Voxels), len(r.Observations), ErrVoxelCount)
	}
	for i := range in.Voxels {
		if err := in.Voxels[i].Validate(); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
		if len(in.Voxels[i].PeakData) != len(in.Voxels[0].PeakData) ||
			len(in.Voxels[i].BkgData) != len(in.Voxels[0].BkgData) {
			return fmt.Errorf("observation %d: %w", i, ErrVoxelLength)
		}
	}

	r.Q, r.Shape, r.BinSize = in.Q, in.Shape, in.BinSize
	r.PeakFit, r.PeakBkgRatio, r.PeakScore = in.PeakFit, in.PeakBkgRatio, in.PeakScore
	for i := range r.Observations {
		v := in.Voxels[i]
		r.Observations[i].Voxels = v.Clone()
		r.Observations[i].DataScale = 1
		r.Observations[i].NormScale = 1
	}

	return nil
}

// Validate checks voxel consistency across observations and that the
// correction scales are positive and finite.
func (r *Record) Validate() error {
	peakLen, bkgLen := -1, -1
	for i := range r.Observations {
		o := &r.Observations[i]
		if !(o.DataScale > 0) || !(o.NormScale > 0) || !isFinite(o.DataScale) || !isFinite(o.NormScale) {
			return fmt.Errorf("observation %d: scales %g/%g: %w", i, o.DataScale, o.NormScale, ErrBadScale)
		}
		if o.Voxels == nil {
			continue
		}
		if err := o.Voxels.Validate(); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
		if peakLen < 0 {
			peakLen, bkgLen = len(o.Voxels.PeakData), len(o.Voxels.BkgData)
		}
		if len(o.Voxels.PeakData) != peakLen || len(o.Voxels.BkgData) != bkgLen {
			return fmt.Errorf("observation %d: %w", i, ErrVoxelLength)
		}
	}

	return nil
}

// Omegas returns the goniometer omega angle of every observation.
func (r *Record) Omegas() []float64 {
	out := make([]float64, len(r.Observations))
	for i := range r.Observations {
		out[i] = r.Observations[i].Omega
	}

	return out
}

// checkIndices rejects indices outside the observation list.
func (r *Record) checkIndices(indices []int) error {
	for _, i := range indices {
		if i < 0 || i >= len(r.Observations) {
			return fmt.Errorf("index %d of %d: %w", i, len(r.Observations), ErrIndexOutOfRange)
		}
	}

	return nil
}

package peak

import (
	"math"

	"github.com/katalvlaran/xtalred/crystal"
)

// Voxels are the integration arrays of one observation. NaN marks a voxel
// without data.
type Voxels struct {
	PeakData []float64 `yaml:"peak_data"`
	PeakNorm []float64 `yaml:"peak_norm"`
	BkgData  []float64 `yaml:"bkg_data"`
	BkgNorm  []float64 `yaml:"bkg_norm"`
}

// Validate checks that data and normalisation arrays pair up.
func (v *Voxels) Validate() error {
	if len(v.PeakData) != len(v.PeakNorm) || len(v.BkgData) != len(v.BkgNorm) {
		return ErrVoxelLength
	}

	return nil
}

// Clone returns a deep copy.
func (v *Voxels) Clone() *Voxels {
	if v == nil {
		return nil
	}

	return &Voxels{
		PeakData: append([]float64(nil), v.PeakData...),
		PeakNorm: append([]float64(nil), v.PeakNorm...),
		BkgData:  append([]float64(nil), v.BkgData...),
		BkgNorm:  append([]float64(nil), v.BkgNorm...),
	}
}

// Observation is one measurement of a reflection at one goniometer setting.
//
// Fields:
//   - Run, Bank, PeakIndex: source identifiers.
//   - Row, Col:             detector pixel.
//   - Wavelength:           Å.
//   - TwoTheta, Azimuth:    scattering and azimuthal angle, radians.
//   - Phi, Chi, Omega:      goniometer angles, degrees.
//   - EstIntensity/Sigma:   pre-integration estimate.
//   - DataScale:            absorption correction, multiplies data.
//   - NormScale:            bank normalisation, multiplies norms.
//   - PathLength:           weighted mean path length T̄ (cm), 0 if unknown.
//   - Voxels:               nil until integrated.
type Observation struct {
	Run          int     `yaml:"run"`
	Bank         int     `yaml:"bank"`
	PeakIndex    int     `yaml:"peak_index"`
	Row          float64 `yaml:"row"`
	Col          float64 `yaml:"col"`
	Wavelength   float64 `yaml:"wavelength"`
	TwoTheta     float64 `yaml:"two_theta"`
	Azimuth      float64 `yaml:"azimuth"`
	Phi          float64 `yaml:"phi"`
	Chi          float64 `yaml:"chi"`
	Omega        float64 `yaml:"omega"`
	EstIntensity float64 `yaml:"est_intensity"`
	EstSigma     float64 `yaml:"est_sigma"`
	DataScale    float64 `yaml:"data_scale,omitempty"`
	NormScale    float64 `yaml:"norm_scale,omitempty"`
	PathLength   float64 `yaml:"path_length,omitempty"`
	Voxels       *Voxels `yaml:"voxels,omitempty"`
}

// ApplyDefaults sets unset correction scales to 1.
func (o *Observation) ApplyDefaults() {
	if o.DataScale == 0 {
		o.DataScale = 1
	}
	if o.NormScale == 0 {
		o.NormScale = 1
	}
}

// Rotation returns the goniometer rotation Ry(ω)·Rz(χ)·Ry(φ).
func (o *Observation) Rotation() crystal.Mat3 {
	return crystal.Goniometer(o.Phi, o.Chi, o.Omega)
}

// LorentzFactor returns λ⁴/sin²(2θ/2) in Laue mode and
// λ³/|sin 2θ · cos az| otherwise.
func (o *Observation) LorentzFactor(laue bool) float64 {
	if laue {
		s := math.Sin(o.TwoTheta / 2)

		return math.Pow(o.Wavelength, 4) / (s * s)
	}

	return math.Pow(o.Wavelength, 3) / math.Abs(math.Sin(o.TwoTheta)*math.Cos(o.Azimuth))
}

// VolumeFraction returns the fraction of peak voxels with a finite
// data/norm ratio, or 0 before integration.
func (o *Observation) VolumeFraction() float64 {
	if o.Voxels == nil || len(o.Voxels.PeakData) == 0 {
		return 0
	}
	n := 0
	for i, d := range o.Voxels.PeakData {
		if isFinite(d / o.Voxels.PeakNorm[i]) {
			n++
		}
	}

	return float64(n) / float64(len(o.Voxels.PeakData))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Package config loads the run configuration of a reduction with viper and
// converts it into the option structs of the library packages.
package config

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/xtalred/absorption"
	"github.com/katalvlaran/xtalred/calibrate"
	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/extinction"
	"github.com/katalvlaran/xtalred/hkl"
	"github.com/katalvlaran/xtalred/lsq"
	"github.com/katalvlaran/xtalred/peak"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("config: invalid")

// ModulationConfig describes up to three modulation vectors.
type ModulationConfig struct {
	Vectors    [][3]float64 `mapstructure:"vectors"`
	MaxOrder   int          `mapstructure:"max_order"`
	CrossTerms bool         `mapstructure:"cross_terms"`
}

// SplitConfig controls orientation clustering.
type SplitConfig struct {
	Eps float64 `mapstructure:"eps"` // degrees; 0 splits every observation
}

// MergeConfig controls merging.
type MergeConfig struct {
	MinVolumeFraction float64 `mapstructure:"min_volume_fraction"`
	Laue              bool    `mapstructure:"laue"`
}

// ExtinctionConfig controls the extinction fit.
type ExtinctionConfig struct {
	Models        []string `mapstructure:"models"`
	FitOffsets    bool     `mapstructure:"fit_offsets"`
	Anisotropic   bool     `mapstructure:"anisotropic"`
	StructureFile string   `mapstructure:"structure_file"`
	InitialR      float64  `mapstructure:"initial_r"`
	InitialG      float64  `mapstructure:"initial_g"`
}

// CalibrationConfig gates calibration reflections.
type CalibrationConfig struct {
	MinIntensity      float64 `mapstructure:"min_intensity"`
	MinSignalNoise    float64 `mapstructure:"min_signal_noise"`
	MinVolumeFraction float64 `mapstructure:"min_volume_fraction"`
}

// AbsorptionConfig describes the spherical sample. Radius wins over
// mass and density.
type AbsorptionConfig struct {
	Table      string  `mapstructure:"table"`
	Radius     float64 `mapstructure:"radius"`  // cm
	Mass       float64 `mapstructure:"mass"`    // g
	Density    float64 `mapstructure:"density"` // g/cm³
	Scattering float64 `mapstructure:"scattering"`
	Absorption float64 `mapstructure:"absorption"`
}

// HKLConfig controls the reflection file.
type HKLConfig struct {
	MinSignalNoise    float64 `mapstructure:"min_signal_noise"`
	MinVolumeFraction float64 `mapstructure:"min_volume_fraction"`
	AdaptiveScale     bool    `mapstructure:"adaptive_scale"`
}

// StateConfig names the persisted store and the worker database.
type StateConfig struct {
	File     string `mapstructure:"file"`
	Database string `mapstructure:"database"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug | info | warn | error
	Format string `mapstructure:"format"` // json | console
}

// Config is the full run configuration.
type Config struct {
	Lattice       crystal.Lattice   `mapstructure:"lattice"`
	UBFile        string            `mapstructure:"ub_file"`
	Modulation    ModulationConfig  `mapstructure:"modulation"`
	Centering     string            `mapstructure:"centering"`
	ScaleConstant float64           `mapstructure:"scale_constant"`
	BankScales    map[int]float64   `mapstructure:"bank_scales"`
	Absorption    AbsorptionConfig  `mapstructure:"absorption"`
	Split         SplitConfig       `mapstructure:"split"`
	Merge         MergeConfig       `mapstructure:"merge"`
	Extinction    ExtinctionConfig  `mapstructure:"extinction"`
	Calibration   CalibrationConfig `mapstructure:"calibration"`
	HKL           HKLConfig         `mapstructure:"hkl"`
	State         StateConfig       `mapstructure:"state"`
	Log           LogConfig         `mapstructure:"log"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.UBFile == "" {
		if err := c.Lattice.Validate(); err != nil {
			return invalid("lattice: %v", err)
		}
	}
	if len(c.Modulation.Vectors) > 3 {
		return invalid("modulation.vectors: %d vectors, at most 3", len(c.Modulation.Vectors))
	}
	if c.Modulation.MaxOrder < 0 {
		return invalid("modulation.max_order must be ≥ 0, got %d", c.Modulation.MaxOrder)
	}
	if _, err := crystal.ParseCentering(c.Centering); err != nil {
		return invalid("centering: %v", err)
	}
	if !(c.ScaleConstant > 0) {
		return invalid("scale_constant must be > 0, got %g", c.ScaleConstant)
	}
	if c.Split.Eps < 0 {
		return invalid("split.eps must be ≥ 0, got %g", c.Split.Eps)
	}
	for name, v := range map[string]float64{
		"merge.min_volume_fraction":       c.Merge.MinVolumeFraction,
		"calibration.min_volume_fraction": c.Calibration.MinVolumeFraction,
		"hkl.min_volume_fraction":         c.HKL.MinVolumeFraction,
	} {
		if v < 0 || v > 1 {
			return invalid("%s must be in [0, 1], got %g", name, v)
		}
	}
	if c.Absorption.Table != "" {
		if err := c.Sphere().Validate(); err != nil {
			return invalid("absorption: %v", err)
		}
	}
	if _, err := c.ExtinctionModels(); err != nil {
		return invalid("extinction.models: %v", err)
	}
	if !(c.Extinction.InitialR > 0) || !(c.Extinction.InitialG > 0) {
		return invalid("extinction.initial_r and initial_g must be > 0")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return invalid("log.format %q; expected json|console", c.Log.Format)
	}

	return nil
}

// Geometry builds the starting geometry: from the UB file when set,
// otherwise from the lattice constants with U = I.
func (c *Config) Geometry() (*crystal.Geometry, error) {
	var (
		g   *crystal.Geometry
		err error
	)
	if c.UBFile != "" {
		f, err := os.Open(c.UBFile)
		if err != nil {
			return nil, fmt.Errorf("config: ub_file: %w", err)
		}
		defer func() { _ = f.Close() }()
		ub, err := crystal.ReadISAW(f)
		if err != nil {
			return nil, fmt.Errorf("config: ub_file %s: %w", c.UBFile, err)
		}
		if g, err = crystal.NewGeometryFromUB(ub); err != nil {
			return nil, fmt.Errorf("config: ub_file %s: %w", c.UBFile, err)
		}
	} else if g, err = crystal.NewGeometry(c.Lattice); err != nil {
		return nil, fmt.Errorf("config: lattice: %w", err)
	}

	for i, v := range c.Modulation.Vectors {
		if i < len(g.Modulations) {
			g.Modulations[i] = crystal.Vec3(v)
		}
	}
	g.MaxOrder = c.Modulation.MaxOrder
	g.CrossTerms = c.Modulation.CrossTerms
	if g.Centering, err = crystal.ParseCentering(c.Centering); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return g, nil
}

// MergeOptions returns the merge options of the run.
func (c *Config) MergeOptions() peak.MergeOptions {
	o := peak.DefaultMergeOptions()
	o.ScaleConstant = c.ScaleConstant
	o.MinVolumeFraction = c.Merge.MinVolumeFraction
	o.Laue = c.Merge.Laue

	return o
}

// Sphere returns the absorbing sample.
func (c *Config) Sphere() absorption.Sphere {
	a := c.Absorption
	r := a.Radius
	if r == 0 && a.Mass > 0 && a.Density > 0 {
		r = absorption.RadiusFromMass(a.Mass, a.Density)
	}

	return absorption.Sphere{Radius: r, Scattering: a.Scattering, Absorption: a.Absorption}
}

// ExtinctionModels parses the configured model names.
func (c *Config) ExtinctionModels() ([]extinction.Model, error) {
	out := make([]extinction.Model, 0, len(c.Extinction.Models))
	for _, name := range c.Extinction.Models {
		m, err := extinction.ParseModel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, nil
}

// ExtinctionSettings returns the fit settings of the run.
func (c *Config) ExtinctionSettings() extinction.Settings {
	return extinction.Settings{
		InitialR:   c.Extinction.InitialR,
		InitialG:   c.Extinction.InitialG,
		FitOffsets: c.Extinction.FitOffsets,
		LSQ:        lsq.DefaultSettings(),
	}
}

// CalibrationThresholds returns the calibration gates.
func (c *Config) CalibrationThresholds() calibrate.Thresholds {
	return calibrate.Thresholds{
		MinIntensity:      c.Calibration.MinIntensity,
		MinSignalNoise:    c.Calibration.MinSignalNoise,
		MinVolumeFraction: c.Calibration.MinVolumeFraction,
	}
}

// HKLOptions returns the reflection-file options for geometry g.
func (c *Config) HKLOptions(g *crystal.Geometry) hkl.Options {
	return hkl.Options{
		MinSignalNoise:    c.HKL.MinSignalNoise,
		MinVolumeFraction: c.HKL.MinVolumeFraction,
		AdaptiveScale:     c.HKL.AdaptiveScale,
		Modulations:       g.ActiveModulations(),
	}
}

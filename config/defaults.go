package config

import (
	"github.com/katalvlaran/xtalred/calibrate"
	"github.com/katalvlaran/xtalred/extinction"
	"github.com/katalvlaran/xtalred/hkl"
	"github.com/katalvlaran/xtalred/peak"
)

const (
	DefaultScaleConstant = peak.DefaultScaleConstant
	DefaultSplitEps      = 5.0 // degrees
	DefaultCentering     = "P"

	DefaultMinVolumeFraction = peak.DefaultMinVolumeFraction
	DefaultLaue              = true

	DefaultInitialR = extinction.DefaultInitialR
	DefaultInitialG = extinction.DefaultInitialG

	DefaultCalMinIntensity      = calibrate.DefaultMinIntensity
	DefaultCalMinSignalNoise    = calibrate.DefaultMinSignalNoise
	DefaultCalMinVolumeFraction = calibrate.DefaultMinVolumeFraction

	DefaultHKLMinSignalNoise    = hkl.DefaultMinSignalNoise
	DefaultHKLMinVolumeFraction = hkl.DefaultMinVolumeFraction

	DefaultStateFile     = "xtalred_state.yaml"
	DefaultStateDatabase = "xtalred_partials.db"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// DefaultModels are fitted when extinction.models is empty.
func DefaultModels() []string {
	models := extinction.Models()
	out := make([]string, len(models))
	for i, m := range models {
		out[i] = m.String()
	}

	return out
}

// ApplyDefaults fills zero-valued fields of cfg. Booleans are defaulted by
// the loader, since false is a valid setting.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.ScaleConstant == 0 {
		cfg.ScaleConstant = DefaultScaleConstant
	}
	if cfg.Centering == "" {
		cfg.Centering = DefaultCentering
	}
	if cfg.Merge.MinVolumeFraction == 0 {
		cfg.Merge.MinVolumeFraction = DefaultMinVolumeFraction
	}

	if len(cfg.Extinction.Models) == 0 {
		cfg.Extinction.Models = DefaultModels()
	}
	if cfg.Extinction.InitialR == 0 {
		cfg.Extinction.InitialR = DefaultInitialR
	}
	if cfg.Extinction.InitialG == 0 {
		cfg.Extinction.InitialG = DefaultInitialG
	}

	if cfg.Calibration.MinIntensity == 0 {
		cfg.Calibration.MinIntensity = DefaultCalMinIntensity
	}
	if cfg.Calibration.MinSignalNoise == 0 {
		cfg.Calibration.MinSignalNoise = DefaultCalMinSignalNoise
	}
	if cfg.Calibration.MinVolumeFraction == 0 {
		cfg.Calibration.MinVolumeFraction = DefaultCalMinVolumeFraction
	}

	if cfg.HKL.MinSignalNoise == 0 {
		cfg.HKL.MinSignalNoise = DefaultHKLMinSignalNoise
	}
	if cfg.HKL.MinVolumeFraction == 0 {
		cfg.HKL.MinVolumeFraction = DefaultHKLMinVolumeFraction
	}

	if cfg.State.File == "" {
		cfg.State.File = DefaultStateFile
	}
	if cfg.State.Database == "" {
		cfg.State.Database = DefaultStateDatabase
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Default returns a configuration with every default applied and no
// lattice.
func Default() *Config {
	cfg := &Config{Split: SplitConfig{Eps: DefaultSplitEps}, Merge: MergeConfig{Laue: DefaultLaue}}
	ApplyDefaults(cfg)

	return cfg
}

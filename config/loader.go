package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override: XTALRED_SPLIT_EPS,
// XTALRED_LOG_LEVEL, ...
const envPrefix = "XTALRED"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Registered keys are visible to Unmarshal even when only the
	// environment sets them.
	v.SetDefault("split.eps", DefaultSplitEps)
	v.SetDefault("merge.laue", DefaultLaue)
	v.SetDefault("merge.min_volume_fraction", DefaultMinVolumeFraction)
	v.SetDefault("scale_constant", DefaultScaleConstant)
	v.SetDefault("centering", DefaultCentering)
	v.SetDefault("ub_file", "")
	for _, k := range []string{"a", "b", "c", "alpha", "beta", "gamma"} {
		v.SetDefault("lattice."+k, 0.0)
	}
	v.SetDefault("extinction.fit_offsets", false)
	v.SetDefault("extinction.anisotropic", false)
	v.SetDefault("extinction.structure_file", "")
	v.SetDefault("absorption.table", "")
	for _, k := range []string{"radius", "mass", "density", "scattering", "absorption"} {
		v.SetDefault("absorption."+k, 0.0)
	}
	v.SetDefault("hkl.adaptive_scale", false)
	v.SetDefault("state.file", DefaultStateFile)
	v.SetDefault("state.database", DefaultStateDatabase)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	return v
}

// Load reads the YAML file at path, applies XTALRED_* environment
// overrides and defaults, and validates the result. An empty path loads
// from the environment alone.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	return finalize(v)
}

// LoadReader is Load for an in-memory YAML document.
func LoadReader(doc string) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	return finalize(v)
}

func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad: %v", err))
	}

	return cfg
}

package reduce

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/xtalred/config"
	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/peak"
	"github.com/katalvlaran/xtalred/store"
)

// ErrBadInput indicates a malformed ingest document.
var ErrBadInput = errors.New("reduce: malformed input")

// Pipeline owns the store of one reduction run.
type Pipeline struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
}

// New builds the starting geometry from cfg and resumes from the state file
// when it exists. A nil logger disables logging.
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g, err := cfg.Geometry()
	if err != nil {
		return nil, err
	}
	opts := []store.Option{store.WithMergeOptions(cfg.MergeOptions())}

	s, err := store.LoadFile(cfg.State.File, g, opts...)
	switch {
	case err == nil:
		logger.Info("state resumed",
			zap.String("file", cfg.State.File), zap.Int("reflections", s.Len()))
	case errors.Is(err, fs.ErrNotExist):
		if s, err = store.New(g, opts...); err != nil {
			return nil, err
		}
		logger.Info("state created", zap.Stringer("system", crystal.DetectSystem(g.Lattice)))
	default:
		return nil, fmt.Errorf("resume %s: %w", cfg.State.File, err)
	}

	return &Pipeline{cfg: cfg, log: logger, store: s}, nil
}

// NewWorker is New without resuming: the store starts empty. Worker runs
// use it and hand their store to statedb.
func NewWorker(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	g, err := cfg.Geometry()
	if err != nil {
		return nil, err
	}
	s, err := store.New(g, store.WithMergeOptions(cfg.MergeOptions()))
	if err != nil {
		return nil, err
	}

	return NewWithStore(cfg, s, logger), nil
}

// NewWithStore wraps an existing store.
func NewWithStore(cfg *config.Config, s *store.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{cfg: cfg, log: logger, store: s}
}

// Store returns the owned store.
func (p *Pipeline) Store() *store.Store { return p.store }

// Save writes the store to the configured state file.
func (p *Pipeline) Save() error {
	if err := p.store.SaveFile(p.cfg.State.File); err != nil {
		return err
	}
	p.log.Info("state saved", zap.String("file", p.cfg.State.File), zap.Int("reflections", p.store.Len()))

	return nil
}

// ObservationEntry is one observation of an ingest document.
type ObservationEntry struct {
	Key              []int `yaml:"key"`
	peak.Observation `yaml:",inline"`
}

// IntegrationEntry is the integration result of one record.
type IntegrationEntry struct {
	Key              []int `yaml:"key"`
	Domain           int   `yaml:"domain"`
	peak.Integration `yaml:",inline"`
}

// Input is an ingest document.
//
//	observations:
//	  - {key: [h, k, l], run: 1, wavelength: 1.2, omega: 30, est_intensity: 50, est_sigma: 4}
//	integrations:
//	  - {key: [h, k, l], domain: 0, bin_size: [..], voxels: [{peak_data: [..], ...}]}
type Input struct {
	Observations []ObservationEntry `yaml:"observations"`
	Integrations []IntegrationEntry `yaml:"integrations"`
}

// IngestStats counts what Ingest did.
type IngestStats struct {
	Accepted   int
	Rejected   int
	Integrated int
}

func toKey(v []int) (peak.Key, error) {
	var k peak.Key
	if len(v) != 3 && len(v) != 6 {
		return k, fmt.Errorf("key %v: %w", v, ErrBadInput)
	}
	copy(k[:], v)

	return k, nil
}

// Ingest accumulates the observations of the document in r, then applies
// its integration results. Observations failing the estimate gate are
// counted as rejected. An integration without a measured Q keeps the
// calculated one, and one without a shape gets the identity.
func (p *Pipeline) Ingest(r io.Reader) (IngestStats, error) {
	var (
		in    Input
		stats IngestStats
	)
	if err := yaml.NewDecoder(r).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return stats, fmt.Errorf("%v: %w", err, ErrBadInput)
	}
	for i, e := range in.Observations {
		k, err := toKey(e.Key)
		if err != nil {
			return stats, fmt.Errorf("observation %d: %w", i, err)
		}
		ok, err := p.store.Accumulate(k, e.Observation)
		if err != nil {
			return stats, fmt.Errorf("observation %d: %w", i, err)
		}
		if ok {
			stats.Accepted++
		} else {
			stats.Rejected++
		}
	}
	for i, e := range in.Integrations {
		k, err := toKey(e.Key)
		if err != nil {
			return stats, fmt.Errorf("integration %d: %w", i, err)
		}
		if e.Shape == (crystal.Mat3{}) {
			e.Shape = crystal.Identity3()
		}
		if recs := p.store.Records(k); e.Q == (crystal.Vec3{}) && e.Domain >= 0 && e.Domain < len(recs) {
			e.Q = recs[e.Domain].Q
		}
		if err = p.store.Integrate(k, e.Domain, e.Integration); err != nil {
			return stats, fmt.Errorf("integration %d: %w", i, err)
		}
		stats.Integrated++
	}
	p.log.Info("ingested",
		zap.Int("accepted", stats.Accepted),
		zap.Int("rejected", stats.Rejected),
		zap.Int("integrated", stats.Integrated),
		zap.Int("reflections", p.store.Len()))

	return stats, nil
}

// Split runs orientation clustering with the configured tolerance.
func (p *Pipeline) Split() int {
	added := p.store.Split(p.cfg.Split.Eps)
	p.log.Info("split", zap.Float64("eps", p.cfg.Split.Eps), zap.Int("added", added))

	return added
}

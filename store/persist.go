package store

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/peak"
)

// FormatVersion is written to every saved state.
const FormatVersion = 2

type document struct {
	Version       int               `yaml:"version"`
	ScaleConstant *float64          `yaml:"scale_constant,omitempty"`
	NextPeak      int               `yaml:"next_peak,omitempty"`
	Geometry      *geometryDocument `yaml:"geometry,omitempty"`
	Reflections   []reflection      `yaml:"reflections"`
}

type geometryDocument struct {
	Lattice     crystal.Lattice `yaml:"lattice"`
	U           crystal.Mat3    `yaml:"u"`
	Modulations [3]crystal.Vec3 `yaml:"modulations"`
	MaxOrder    int             `yaml:"max_order,omitempty"`
	CrossTerms  bool            `yaml:"cross_terms,omitempty"`
	Centering   string          `yaml:"centering,omitempty"`
}

// reflection is one entry on disk. Records is either a sequence of
// records or, in legacy files, a single record mapping.
type reflection struct {
	Key     []int     `yaml:"key"`
	Records yaml.Node `yaml:"records"`
}

// Save writes the store as YAML.
func (s *Store) Save(w io.Writer) error {
	c := s.opts.ScaleConstant
	g := s.geometry
	doc := document{
		Version:       FormatVersion,
		ScaleConstant: &c,
		NextPeak:      s.nextPeak,
		Geometry: &geometryDocument{
			Lattice:     g.Lattice,
			U:           g.U,
			Modulations: g.Modulations,
			MaxOrder:    g.MaxOrder,
			CrossTerms:  g.CrossTerms,
			Centering:   g.Centering.String(),
		},
	}
	for _, k := range s.Keys() {
		k := k
		var node yaml.Node
		if err := node.Encode(s.records[k]); err != nil {
			return fmt.Errorf("encode %v: %w", k, err)
		}
		doc.Reflections = append(doc.Reflections, reflection{Key: k[:], Records: node})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}

	return enc.Close()
}

// Load reads a state written by Save, or a legacy state. The geometry in
// the file wins over fallback; one of them must be present.
//
// Legacy shapes are migrated once here: 3-element keys gain zero satellite
// indices and a single record mapping becomes a one-element sequence.
// Missing correction scales default to 1.
func Load(r io.Reader, fallback *crystal.Geometry, opts ...Option) (*Store, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%v: %w", err, ErrCorruptState)
	}
	if doc.Version > FormatVersion {
		return nil, fmt.Errorf("version %d: %w", doc.Version, ErrCorruptState)
	}

	g := fallback
	if doc.Geometry != nil {
		var err error
		if g, err = doc.Geometry.build(); err != nil {
			return nil, fmt.Errorf("geometry: %v: %w", err, ErrCorruptState)
		}
	}
	s, err := New(g, opts...)
	if err != nil {
		return nil, err
	}
	if doc.ScaleConstant != nil {
		if err = s.SetScaleConstant(*doc.ScaleConstant); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrCorruptState)
		}
	}

	maxPeak := 0
	for i, ref := range doc.Reflections {
		key, err := migrateKey(ref.Key)
		if err != nil {
			return nil, fmt.Errorf("reflection %d: %v: %w", i, err, ErrCorruptState)
		}
		if _, dup := s.records[key]; dup {
			return nil, fmt.Errorf("reflection %v duplicated: %w", key, ErrCorruptState)
		}
		recs, err := migrateRecords(&ref.Records)
		if err != nil {
			return nil, fmt.Errorf("reflection %v: %v: %w", key, err, ErrCorruptState)
		}
		for _, rec := range recs {
			for j := range rec.Observations {
				rec.Observations[j].ApplyDefaults()
			}
			if err = rec.Validate(); err != nil {
				return nil, fmt.Errorf("reflection %v: %v: %w", key, err, ErrCorruptState)
			}
			if rec.PeakNumber > maxPeak {
				maxPeak = rec.PeakNumber
			}
		}
		s.records[key] = recs
	}

	s.nextPeak = doc.NextPeak
	if s.nextPeak <= maxPeak {
		s.nextPeak = maxPeak + 1
	}

	return s, nil
}

func migrateKey(k []int) (peak.Key, error) {
	var key peak.Key
	switch len(k) {
	case 3, 6:
		copy(key[:], k)

		return key, nil
	default:
		return key, fmt.Errorf("key of length %d", len(k))
	}
}

func migrateRecords(n *yaml.Node) ([]*peak.Record, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		var recs []*peak.Record
		if err := n.Decode(&recs); err != nil {
			return nil, err
		}
		for i, rec := range recs {
			if rec == nil {
				return nil, fmt.Errorf("record %d is empty", i)
			}
		}

		return recs, nil
	case yaml.MappingNode:
		rec := new(peak.Record)
		if err := n.Decode(rec); err != nil {
			return nil, err
		}

		return []*peak.Record{rec}, nil
	default:
		return nil, fmt.Errorf("records node kind %d", n.Kind)
	}
}

func (d *geometryDocument) build() (*crystal.Geometry, error) {
	g, err := crystal.NewGeometry(d.Lattice)
	if err != nil {
		return nil, err
	}
	if d.U != (crystal.Mat3{}) {
		g.U = d.U
	}
	g.Modulations = d.Modulations
	g.MaxOrder = d.MaxOrder
	g.CrossTerms = d.CrossTerms
	if g.Centering, err = crystal.ParseCentering(d.Centering); err != nil {
		return nil, err
	}
	for _, q := range g.Modulations {
		for _, v := range q {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("modulation vector %v", q)
			}
		}
	}

	return g, nil
}

// SaveFile writes the state to path through a temporary file in the same
// directory, replacing path only after a complete write.
func (s *Store) SaveFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err = s.Save(tmp); err != nil {
		tmp.Close()

		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// LoadFile reads a state file written by SaveFile.
func LoadFile(path string, fallback *crystal.Geometry, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, fallback, opts...)
}

package extinction

import (
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/xtalred/peak"
)

// StructureModel supplies ideal (extinction-free) intensities and the
// symmetry family of a reflection. It stands in for the crystal-structure
// and symmetry calculations done elsewhere.
type StructureModel interface {
	// Ideal returns F² for key, or false when unknown.
	Ideal(key peak.Key) (float64, bool)
	// Family returns a representative key shared by symmetry equivalents.
	Family(key peak.Key) peak.Key
}

// StructureTable is a StructureModel backed by a table.
type StructureTable struct {
	ideal  map[peak.Key]float64
	family map[peak.Key]peak.Key
}

// NewStructureTable returns an empty table.
func NewStructureTable() *StructureTable {
	return &StructureTable{ideal: make(map[peak.Key]float64), family: make(map[peak.Key]peak.Key)}
}

// Set records the ideal intensity and family of key.
func (t *StructureTable) Set(key peak.Key, ideal float64, family peak.Key) {
	t.ideal[key] = ideal
	t.family[key] = family
}

// Ideal implements StructureModel.
func (t *StructureTable) Ideal(key peak.Key) (float64, bool) {
	v, ok := t.ideal[key]

	return v, ok
}

// Family implements StructureModel. Keys without an entry are their own
// family.
func (t *StructureTable) Family(key peak.Key) peak.Key {
	if f, ok := t.family[key]; ok {
		return f
	}

	return key
}

// Len returns the number of entries.
func (t *StructureTable) Len() int { return len(t.ideal) }

type structureEntry struct {
	Key       []int   `yaml:"key"`
	Intensity float64 `yaml:"intensity"`
	Family    []int   `yaml:"family,omitempty"`
}

type structureDocument struct {
	Reflections []structureEntry `yaml:"reflections"`
}

// LoadStructureTable reads
//
//	reflections:
//	  - {key: [h, k, l], intensity: F², family: [h, k, l]}
//
// Keys have 3 or 6 indices; family defaults to the key.
func LoadStructureTable(r io.Reader) (*StructureTable, error) {
	var doc structureDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%v: %w", err, ErrBadStructure)
	}
	t := NewStructureTable()
	for i, e := range doc.Reflections {
		key, err := toKey(e.Key)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		family := key
		if e.Family != nil {
			if family, err = toKey(e.Family); err != nil {
				return nil, fmt.Errorf("entry %d family: %w", i, err)
			}
		}
		if math.IsNaN(e.Intensity) || math.IsInf(e.Intensity, 0) || e.Intensity < 0 {
			return nil, fmt.Errorf("entry %d intensity %g: %w", i, e.Intensity, ErrBadStructure)
		}
		t.Set(key, e.Intensity, family)
	}

	return t, nil
}

func toKey(v []int) (peak.Key, error) {
	var k peak.Key
	if len(v) != 3 && len(v) != 6 {
		return k, fmt.Errorf("key %v: %w", v, ErrBadStructure)
	}
	copy(k[:], v)

	return k, nil
}

package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/xtalred/cluster"
	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/peak"
)

// OmegaPeriod is the period of the omega angle for domain splitting:
// orientations 180° apart measure the same reflection.
const OmegaPeriod = 180.0

// Store maps reflection keys to their domain records.
type Store struct {
	geometry *crystal.Geometry
	opts     peak.MergeOptions
	nextPeak int
	records  map[peak.Key][]*peak.Record
}

// New returns an empty store over a copy of g.
func New(g *crystal.Geometry, opts ...Option) (*Store, error) {
	if g == nil {
		return nil, ErrNilGeometry
	}
	s := &Store{
		geometry: g.Clone(),
		opts:     peak.DefaultMergeOptions(),
		nextPeak: 1,
		records:  make(map[peak.Key][]*peak.Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Geometry returns a copy of the store's geometry.
func (s *Store) Geometry() *crystal.Geometry { return s.geometry.Clone() }

// MergeOptions returns the options used for reported intensities.
func (s *Store) MergeOptions() peak.MergeOptions { return s.opts }

// ScaleConstant returns the global intensity scale constant.
func (s *Store) ScaleConstant() float64 { return s.opts.ScaleConstant }

// NextPeakNumber returns the number the next new record will receive.
func (s *Store) NextPeakNumber() int { return s.nextPeak }

// Len returns the number of distinct keys.
func (s *Store) Len() int { return len(s.records) }

// Keys returns all keys in ascending order.
func (s *Store) Keys() []peak.Key {
	keys := make([]peak.Key, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	return keys
}

// Records returns the domains of key. The records are shared with the store.
func (s *Store) Records(key peak.Key) []*peak.Record {
	recs := s.records[key]
	out := make([]*peak.Record, len(recs))
	copy(out, recs)

	return out
}

// Each calls fn for every record in key order, domain by domain. It stops
// at the first error.
func (s *Store) Each(fn func(key peak.Key, domain int, rec *peak.Record) error) error {
	for _, k := range s.Keys() {
		for d, rec := range s.records[k] {
			if err := fn(k, d, rec); err != nil {
				return err
			}
		}
	}

	return nil
}

// Accumulate appends obs to the first domain of key, creating the record
// with a fresh peak number if needed. Observations failing the estimate
// gate (I > 0, σ > 0, I/σ > 1) are dropped and reported as not accepted.
// The record's Q is refreshed from the current geometry. When the
// observation carries no scattering angles they are derived from R·Q.
func (s *Store) Accumulate(key peak.Key, obs peak.Observation) (bool, error) {
	if !(obs.EstIntensity > 0) || !(obs.EstSigma > 0) || !(obs.EstIntensity/obs.EstSigma > 1) {
		return false, nil
	}
	Q, err := s.geometry.Q(key.HKL(), key.MNP())
	if err != nil {
		return false, fmt.Errorf("accumulate %v: %w", key, err)
	}

	obs.ApplyDefaults()
	if obs.TwoTheta == 0 && obs.Azimuth == 0 {
		obs.TwoTheta, obs.Azimuth = scatteringAngles(obs.Rotation().MulVec(Q))
	}

	recs, ok := s.records[key]
	if !ok {
		recs = []*peak.Record{s.newRecord()}
		s.records[key] = recs
	}
	recs[0].Q = Q
	recs[0].Observations = append(recs[0].Observations, obs)

	return true, nil
}

// scatteringAngles returns 2θ and the azimuth of a lab-frame Q with the
// beam along z.
func scatteringAngles(ql crystal.Vec3) (float64, float64) {
	n := ql.Norm()
	if n == 0 {
		return 0, 0
	}

	return 2 * math.Abs(math.Asin(ql[2]/n)), math.Atan2(ql[1], ql[0])
}

func (s *Store) newRecord() *peak.Record {
	rec := peak.NewRecord(s.nextPeak)
	s.nextPeak++

	return rec
}

func (s *Store) record(key peak.Key, domain int) (*peak.Record, error) {
	recs, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%v: %w", key, ErrUnknownKey)
	}
	if domain < 0 || domain >= len(recs) {
		return nil, fmt.Errorf("%v domain %d of %d: %w", key, domain, len(recs), ErrDomainOutOfRange)
	}

	return recs[domain], nil
}

// Merged returns the quality-gated merge of one domain of key.
func (s *Store) Merged(key peak.Key, domain int) (peak.Merged, error) {
	rec, err := s.record(key, domain)
	if err != nil {
		return peak.Merged{}, err
	}

	return rec.Merge(s.opts), nil
}

// Integrate stores an integration result on one domain of key.
func (s *Store) Integrate(key peak.Key, domain int, in peak.Integration) error {
	rec, err := s.record(key, domain)
	if err != nil {
		return err
	}
	if err = rec.Integrate(in); err != nil {
		return fmt.Errorf("integrate %v: %w", key, err)
	}

	return nil
}

// Split partitions every record by circular clustering of its omega
// angles (period 180°, tolerance eps) and returns the number of records
// added. The first group keeps the original peak number; later groups get
// fresh numbers. All groups inherit Q and shape.
func (s *Store) Split(eps float64) int {
	added := 0
	for _, k := range s.Keys() {
		var split []*peak.Record
		for _, rec := range s.records[k] {
			groups := cluster.Circular(rec.Omegas(), OmegaPeriod, eps)
			if len(groups) <= 1 {
				split = append(split, rec)
				continue
			}
			for i, g := range groups {
				sub, _ := rec.Subset(g)
				if i > 0 {
					sub.PeakNumber = s.nextPeak
					s.nextPeak++
					added++
				}
				split = append(split, sub)
			}
		}
		s.records[k] = split
	}

	return added
}

// WorkItem names one domain awaiting integration.
type WorkItem struct {
	Key         peak.Key `yaml:"key,flow"`
	Domain      int      `yaml:"domain"`
	DSpacing    float64  `yaml:"d_spacing"`
	Runs        []int    `yaml:"runs,flow"`
	PeakIndices []int    `yaml:"peak_indices,flow"`
}

// Worklist lists every domain with the runs and peak indices it spans,
// ordered by decreasing d-spacing, then key.
func (s *Store) Worklist() ([]WorkItem, error) {
	var items []WorkItem
	err := s.Each(func(k peak.Key, d int, rec *peak.Record) error {
		dsp, err := s.geometry.DSpacing(k.HKL(), k.MNP())
		if err != nil {
			return err
		}
		it := WorkItem{Key: k, Domain: d, DSpacing: dsp}
		for _, o := range rec.Observations {
			it.Runs = append(it.Runs, o.Run)
			it.PeakIndices = append(it.PeakIndices, o.PeakIndex)
		}
		items = append(items, it)

		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DSpacing > items[j].DSpacing })

	return items, nil
}

// Package hkl writes merged reflections in the fixed-width text format read
// by structure refinement programs.
package hkl

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/katalvlaran/xtalred/crystal"
	"github.com/katalvlaran/xtalred/peak"
	"github.com/katalvlaran/xtalred/store"
)

const (
	// Ceiling is the largest intensity written under adaptive scaling.
	Ceiling = 9999.99

	DefaultMinSignalNoise    = 3
	DefaultMinVolumeFraction = 0.7
)

// Options controls filtering and layout.
type Options struct {
	MinSignalNoise    float64
	MinVolumeFraction float64
	AdaptiveScale     bool           // rescale so the brightest row is Ceiling
	Modulations       []crystal.Vec3 // active modulation vectors; satellites when non-empty
}

// DefaultOptions returns I/σ > 3, volume fraction > 0.7, no rescale.
func DefaultOptions() Options {
	return Options{MinSignalNoise: DefaultMinSignalNoise, MinVolumeFraction: DefaultMinVolumeFraction}
}

// Row is one merged reflection.
type Row struct {
	Key            peak.Key
	Intensity      float64
	Sigma          float64
	VolumeFraction float64
	DSpacing       float64
}

// Rows returns one row per record whose quality-gated merge is defined
// with positive intensity and uncertainty, sorted by d-spacing descending.
func Rows(s *store.Store) ([]Row, error) {
	g := s.Geometry()
	opts := s.MergeOptions()
	var out []Row
	err := s.Each(func(k peak.Key, _ int, rec *peak.Record) error {
		m := rec.Merge(opts)
		if !m.Defined || !(m.Intensity > 0) || !(m.Sigma > 0) {
			return nil
		}
		d, err := g.DSpacing(k.HKL(), k.MNP())
		if err != nil {
			return fmt.Errorf("hkl %v: %w", k, err)
		}
		out = append(out, Row{Key: k, Intensity: m.Intensity, Sigma: m.Sigma, VolumeFraction: m.VolumeFraction, DSpacing: d})

		return nil
	})
	if err != nil {
		return nil, err
	}
	Sort(out)

	return out, nil
}

// Sort orders rows by d-spacing, largest first; ties keep key order.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DSpacing != rows[j].DSpacing {
			return rows[i].DSpacing > rows[j].DSpacing
		}

		return rows[i].Key.Less(rows[j].Key)
	})
}

// Scale returns Ceiling/max(I) over rows, or 1 when no intensity is
// positive.
func Scale(rows []Row) float64 {
	var top float64
	for _, r := range rows {
		if r.Intensity > top {
			top = r.Intensity
		}
	}
	if top <= 0 {
		return 1
	}

	return Ceiling / top
}

// Write writes the satellite header (when modulations are given) and one
// line per row passing the filters, in the given row order. It returns the
// number of reflections written.
func Write(w io.Writer, rows []Row, opts Options) (int, error) {
	scale := 1.0
	if opts.AdaptiveScale {
		scale = Scale(rows)
	}
	nmod := len(opts.Modulations)
	if nmod > 3 {
		nmod = 3
	}

	bw := bufio.NewWriter(w)
	if nmod > 0 {
		fmt.Fprintf(bw, "# Structural propagation vectors used\n")
		fmt.Fprintf(bw, "           %d\n", nmod)
		for i, q := range opts.Modulations[:nmod] {
			fmt.Fprintf(bw, "       %d%13.6f%13.6f%13.6f\n", i+1, q[0], q[1], q[2])
		}
	}

	written := 0
	for _, r := range rows {
		in, sig := r.Intensity*scale, r.Sigma*scale
		if !(in > 0) || !(sig > 0) || !(in/sig > opts.MinSignalNoise) || !(r.VolumeFraction > opts.MinVolumeFraction) {
			continue
		}
		fmt.Fprintf(bw, "%4d%4d%4d", r.Key[0], r.Key[1], r.Key[2])
		for i := 0; i < nmod; i++ {
			fmt.Fprintf(bw, "%4d", r.Key[3+i])
		}
		fmt.Fprintf(bw, "%8.2f%8.2f%8.4f\n", in, sig, r.DSpacing)
		written++
	}

	return written, bw.Flush()
}

package store

import "github.com/katalvlaran/xtalred/peak"

// Option configures a Store at construction.
type Option func(*Store)

// WithScaleConstant sets the global intensity scale constant. Non-positive
// values are ignored.
func WithScaleConstant(c float64) Option {
	return func(s *Store) {
		if c > 0 {
			s.opts.ScaleConstant = c
		}
	}
}

// WithMergeOptions replaces the merge options used by Merged and Reconcile.
// The scale constant is kept unless o carries a positive one.
func WithMergeOptions(o peak.MergeOptions) Option {
	return func(s *Store) {
		c := s.opts.ScaleConstant
		s.opts = o
		if !(o.ScaleConstant > 0) {
			s.opts.ScaleConstant = c
		}
	}
}

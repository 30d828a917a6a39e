package store

import "github.com/katalvlaran/xtalred/peak"

// Reconcile folds worker stores into s in argument order. Keys unknown to
// s are adopted whole. For known keys, domains are paired by index and a
// worker's record replaces the current one only if its merged intensity is
// strictly positive. Returns the number of records taken from workers.
//
// Peak numbers stay unique: a replacement keeps the number of the record
// it replaces, and an adopted record whose number is below NextPeakNumber
// is renumbered from it.
//
// Worker records are copied, so workers may be discarded afterwards.
func (s *Store) Reconcile(workers ...*Store) int {
	taken := 0
	for _, w := range workers {
		if w == nil {
			continue
		}
		for _, k := range w.Keys() {
			mine, ok := s.records[k]
			theirs := w.records[k]
			if !ok {
				adopted := make([]*peak.Record, len(theirs))
				for i, rec := range theirs {
					adopted[i] = rec.Clone()
					s.adoptPeak(adopted[i])
				}
				s.records[k] = adopted
				taken += len(adopted)
				continue
			}
			for i := 0; i < len(mine) && i < len(theirs); i++ {
				if theirs[i].Merge(s.opts).Intensity > 0 {
					n := mine[i].PeakNumber
					mine[i] = theirs[i].Clone()
					mine[i].PeakNumber = n
					taken++
				}
			}
		}
	}

	return taken
}

// adoptPeak gives rec a number not yet used in s.
func (s *Store) adoptPeak(rec *peak.Record) {
	if rec.PeakNumber < s.nextPeak {
		rec.PeakNumber = s.nextPeak
	}
	s.nextPeak = rec.PeakNumber + 1
}

package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultQuantile is the neighbour fraction used to estimate the
	// Lorentz-factor bandwidth.
	DefaultQuantile = 0.25

	maxShiftIterations = 300
	stopFactor         = 1e-3
)

// EstimateBandwidth returns the mean distance from each value to its k-th
// nearest neighbour, k = max(1, ⌊n·quantile⌋), counting the value itself as
// its first neighbour. A result of 0 means the values cannot be separated.
func EstimateBandwidth(x []float64, quantile float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	k := int(float64(n) * quantile)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	kth := make([]float64, n)
	dist := make([]float64, n)
	for i, xi := range x {
		for j, xj := range x {
			dist[j] = math.Abs(xi - xj)
		}
		sort.Float64s(dist)
		kth[i] = dist[k-1]
	}

	return stat.Mean(kth, nil)
}

// MeanShift labels x by flat-kernel mean shift with the given bandwidth.
//
// Stage 1 (Seed): values binned to multiples of the bandwidth; when every
// value lands in its own bin the values themselves are the seeds.
// Stage 2 (Shift): each seed moves to the mean of the values within one
// bandwidth until it moves less than 1e-3·bandwidth.
// Stage 3 (Prune): modes sorted by support (then position), descending;
// a mode within one bandwidth of a stronger one is dropped.
// Stage 4 (Label): each value takes the nearest surviving mode. Label 0 is
// the best-supported mode.
//
// A non-positive bandwidth puts every value in its own cluster.
func MeanShift(x []float64, bandwidth float64) []int {
	n := len(x)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	if !(bandwidth > 0) {
		for i := range labels {
			labels[i] = i
		}

		return labels
	}

	type mode struct {
		center  float64
		support int
	}
	seen := make(map[float64]int)
	var modes []mode
	for _, seed := range binSeeds(x, bandwidth) {
		center, support := shift(x, seed, bandwidth)
		if support == 0 {
			continue
		}
		if idx, ok := seen[center]; ok {
			modes[idx].support = support
			continue
		}
		seen[center] = len(modes)
		modes = append(modes, mode{center, support})
	}

	sort.SliceStable(modes, func(a, b int) bool {
		if modes[a].support != modes[b].support {
			return modes[a].support > modes[b].support
		}

		return modes[a].center > modes[b].center
	})

	var centers []float64
	suppressed := make([]bool, len(modes))
	for i, m := range modes {
		if suppressed[i] {
			continue
		}
		centers = append(centers, m.center)
		for j := i + 1; j < len(modes); j++ {
			if math.Abs(modes[j].center-m.center) <= bandwidth {
				suppressed[j] = true
			}
		}
	}

	for i, v := range x {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := math.Abs(v - center); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
	}

	return labels
}

// Groups converts labels into index groups ordered by label. Labels that
// no index carries are skipped.
func Groups(labels []int) [][]int {
	if len(labels) == 0 {
		return nil
	}
	byLabel := make(map[int][]int)
	keys := make([]int, 0)
	for i, l := range labels {
		if _, ok := byLabel[l]; !ok {
			keys = append(keys, l)
		}
		byLabel[l] = append(byLabel[l], i)
	}
	sort.Ints(keys)
	groups := make([][]int, 0, len(keys))
	for _, l := range keys {
		groups = append(groups, byLabel[l])
	}

	return groups
}

// binSeeds rounds values to the bandwidth grid and returns the distinct
// grid points, or the values themselves when binning does not reduce them.
func binSeeds(x []float64, bandwidth float64) []float64 {
	set := make(map[float64]struct{})
	for _, v := range x {
		set[math.Round(v/bandwidth)*bandwidth] = struct{}{}
	}
	if len(set) == len(x) {
		seeds := make([]float64, len(x))
		copy(seeds, x)

		return seeds
	}
	seeds := make([]float64, 0, len(set))
	for s := range set {
		seeds = append(seeds, s)
	}
	sort.Float64s(seeds)

	return seeds
}

// shift runs one seed to convergence and reports the final mode together
// with the number of values in its last window.
func shift(x []float64, seed, bandwidth float64) (float64, int) {
	stop := stopFactor * bandwidth
	center := seed
	window := make([]float64, 0, len(x))
	support := 0
	for iter := 0; ; iter++ {
		window = window[:0]
		for _, v := range x {
			if math.Abs(v-center) <= bandwidth {
				window = append(window, v)
			}
		}
		if len(window) == 0 {
			break
		}
		support = len(window)
		prev := center
		center = stat.Mean(window, nil)
		if floats.Distance([]float64{center}, []float64{prev}, 2) <= stop || iter+1 == maxShiftIterations {
			break
		}
	}

	return center, support
}

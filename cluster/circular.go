package cluster

import (
	"math"
	"sort"
)

// Circular partitions values on a circle of the given period. Sorted
// neighbours whose circular distance is at most eps share a group; when
// the first and last sorted values are also within eps the last group
// wraps onto the first.
//
// eps <= 0 yields one group per value. Groups are ordered by their first
// sorted value and hold indices in ascending order.
func Circular(values []float64, period, eps float64) [][]int {
	n := len(values)
	if n == 0 {
		return nil
	}
	if eps <= 0 || n == 1 {
		groups := make([][]int, n)
		for i := range groups {
			groups[i] = []int{i}
		}

		return groups
	}

	wrapped := make([]float64, n)
	order := make([]int, n)
	for i, v := range values {
		wrapped[i] = wrap(v, period)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return wrapped[order[a]] < wrapped[order[b]] })

	groups := [][]int{{order[0]}}
	for i := 1; i < n; i++ {
		if circularDistance(wrapped[order[i-1]], wrapped[order[i]], period) <= eps {
			last := len(groups) - 1
			groups[last] = append(groups[last], order[i])
		} else {
			groups = append(groups, []int{order[i]})
		}
	}

	if len(groups) > 1 && circularDistance(wrapped[order[0]], wrapped[order[n-1]], period) <= eps {
		last := len(groups) - 1
		groups[0] = append(groups[0], groups[last]...)
		groups = groups[:last]
	}
	for _, g := range groups {
		sort.Ints(g)
	}

	return groups
}

// wrap maps v into [0, period).
func wrap(v, period float64) float64 {
	if period <= 0 {
		return v
	}
	w := math.Mod(v, period)
	if w < 0 {
		w += period
	}

	return w
}

func circularDistance(a, b, period float64) float64 {
	d := math.Abs(a - b)
	if period <= 0 {
		return d
	}

	return math.Min(d, period-d)
}

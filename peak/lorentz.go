package peak

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/xtalred/cluster"
)

// ExtinctionScale returns 0.5·(x + √(4 + x²)) with x = c·L·I. It is 1 at
// x = 0 and grows monotonically with x.
func ExtinctionScale(c, lorentz, intensity float64) float64 {
	x := c * lorentz * intensity

	return 0.5 * (x + math.Sqrt(4+x*x))
}

// LorentzFactors returns the Lorentz factor of every observation.
func (r *Record) LorentzFactors(laue bool) []float64 {
	out := make([]float64, len(r.Observations))
	for i := range r.Observations {
		out[i] = r.Observations[i].LorentzFactor(laue)
	}

	return out
}

// LorentzClusters groups observations with similar Lorentz factor by mean
// shift. When the estimated bandwidth is zero every observation is its own
// group.
func (r *Record) LorentzClusters(laue bool) [][]int {
	L := r.LorentzFactors(laue)
	if len(L) == 0 {
		return nil
	}
	bw := cluster.EstimateBandwidth(L, cluster.DefaultQuantile)

	return cluster.Groups(cluster.MeanShift(L, bw))
}

// ExtinctionScales returns one extinction scale per observation. Within a
// Lorentz cluster all observations share the scale computed from the
// cluster's mean Lorentz factor and its extinction-free merged intensity
// (divided by the scale constant). A zero extinction constant or an
// unintegrated record gives all ones.
func (r *Record) ExtinctionScales(opts MergeOptions) []float64 {
	n := len(r.Observations)
	scales := make([]float64, n)
	for i := range scales {
		scales[i] = 1
	}
	if r.ExtConstant == 0 || !r.Integrated() {
		return scales
	}

	L := r.LorentzFactors(opts.Laue)
	plain := opts
	plain.Extinction = false
	for _, group := range r.LorentzClusters(opts.Laue) {
		m, err := r.MergeSubset(group, plain)
		if err != nil {
			continue
		}
		intensity := m.Intensity
		if opts.ScaleConstant != 0 {
			intensity /= opts.ScaleConstant
		}
		lg := make([]float64, len(group))
		for j, i := range group {
			lg[j] = L[i]
		}
		s := ExtinctionScale(r.ExtConstant, stat.Mean(lg, nil), intensity)
		for _, i := range group {
			scales[i] = s
		}
	}

	return scales
}

// ClusterPoint is the extinction-free intensity of one Lorentz cluster.
type ClusterPoint struct {
	Indices   []int
	Lorentz   float64
	Intensity float64
	Sigma     float64
	// Observation nearest the cluster's mean Lorentz factor; its angles
	// and path length describe the cluster.
	Representative int
}

// LorentzClusterPoints merges each Lorentz cluster without extinction and
// without the scale constant, as used for extinction fits.
func (r *Record) LorentzClusterPoints(opts MergeOptions) []ClusterPoint {
	if !r.Integrated() {
		return nil
	}
	L := r.LorentzFactors(opts.Laue)
	plain := opts
	plain.Extinction = false
	var out []ClusterPoint
	for _, group := range r.LorentzClusters(opts.Laue) {
		m, err := r.MergeSubset(group, plain)
		if err != nil || !m.Defined {
			continue
		}
		lg := make([]float64, len(group))
		for j, i := range group {
			lg[j] = L[i]
		}
		mean := stat.Mean(lg, nil)
		rep, best := group[0], math.Inf(1)
		for _, i := range group {
			if d := math.Abs(L[i] - mean); d < best {
				rep, best = i, d
			}
		}
		cp := ClusterPoint{Indices: group, Lorentz: mean, Intensity: m.Intensity, Sigma: m.Sigma, Representative: rep}
		if opts.ScaleConstant != 0 {
			cp.Intensity /= opts.ScaleConstant
			cp.Sigma /= opts.ScaleConstant
		}
		out = append(out, cp)
	}

	return out
}

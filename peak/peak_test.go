package peak_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/xtalred/peak"
)

var nan = math.NaN()

// scenarioRecord builds the single-observation record used by several tests:
// peak [10,10,NaN]/[2,2,0], background [1,1,1]/[1,1,1], unit bins.
func scenarioRecord() *peak.Record {
	r := peak.NewRecord(1)
	r.BinSize = [3]float64{1, 1, 1}
	r.Observations = []peak.Observation{{
		Wavelength: 1, TwoTheta: math.Pi / 2, DataScale: 1, NormScale: 1,
		Voxels: &peak.Voxels{
			PeakData: []float64{10, 10, nan},
			PeakNorm: []float64{2, 2, 0},
			BkgData:  []float64{1, 1, 1},
			BkgNorm:  []float64{1, 1, 1},
		},
	}}

	return r
}

func obs(omega, wavelength float64, pk, pn, bd, bn []float64) peak.Observation {
	return peak.Observation{
		Omega: omega, Wavelength: wavelength, TwoTheta: math.Pi,
		DataScale: 1, NormScale: 1,
		Voxels: &peak.Voxels{PeakData: pk, PeakNorm: pn, BkgData: bd, BkgNorm: bn},
	}
}

// TestKey verifies accessors and formatting.
func TestKey(t *testing.T) {
	k := peak.NewKey([3]int{1, -2, 3}, [3]int{0, 0, 0})
	assert.Equal(t, [3]int{1, -2, 3}, k.HKL())
	assert.False(t, k.IsSatellite())
	assert.Equal(t, "(1,-2,3)", k.String())

	s := peak.Key{1, 0, 0, 1, 0, 0}
	assert.True(t, s.IsSatellite())
	assert.Equal(t, "(1,0,0,1,0,0)", s.String())
	assert.True(t, k.Less(s))
}

// TestMerge_Scenario verifies I = (10/2+10/2) − 1.5·3 = 5.5.
func TestMerge_Scenario(t *testing.T) {
	r := scenarioRecord()
	opts := peak.MergeOptions{ScaleConstant: 1, VolumeRatio: 1.5, MinVolumeFraction: 0.5}

	m := r.Merge(opts)
	require.True(t, m.Defined)
	assert.InDelta(t, 5.5, m.Intensity, 1e-12)
	assert.InDelta(t, math.Sqrt(30+2.25*6), m.Sigma, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.VolumeFraction, 1e-12)
	assert.Equal(t, 1.5, m.VolumeRatio)
	assert.Equal(t, 1, m.Observations)
}

// TestMerge_MeasuredVolumeRatio uses jointly defined voxel counts 2/3.
func TestMerge_MeasuredVolumeRatio(t *testing.T) {
	r := scenarioRecord()
	m := r.MergeAll(peak.MergeOptions{ScaleConstant: 1})
	assert.InDelta(t, 2.0/3.0, m.VolumeRatio, 1e-12)
	assert.InDelta(t, 8.0, m.Intensity, 1e-12)

	per := r.ObservationIntensities(peak.MergeOptions{ScaleConstant: 1})
	require.Len(t, per, 1)
	assert.InDelta(t, 8.0, per[0].Intensity, 1e-12)
	assert.InDelta(t, 2.0/3.0, per[0].VolumeFraction, 1e-12)
}

// TestObservationIntensities_MixedLengths verifies each observation is
// evaluated on its own even when voxel lengths differ between them.
func TestObservationIntensities_MixedLengths(t *testing.T) {
	r := peak.NewRecord(1)
	r.BinSize = [3]float64{1, 1, 1}
	r.Observations = []peak.Observation{
		obs(0, 1, []float64{10, 10}, []float64{2, 2}, []float64{1, 1}, []float64{1, 1}),
		obs(5, 1, []float64{6}, []float64{2}, []float64{1}, []float64{1}),
	}

	per := r.ObservationIntensities(peak.MergeOptions{ScaleConstant: 1})
	require.Len(t, per, 2)
	assert.InDelta(t, 8.0, per[0].Intensity, 1e-12)
	assert.InDelta(t, 2.0, per[1].Intensity, 1e-12)
}

// TestMerge_Constant verifies the scale constant and bin volume multiply I and σ.
func TestMerge_Constant(t *testing.T) {
	r := scenarioRecord()
	base := r.Merge(peak.MergeOptions{ScaleConstant: 1, VolumeRatio: 1.5})
	r.BinSize = [3]float64{0.5, 2, 3}
	scaled := r.Merge(peak.MergeOptions{ScaleConstant: 10, VolumeRatio: 1.5})
	assert.InDelta(t, 30*base.Intensity, scaled.Intensity, 1e-9)
	assert.InDelta(t, 30*base.Sigma, scaled.Sigma, 1e-9)
}

// TestMerge_EmptySubset verifies empty and unintegrated merges are all zero.
func TestMerge_EmptySubset(t *testing.T) {
	r := scenarioRecord()
	m, err := r.MergeSubset(nil, peak.DefaultMergeOptions())
	require.NoError(t, err)
	assert.Equal(t, peak.Merged{}, m)

	bare := peak.NewRecord(2)
	bare.Observations = []peak.Observation{{Omega: 3}}
	assert.Equal(t, peak.Merged{}, bare.MergeAll(peak.DefaultMergeOptions()))
	assert.Nil(t, bare.ObservationIntensities(peak.DefaultMergeOptions()))

	_, err = r.MergeSubset([]int{3}, peak.DefaultMergeOptions())
	assert.ErrorIs(t, err, peak.ErrIndexOutOfRange)
}

// TestMerge_QualityGate drops observations with volume fraction <= 0.5.
func TestMerge_QualityGate(t *testing.T) {
	r := peak.NewRecord(1)
	r.BinSize = [3]float64{1, 1, 1}
	ones := []float64{1, 1, 1, 1}
	r.Observations = []peak.Observation{
		obs(0, 1, []float64{4, 4, 4, 4}, []float64{1, 1, 1, 1}, ones, ones),
		obs(1, 1, []float64{100, nan, nan, nan}, []float64{1, nan, 0, 0}, ones, ones),
	}
	opts := peak.MergeOptions{ScaleConstant: 1, MinVolumeFraction: 0.5}

	assert.Equal(t, []int{0}, r.GoodObservations(0.5))
	m := r.Merge(opts)
	assert.Equal(t, 1, m.Observations)
	assert.InDelta(t, 16-4, m.Intensity, 1e-12)

	all := r.MergeAll(opts)
	assert.Equal(t, 2, all.Observations)
}

// TestMerge_UndefinedBackground verifies the fallback when no background voxel is usable.
func TestMerge_UndefinedBackground(t *testing.T) {
	r := peak.NewRecord(1)
	r.BinSize = [3]float64{1, 1, 1}
	r.Observations = []peak.Observation{
		obs(0, 1, []float64{4, 4}, []float64{1, 1}, []float64{nan, nan}, []float64{1, 1}),
	}

	m := r.MergeAll(peak.MergeOptions{ScaleConstant: 1})
	assert.False(t, m.Defined)
	assert.Zero(t, m.Intensity)
	assert.Zero(t, m.Sigma)
	assert.Equal(t, 1.0, m.VolumeFraction)

	m = r.MergeAll(peak.MergeOptions{ScaleConstant: 1, VolumeRatio: 1})
	assert.True(t, m.Defined)
	assert.InDelta(t, 8.0, m.Intensity, 1e-12)
}

// TestMerge_Scales verifies data scales multiply and norm scales divide.
func TestMerge_Scales(t *testing.T) {
	r := scenarioRecord()
	opts := peak.MergeOptions{ScaleConstant: 1, VolumeRatio: 1.5}
	base := r.MergeAll(opts)

	r.Observations[0].DataScale = 2
	assert.InDelta(t, 2*base.Intensity, r.MergeAll(opts).Intensity, 1e-12)

	r.Observations[0].DataScale = 1
	r.Observations[0].NormScale = 2
	assert.InDelta(t, base.Intensity/2, r.MergeAll(opts).Intensity, 1e-12)
}

// TestPartial_Associative verifies merge({0,1}) ⊕ merge({2}) = merge({0,1,2}).
func TestPartial_Associative(t *testing.T) {
	r := peak.NewRecord(1)
	r.BinSize = [3]float64{0.1, 0.1, 0.1}
	r.Observations = []peak.Observation{
		obs(0, 1, []float64{3, 5, nan}, []float64{1, 2, 1}, []float64{0.5, 0.2}, []float64{1, 1}),
		obs(1, 1, []float64{2, nan, 7}, []float64{1, 1, 0}, []float64{0.1, nan}, []float64{1, 1}),
		obs(2, 1, []float64{6, 1, 1}, []float64{2, 2, 2}, []float64{0.3, 0.4}, []float64{2, 1}),
	}
	r.Observations[2].DataScale = 1.3
	r.Observations[1].NormScale = 0.8
	opts := peak.MergeOptions{ScaleConstant: 100}
	c := r.Constant(opts.ScaleConstant)

	p01, err := r.Partial([]int{0, 1}, opts)
	require.NoError(t, err)
	p2, err := r.Partial([]int{2}, opts)
	require.NoError(t, err)
	combined, err := p01.Combine(p2)
	require.NoError(t, err)
	reversed, err := p2.Combine(p01)
	require.NoError(t, err)

	direct := r.MergeAll(opts)
	for _, got := range []peak.Merged{combined.Result(c, 0), reversed.Result(c, 0)} {
		assert.InDelta(t, direct.Intensity, got.Intensity, 1e-9)
		assert.InDelta(t, direct.Sigma, got.Sigma, 1e-9)
		assert.InDelta(t, direct.VolumeFraction, got.VolumeFraction, 1e-12)
		assert.InDelta(t, direct.VolumeRatio, got.VolumeRatio, 1e-12)
		assert.Equal(t, 3, got.Observations)
	}

	empty, err := peak.Partial{}.Combine(p2)
	require.NoError(t, err)
	assert.Equal(t, p2.Result(c, 0), empty.Result(c, 0))
}

// TestExtinctionScale verifies s(0) = 1 and monotonic growth.
func TestExtinctionScale(t *testing.T) {
	assert.Equal(t, 1.0, peak.ExtinctionScale(0, 3, 5))
	assert.Equal(t, 1.0, peak.ExtinctionScale(2, 0, 5))
	prev := 0.0
	for x := 0.0; x < 50; x += 0.25 {
		s := peak.ExtinctionScale(x, 1, 1)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
	// s·(s − x) = 1
	s := peak.ExtinctionScale(0.5, 2, 3)
	assert.InDelta(t, 1.0, s*(s-3), 1e-12)
}

// TestLorentzFactor checks both flavours.
func TestLorentzFactor(t *testing.T) {
	o := peak.Observation{Wavelength: 2, TwoTheta: math.Pi / 2}
	assert.InDelta(t, 32.0, o.LorentzFactor(true), 1e-12)
	assert.InDelta(t, 8.0, o.LorentzFactor(false), 1e-12)
}

// TestLorentzClusters verifies the zero-bandwidth fallback and grouping of
// identical factors.
func TestLorentzClusters(t *testing.T) {
	ones := []float64{1}
	r := peak.NewRecord(1)
	for i := 0; i < 3; i++ {
		r.Observations = append(r.Observations, obs(0, 1, ones, ones, ones, ones))
	}
	assert.Equal(t, [][]int{{0}, {1}, {2}}, r.LorentzClusters(true))

	r.Observations = nil
	for _, wl := range []float64{1, 1, 1, 1.2, 2, 2, 2, 2.1} {
		r.Observations = append(r.Observations, obs(0, wl, ones, ones, ones, ones))
	}
	groups := r.LorentzClusters(true)
	var all []int
	for _, g := range groups {
		all = append(all, g...)
		if contains(g, 0) {
			assert.True(t, contains(g, 1) && contains(g, 2))
			assert.False(t, contains(g, 4))
		}
	}
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, all)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}

	return false
}

// TestExtinctionScales verifies scales are one without a constant and
// raise the merged intensity with one.
func TestExtinctionScales(t *testing.T) {
	r := peak.NewRecord(1)
	r.BinSize = [3]float64{1, 1, 1}
	zero := []float64{0, 0}
	for i := 0; i < 2; i++ {
		r.Observations = append(r.Observations,
			obs(float64(i), 1, []float64{50, 50}, []float64{1, 1}, zero, []float64{1, 1}))
	}
	opts := peak.MergeOptions{ScaleConstant: 10, Laue: true}
	assert.Equal(t, []float64{1, 1}, r.ExtinctionScales(opts))

	plain := r.MergeAll(opts)
	r.ExtConstant = 0.1
	scales := r.ExtinctionScales(opts)
	want := peak.ExtinctionScale(0.1, 1, 1000.0/10)
	assert.InDelta(t, want, scales[0], 1e-12)
	assert.InDelta(t, want, scales[1], 1e-12)

	opts.Extinction = true
	corrected := r.MergeAll(opts)
	assert.InDelta(t, want*plain.Intensity, corrected.Intensity, 1e-9)

	pts := r.LorentzClusterPoints(opts)
	require.Len(t, pts, 2)
	assert.InDelta(t, 100.0, pts[0].Intensity, 1e-12)
	assert.InDelta(t, 1.0, pts[0].Lorentz, 1e-12)
}

// TestRecord_IntegrateAndSubset exercises integration bookkeeping.
func TestRecord_IntegrateAndSubset(t *testing.T) {
	r := peak.NewRecord(7)
	r.Observations = []peak.Observation{{Omega: 1, DataScale: 3, NormScale: 1}, {Omega: 2, DataScale: 1, NormScale: 1}}
	assert.False(t, r.Integrated())

	err := r.Integrate(peak.Integration{Voxels: make([]peak.Voxels, 1)})
	assert.ErrorIs(t, err, peak.ErrVoxelCount)

	bad := []peak.Voxels{
		{PeakData: []float64{1}, PeakNorm: []float64{1}},
		{PeakData: []float64{1, 2}, PeakNorm: []float64{1, 2}},
	}
	assert.ErrorIs(t, r.Integrate(peak.Integration{Voxels: bad}), peak.ErrVoxelLength)
	assert.False(t, r.Integrated())

	good := []peak.Voxels{
		{PeakData: []float64{1}, PeakNorm: []float64{1}, BkgData: []float64{0}, BkgNorm: []float64{1}},
		{PeakData: []float64{2}, PeakNorm: []float64{1}, BkgData: []float64{0}, BkgNorm: []float64{1}},
	}
	require.NoError(t, r.Integrate(peak.Integration{BinSize: [3]float64{1, 1, 1}, Voxels: good}))
	assert.True(t, r.Integrated())
	assert.Equal(t, 1.0, r.Observations[0].DataScale)
	require.NoError(t, r.Validate())

	sub, err := r.Subset([]int{1})
	require.NoError(t, err)
	assert.Equal(t, 7, sub.PeakNumber)
	assert.Equal(t, []float64{2}, sub.Omegas())
	sub.Observations[0].Voxels.PeakData[0] = 99
	assert.Equal(t, 2.0, r.Observations[1].Voxels.PeakData[0])

	r.Observations[0].NormScale = 0
	assert.ErrorIs(t, r.Validate(), peak.ErrBadScale)
}

// TestRecord_Summarize verifies rounding and the per-observation columns.
func TestRecord_Summarize(t *testing.T) {
	r := scenarioRecord()
	r.PeakNumber = 7
	r.Observations[0].Run, r.Observations[0].Bank = 3, 5
	r.Observations[0].Omega = 12.3456
	opts := peak.MergeOptions{ScaleConstant: 1, VolumeRatio: 1.5, MinVolumeFraction: 0.5}

	s := r.Summarize(opts)
	assert.Equal(t, 7, s.PeakNumber)
	assert.Equal(t, 5.5, s.MergedIntensity)
	assert.Equal(t, 6.6, s.MergedSigma)
	assert.Equal(t, 0.67, s.MergedVolFract)
	assert.Equal(t, []int{3}, s.Runs)
	assert.Equal(t, []int{5}, s.Banks)
	assert.Equal(t, []float64{90}, s.ScatteringAngles)
	assert.Equal(t, []float64{12.35}, s.Omegas)
	require.Len(t, s.Intensities, 1)
	assert.InDelta(t, 5.5, s.Intensities[0], 1e-9)
}

package crystal_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/katalvlaran/xtalred/crystal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBMatrix_Cubic verifies B = I/a for a cubic cell.
func TestBMatrix_Cubic(t *testing.T) {
	B, err := crystal.Lattice{A: 4, B: 4, C: 4, Alpha: 90, Beta: 90, Gamma: 90}.BMatrix()
	require.NoError(t, err)
	assert.True(t, B.Equal(crystal.Mat3{{0.25, 0, 0}, {0, 0.25, 0}, {0, 0, 0.25}}, 1e-14), "got %v", B)
}

// TestBMatrix_UpperTriangularAndMetric verifies BᵀB reproduces G⁻¹ for a
// triclinic cell and that B is upper triangular.
func TestBMatrix_UpperTriangularAndMetric(t *testing.T) {
	l := crystal.Lattice{A: 5.1, B: 6.3, C: 7.7, Alpha: 81, Beta: 97, Gamma: 104}
	B, err := l.BMatrix()
	require.NoError(t, err)
	assert.Equal(t, 0.0, B[1][0])
	assert.Equal(t, 0.0, B[2][0])
	assert.Equal(t, 0.0, B[2][1])

	gstar := B.T().Mul(B)
	G, err := gstar.Inverse()
	require.NoError(t, err)
	assert.True(t, G.Equal(l.Metric(), 1e-10))
}

// TestDSpacing_Hexagonal checks d(100) = a·√3/2 for a hexagonal cell.
func TestDSpacing_Hexagonal(t *testing.T) {
	l := crystal.Lattice{A: 3, B: 3, C: 5, Alpha: 90, Beta: 90, Gamma: 120}
	d, err := l.DSpacing(crystal.Vec3{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 3*math.Sqrt(3)/2, d, 1e-12)

	d, err = l.DSpacing(crystal.Vec3{0, 0, 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, d, 1e-12)
}

// TestLattice_Validate rejects impossible cells.
func TestLattice_Validate(t *testing.T) {
	bad := []crystal.Lattice{
		{A: 0, B: 1, C: 1, Alpha: 90, Beta: 90, Gamma: 90},
		{A: 1, B: 1, C: 1, Alpha: 180, Beta: 90, Gamma: 90},
		{A: 1, B: 1, C: 1, Alpha: 10, Beta: 10, Gamma: 170},
	}
	for _, l := range bad {
		assert.ErrorIs(t, l.Validate(), crystal.ErrInvalidLattice, "%+v", l)
	}
}

// TestDetectSystem walks the detection order.
func TestDetectSystem(t *testing.T) {
	cases := []struct {
		l    crystal.Lattice
		want crystal.System
	}{
		{crystal.Lattice{A: 4, B: 4, C: 4, Alpha: 90, Beta: 90, Gamma: 90}, crystal.Cubic},
		{crystal.Lattice{A: 4, B: 4, C: 4, Alpha: 70, Beta: 70, Gamma: 70}, crystal.Rhombohedral},
		{crystal.Lattice{A: 4, B: 4, C: 6, Alpha: 90, Beta: 90, Gamma: 90}, crystal.Tetragonal},
		{crystal.Lattice{A: 4, B: 4, C: 6, Alpha: 90, Beta: 90, Gamma: 120}, crystal.Hexagonal},
		{crystal.Lattice{A: 4, B: 5, C: 6, Alpha: 90, Beta: 90, Gamma: 90}, crystal.Orthorhombic},
		{crystal.Lattice{A: 4, B: 5, C: 6, Alpha: 90, Beta: 90, Gamma: 100}, crystal.MonoclinicGamma},
		{crystal.Lattice{A: 4, B: 5, C: 6, Alpha: 90, Beta: 100, Gamma: 90}, crystal.MonoclinicBeta},
		{crystal.Lattice{A: 4, B: 5, C: 6, Alpha: 80, Beta: 100, Gamma: 95}, crystal.Triclinic},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, crystal.DetectSystem(tc.l), tc.want.String())
	}
}

// TestLatticeFromUB_RoundTrip rebuilds lattice and U from a UB matrix.
func TestLatticeFromUB_RoundTrip(t *testing.T) {
	l := crystal.Lattice{A: 5.1, B: 6.3, C: 7.7, Alpha: 81, Beta: 97, Gamma: 104}
	g, err := crystal.NewGeometry(l)
	require.NoError(t, err)
	g.U = crystal.AxisAngle(0.7, 1.1, 0.4)
	ub, err := g.UB()
	require.NoError(t, err)

	back, err := crystal.NewGeometryFromUB(ub)
	require.NoError(t, err)
	assert.InDelta(t, l.A, back.Lattice.A, 1e-10)
	assert.InDelta(t, l.Gamma, back.Lattice.Gamma, 1e-8)
	assert.True(t, back.U.Equal(g.U, 1e-10))
}

// TestAxisAngle_RoundTrip decomposes a generic rotation.
func TestAxisAngle_RoundTrip(t *testing.T) {
	U := crystal.AxisAngle(0.8, 1.2, 2.0)
	phi, theta, omega := crystal.AxisAngleFrom(U)
	assert.InDelta(t, 0.8, phi, 1e-10)
	assert.InDelta(t, 1.2, theta, 1e-10)
	assert.InDelta(t, 2.0, omega, 1e-10)

	// orthogonality
	assert.True(t, U.Mul(U.T()).Equal(crystal.Identity3(), 1e-12))
}

// TestAxisAngleFrom_Degenerate covers identity and half-turn inputs.
func TestAxisAngleFrom_Degenerate(t *testing.T) {
	_, _, omega := crystal.AxisAngleFrom(crystal.Identity3())
	assert.Equal(t, crystal.MinSeedAngle, omega)

	half := crystal.AxisAngle(0.3, 1.0, math.Pi)
	phi, theta, omega := crystal.AxisAngleFrom(half)
	assert.InDelta(t, math.Pi, omega, 1e-6)
	assert.True(t, crystal.AxisAngle(phi, theta, omega).Equal(half, 1e-6))
}

// TestGoniometer_Composition checks R = Ry(ω)·Rz(χ)·Ry(φ) for pure omega.
func TestGoniometer_Composition(t *testing.T) {
	R := crystal.Goniometer(0, 0, 30)
	assert.True(t, R.Equal(crystal.RotY(30), 1e-15))
	assert.InDelta(t, 30.0, crystal.RotationAngle(R), 1e-10)
}

// TestGeometry_QAndSatellites verifies the Q-vector includes the modulation offset.
func TestGeometry_QAndSatellites(t *testing.T) {
	g, err := crystal.NewGeometry(crystal.Lattice{A: 2 * math.Pi, B: 2 * math.Pi, C: 2 * math.Pi, Alpha: 90, Beta: 90, Gamma: 90})
	require.NoError(t, err)
	g.Modulations[0] = crystal.Vec3{0, 0, 0.5}

	Q, err := g.Q([3]int{1, 0, 0}, [3]int{1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, Q[0], 1e-12)
	assert.InDelta(t, 0.5, Q[2], 1e-12)
	assert.Len(t, g.ActiveModulations(), 1)

	d, err := g.DSpacing([3]int{0, 0, 0}, [3]int{2, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi, d, 1e-12)
}

// TestCentering_Allowed exercises the reflection conditions.
func TestCentering_Allowed(t *testing.T) {
	assert.True(t, crystal.BodyCentered.Allowed([3]int{1, 1, 0}))
	assert.False(t, crystal.BodyCentered.Allowed([3]int{1, 0, 0}))
	assert.True(t, crystal.FaceCentered.Allowed([3]int{1, 1, 1}))
	assert.False(t, crystal.FaceCentered.Allowed([3]int{1, 1, 0}))
	assert.True(t, crystal.RhombohedralObverse.Allowed([3]int{1, 0, 1}))
	assert.False(t, crystal.RhombohedralObverse.Allowed([3]int{1, 0, 0}))
	assert.True(t, crystal.RhombohedralReverse.Allowed([3]int{-1, 0, 1}))
	assert.True(t, crystal.Primitive.Allowed([3]int{1, 2, 3}))

	c, err := crystal.ParseCentering("F")
	require.NoError(t, err)
	assert.Equal(t, crystal.FaceCentered, c)
	_, err = crystal.ParseCentering("Q")
	assert.ErrorIs(t, err, crystal.ErrUnknownCentering)
}

// TestSatellites enumerates with and without cross terms.
func TestSatellites(t *testing.T) {
	assert.Equal(t, [][3]int{{0, 0, 0}}, crystal.Satellites(0, 2, false))

	plain := crystal.Satellites(2, 1, false)
	assert.Equal(t, [][3]int{{0, 0, 0}, {-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}}, plain)

	cross := crystal.Satellites(2, 1, true)
	assert.Len(t, cross, 9)
	assert.Contains(t, cross, [3]int{1, -1, 0})
}

// TestISAW_RoundTrip writes and re-reads a UB matrix.
func TestISAW_RoundTrip(t *testing.T) {
	g, err := crystal.NewGeometry(crystal.Lattice{A: 5, B: 6, C: 7, Alpha: 90, Beta: 95, Gamma: 90})
	require.NoError(t, err)
	g.U = crystal.AxisAngle(1.0, 0.5, 0.3)
	ub, err := g.UB()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, crystal.WriteISAW(&buf, ub))
	assert.Equal(t, 5, bytes.Count(buf.Bytes(), []byte("\n")))

	back, err := crystal.ReadISAW(&buf)
	require.NoError(t, err)
	assert.True(t, back.Equal(ub, 1e-8))

	_, err = crystal.ReadISAW(bytes.NewBufferString("1 2 3\n4 5\n"))
	assert.ErrorIs(t, err, crystal.ErrBadUBFile)
}

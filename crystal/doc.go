// Package crystal models the frame in which reflections live: lattice
// constants, the metric (B) and orientation (U) matrices, modulation
// vectors for satellite reflections, centering conditions and the ISAW UB
// file format.
//
// Conventions:
//
//	Q = 2π · U · B · (h + Δh, k + Δk, l + Δl)
//	Δ = m·q₁ + n·q₂ + p·q₃
//	BᵀB = G* (reciprocal metric), B upper triangular
//	d   = 1 / |B · hkl|
//
// Lattice lengths are in Å, lattice angles in degrees; orientation angles of
// the axis-angle parameterisation are in radians.
package crystal

// Package calibrate refines lattice constants and the orientation matrix
// against measured Q-vectors.
//
// The crystal system of the starting lattice fixes which cell constants are
// free (cubic: a; hexagonal: a, c; triclinic: all six). Three axis-angle
// orientation angles (φ, θ, ω) are appended, and the stacked residual
//
//	2π·U(φ,θ,ω)·B(cell)·(hkl + Δ) − Q
//
// over every selected reflection is minimised with bounded
// Levenberg–Marquardt: cell constants within ±10% of the start, φ and ω in
// [0, 2π], θ in [0, π].
package calibrate

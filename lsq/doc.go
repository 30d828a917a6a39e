// Package lsq implements bounded nonlinear least squares with the
// Levenberg–Marquardt method.
//
// 🚀 What does it solve?
//
//	minimise ½·Σ rᵢ(x)²   subject to  lower ≤ x ≤ upper
//
// where r is a caller-supplied residual function. It backs both the
// extinction-model fits and the unit-cell / orientation refinement.
//
// ✨ Key features:
//   - forward-difference Jacobian (backward at the upper bound)
//   - Marquardt scaling: (JᵀJ + μ·diag(JᵀJ))·δ = −Jᵀr
//   - bounds enforced by projection of every trial point
//   - conditioning check on the starting Jacobian (ErrSingularJacobian)
//   - convergence on relative cost change, step size or gradient norm
//
// ⚙️ Usage:
//
//	res, err := lsq.Minimize(lsq.Problem{
//		Residuals: f, M: len(data),
//		X0: x0, Lower: lo, Upper: hi,
//	}, lsq.DefaultSettings())
package lsq

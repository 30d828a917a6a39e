// Package matrix provides the small dense linear-algebra kernel used by the
// reduction engine: row-major Dense storage, products, transposition,
// Doolittle LU, inversion, linear solves, Cholesky factorisation and the
// Jacobi eigen-solver for symmetric matrices.
//
// 🚀 Where is it used?
//
//	• crystal/   : reciprocal metric inversion and the Cholesky-based B matrix
//	• lsq/       : normal-equation solves and Jacobian conditioning checks
//
// ✨ Key properties:
//   - deterministic loop orders, no hidden goroutines
//   - fail-fast validation with package sentinels (errors.Is friendly)
//   - fast path on *Dense, generic fallback through the Matrix interface
//
// ⚙️ Usage:
//
//	g, _ := matrix.NewDenseFrom(3, 3, []float64{...})
//	inv, err := matrix.Inverse(g)
//	l, err := matrix.Cholesky(inv)
//
// Complexity:
//
//   - Mul:      O(n·m·p)
//   - LU/Solve: O(n³)
//   - Eigen:    O(n³) per sweep
package matrix

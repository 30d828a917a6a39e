// SPDX-License-Identifier: MIT
// Package matrix: linear-algebra kernels.
//
// Purpose:
//   - Products, transposition and matrix-vector multiplication.
//   - Doolittle LU, inversion and linear solves (non-pivoting, deterministic).
//   - Cholesky factorisation and the Jacobi eigen-solver for symmetric input.
//
// Notes:
//   - Every kernel validates first, runs on the flat *Dense layout and wraps
//     failures with matrixErrorf(op, err).

package matrix

import (
	"fmt"
	"math"
)

// ZeroSum is the initial sum value for forward/backward substitution and similar.
const ZeroSum = 0.0

// ZeroPivot is the sentinel for detecting a zero pivot in LU/Inverse routines.
const ZeroPivot = 0.0

// Operation name constants for unified error wrapping.
const (
	opMul       = "Mul"
	opTranspose = "Transpose"
	opMatVec    = "MatVec"
	opLU        = "LU"
	opInverse   = "Inverse"
	opSolve     = "Solve"
	opCholesky  = "Cholesky"
	opEigen     = "Eigen"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// prepare validates that m is non-nil and returns its flat view.
func prepare(tag string, m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(tag, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(tag, err)
	}

	return d, nil
}

// prepareSquare is prepare plus a square-shape check.
func prepareSquare(tag string, m Matrix) (*Dense, error) {
	d, err := prepare(tag, m)
	if err != nil {
		return nil, err
	}
	if err = ValidateSquare(d); err != nil {
		return nil, matrixErrorf(tag, err)
	}

	return d, nil
}

// Mul returns the matrix product a×b.
//
// Implementation:
//   - Stage 1: validate non-nil operands and a.Cols == b.Rows.
//   - Stage 2: i→k→j loop order so the inner loop walks both rows contiguously.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch.
// Complexity: O(n·m·p) time, O(n·p) space.
func Mul(a, b Matrix) (*Dense, error) {
	ad, err := prepare(opMul, a)
	if err != nil {
		return nil, err
	}
	bd, err := prepare(opMul, b)
	if err != nil {
		return nil, err
	}
	if ad.c != bd.r {
		return nil, matrixErrorf(opMul, ErrDimensionMismatch)
	}

	out, err := NewDense(ad.r, bd.c)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var (
		i, j, k int
		aik     float64
	)
	for i = 0; i < ad.r; i++ {
		for k = 0; k < ad.c; k++ {
			aik = ad.data[i*ad.c+k]
			if aik == 0 {
				continue // sparse rows are common in metric tensors
			}
			for j = 0; j < bd.c; j++ {
				out.data[i*bd.c+j] += aik * bd.data[k*bd.c+j]
			}
		}
	}

	return out, nil
}

// Transpose returns mᵀ as a new Dense.
// Complexity: O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	d, err := prepare(opTranspose, m)
	if err != nil {
		return nil, err
	}
	out, err := NewDense(d.c, d.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j int
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			out.data[j*d.r+i] = d.data[i*d.c+j]
		}
	}

	return out, nil
}

// MatVec returns y = m·x.
// Errors: ErrNilMatrix, ErrDimensionMismatch (len(x) != Cols).
// Complexity: O(r*c).
func MatVec(m Matrix, x []float64) ([]float64, error) {
	d, err := prepare(opMatVec, m)
	if err != nil {
		return nil, err
	}
	if err = ValidateVecLen(x, d.c); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, d.r)
	var (
		i, j int
		sum  float64
	)
	for i = 0; i < d.r; i++ {
		sum = ZeroSum
		for j = 0; j < d.c; j++ {
			sum += d.data[i*d.c+j] * x[j]
		}
		y[i] = sum
	}

	return y, nil
}

// LU computes the Doolittle factorisation m = L·U with unit-diagonal L.
//
// Implementation:
//   - Stage 1: validate square input.
//   - Stage 2: row i of U, then column i of L; fail on an exact zero pivot.
//
// Errors: ErrNilMatrix, ErrNonSquare, ErrSingular.
// Determinism: no pivoting, fixed loop orders.
// Complexity: O(n³).
func LU(m Matrix) (*Dense, *Dense, error) {
	d, err := prepareSquare(opLU, m)
	if err != nil {
		return nil, nil, err
	}
	n := d.r
	L, _ := NewIdentity(n)
	U, _ := NewDense(n, n)

	var (
		i, j, k int
		sum     float64
	)
	for i = 0; i < n; i++ {
		// U[i][j] for j >= i
		for j = i; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[i*n+k] * U.data[k*n+j]
			}
			U.data[i*n+j] = d.data[i*n+j] - sum
		}
		// Zero-pivot guard (deterministic singularity detection)
		if U.data[i*n+i] == ZeroPivot {
			return nil, nil, matrixErrorf(opLU, ErrSingular)
		}
		// L[j][i] for j > i
		for j = i + 1; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[j*n+k] * U.data[k*n+i]
			}
			L.data[j*n+i] = (d.data[j*n+i] - sum) / U.data[i*n+i]
		}
	}

	return L, U, nil
}

// luSolve solves L·U·x = b by forward then backward substitution.
func luSolve(L, U *Dense, b []float64) ([]float64, error) {
	n := L.r
	y := make([]float64, n)
	x := make([]float64, n)
	var (
		i, k int
		sum  float64
	)
	// Forward substitution: L*y = b
	for i = 0; i < n; i++ {
		sum = ZeroSum
		for k = 0; k < i; k++ {
			sum += L.data[i*n+k] * y[k]
		}
		y[i] = b[i] - sum
	}
	// Backward substitution: U*x = y
	for i = n - 1; i >= 0; i-- {
		sum = ZeroSum
		for k = i + 1; k < n; k++ {
			sum += U.data[i*n+k] * x[k]
		}
		if U.data[i*n+i] == ZeroPivot {
			return nil, ErrSingular
		}
		x[i] = (y[i] - sum) / U.data[i*n+i]
	}

	return x, nil
}

// Solve returns x with m·x = b.
// Errors: ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch, ErrSingular.
// Complexity: O(n³).
func Solve(m Matrix, b []float64) ([]float64, error) {
	d, err := prepareSquare(opSolve, m)
	if err != nil {
		return nil, err
	}
	if err = ValidateVecLen(b, d.r); err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	L, U, err := LU(d)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}
	x, err := luSolve(L, U, b)
	if err != nil {
		return nil, matrixErrorf(opSolve, err)
	}

	return x, nil
}

// Inverse returns m⁻¹ by solving against each unit column.
// Errors: ErrNilMatrix, ErrNonSquare, ErrSingular.
// Complexity: O(n³).
func Inverse(m Matrix) (*Dense, error) {
	d, err := prepareSquare(opInverse, m)
	if err != nil {
		return nil, err
	}
	L, U, err := LU(d)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}

	n := d.r
	inv, _ := NewDense(n, n)
	e := make([]float64, n)
	var col, i int
	for col = 0; col < n; col++ {
		for i = range e {
			e[i] = 0
		}
		e[col] = 1
		x, err := luSolve(L, U, e)
		if err != nil {
			return nil, matrixErrorf(opInverse, err)
		}
		for i = 0; i < n; i++ {
			inv.data[i*n+col] = x[i]
		}
	}

	return inv, nil
}

// Cholesky returns the lower-triangular L with m = L·Lᵀ.
//
// Implementation:
//   - Stage 1: validate square, finite and symmetric (eps scaled by max |m|).
//   - Stage 2: Cholesky–Banachiewicz row by row.
//
// Errors: ErrNilMatrix, ErrNonSquare, ErrNaNInf, ErrAsymmetry, ErrNotPositiveDefinite.
// Complexity: O(n³/3).
func Cholesky(m Matrix) (*Dense, error) {
	d, err := prepareSquare(opCholesky, m)
	if err != nil {
		return nil, err
	}
	if err = ValidateFinite(d); err != nil {
		return nil, matrixErrorf(opCholesky, err)
	}
	var scale float64
	for _, v := range d.data {
		scale = math.Max(scale, math.Abs(v))
	}
	if err = ValidateSymmetric(d, 1e-12*math.Max(scale, 1)); err != nil {
		return nil, matrixErrorf(opCholesky, err)
	}

	n := d.r
	L, _ := NewDense(n, n)
	var (
		i, j, k int
		sum     float64
	)
	for i = 0; i < n; i++ {
		for j = 0; j <= i; j++ {
			sum = d.data[i*n+j]
			for k = 0; k < j; k++ {
				sum -= L.data[i*n+k] * L.data[j*n+k]
			}
			if i == j {
				if sum <= 0 {
					return nil, matrixErrorf(opCholesky, ErrNotPositiveDefinite)
				}
				L.data[i*n+i] = math.Sqrt(sum)
			} else {
				L.data[i*n+j] = sum / L.data[j*n+j]
			}
		}
	}

	return L, nil
}

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix using the
// cyclic-pivot Jacobi method. The input is not mutated.
//
// Implementation:
//   - Stage 1: validate square and symmetric; copy into a work matrix.
//   - Stage 2: repeatedly zero the largest off-diagonal |A[p,q]| with a
//     Givens rotation, accumulating the rotations into Q.
//   - Stage 3: verify the residual off-diagonal mass is below tol.
//
// Returns: eigenvalues (diagonal order, unsorted) and Q whose columns are
// the matching eigenvectors.
// Errors: ErrNilMatrix, ErrNonSquare, ErrAsymmetry, ErrMatrixEigenFailed.
// Complexity: O(n²) per rotation, O(maxIter·n²) worst case.
func Eigen(m Matrix, tol float64, maxIter int) ([]float64, *Dense, error) {
	d, err := prepareSquare(opEigen, m)
	if err != nil {
		return nil, nil, err
	}
	if err = ValidateSymmetric(d, math.Max(tol, 0)); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}

	n := d.r
	A := d.Clone().(*Dense) // work copy
	Q, _ := NewIdentity(n)

	var (
		iter, i, j, p, q   int
		maxOff, off        float64 // current max |A[p,q]| and a temporary
		app, aqq, apq      float64 // pivot block entries
		aip, aiq, qip, qiq float64
		theta, t, c, s     float64
	)
	for iter = 0; iter < maxIter; iter++ {
		// J.1: find pivot (p,q) maximizing |A[p,q]|
		maxOff = 0
		for i = 0; i < n; i++ {
			for j = i + 1; j < n; j++ {
				if off = math.Abs(A.data[i*n+j]); off > maxOff {
					maxOff, p, q = off, i, j
				}
			}
		}
		// J.2: converged
		if maxOff < tol {
			break
		}
		// J.3: rotation parameters
		app, aqq, apq = A.data[p*n+p], A.data[q*n+q], A.data[p*n+q]
		theta = (aqq - app) / (2 * apq)
		t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c = 1.0 / math.Sqrt(t*t+1)
		s = t * c

		// J.4: apply rotation to A
		for i = 0; i < n; i++ {
			if i == p || i == q {
				continue
			}
			aip, aiq = A.data[i*n+p], A.data[i*n+q]
			A.data[i*n+p] = c*aip - s*aiq
			A.data[p*n+i] = A.data[i*n+p]
			A.data[i*n+q] = s*aip + c*aiq
			A.data[q*n+i] = A.data[i*n+q]
		}
		A.data[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
		A.data[q*n+q] = s*s*app + 2*c*s*apq + c*c*aqq
		A.data[p*n+q], A.data[q*n+p] = 0, 0

		// J.5: accumulate rotation into Q
		for i = 0; i < n; i++ {
			qip, qiq = Q.data[i*n+p], Q.data[i*n+q]
			Q.data[i*n+p] = c*qip - s*qiq
			Q.data[i*n+q] = s*qip + c*qiq
		}
	}

	// Final convergence check
	maxOff = 0
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			maxOff = math.Max(maxOff, math.Abs(A.data[i*n+j]))
		}
	}
	if maxOff >= tol && maxOff > 0 {
		return nil, nil, matrixErrorf(opEigen, ErrMatrixEigenFailed)
	}

	eigs := make([]float64, n)
	for i = 0; i < n; i++ {
		eigs[i] = A.data[i*n+i]
	}

	return eigs, Q, nil
}

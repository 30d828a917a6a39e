package lsq

import "errors"

var (
	// ErrBadProblem indicates an ill-formed problem (nil residuals, empty x0,
	// mismatched bounds, infeasible start bounds or M < 1).
	ErrBadProblem = errors.New("lsq: invalid problem")

	// ErrNonFinite indicates the residual function produced NaN/Inf at the start point.
	ErrNonFinite = errors.New("lsq: non-finite residuals")

	// ErrSingularJacobian indicates a rank-deficient or numerically singular Jacobian.
	ErrSingularJacobian = errors.New("lsq: singular jacobian")

	// ErrNotConverged indicates the iteration budget was exhausted.
	ErrNotConverged = errors.New("lsq: did not converge")
)

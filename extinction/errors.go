package extinction

import "errors"

var (
	// ErrUnknownModel indicates an unrecognised model name.
	ErrUnknownModel = errors.New("extinction: unknown model")

	// ErrNoPoints indicates a fit without usable points.
	ErrNoPoints = errors.New("extinction: no points to fit")

	// ErrNoModelConverged indicates that every candidate model failed.
	ErrNoModelConverged = errors.New("extinction: no model converged")

	// ErrBadStructure indicates a malformed structure table.
	ErrBadStructure = errors.New("extinction: malformed structure table")

	// ErrUnderdetermined indicates too few independent points for the
	// anisotropic constants.
	ErrUnderdetermined = errors.New("extinction: anisotropic constants underdetermined")
)

package calibrate

import "errors"

var (
	// ErrNilGeometry indicates a missing starting geometry.
	ErrNilGeometry = errors.New("calibrate: nil geometry")

	// ErrTooFewPairs indicates fewer residuals than free parameters.
	ErrTooFewPairs = errors.New("calibrate: too few reflections")
)

package crystal

import "errors"

var (
	// ErrInvalidLattice indicates non-positive lengths or angles that do not
	// describe a real cell (non positive-definite metric).
	ErrInvalidLattice = errors.New("crystal: invalid lattice constants")

	// ErrSingularUB indicates a UB matrix that cannot be inverted.
	ErrSingularUB = errors.New("crystal: singular UB matrix")

	// ErrBadUBFile indicates an ISAW UB file that could not be parsed.
	ErrBadUBFile = errors.New("crystal: malformed UB file")

	// ErrUnknownCentering indicates an unrecognised centering symbol.
	ErrUnknownCentering = errors.New("crystal: unknown centering")
)

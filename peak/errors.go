package peak

import "errors"

var (
	// ErrVoxelCount indicates an integration whose voxel sets do not match
	// the record's observations one to one.
	ErrVoxelCount = errors.New("peak: voxel set count does not match observations")

	// ErrVoxelLength indicates data and normalisation arrays of different
	// lengths, or observations of one record with different voxel counts.
	ErrVoxelLength = errors.New("peak: inconsistent voxel array lengths")

	// ErrBadScale indicates a data or normalisation scale that is not a
	// positive finite number.
	ErrBadScale = errors.New("peak: correction scale must be positive")

	// ErrIndexOutOfRange indicates an observation index outside the record.
	ErrIndexOutOfRange = errors.New("peak: observation index out of range")
)

package store

import "errors"

var (
	// ErrNilGeometry indicates a store without a crystal geometry.
	ErrNilGeometry = errors.New("store: geometry is nil")

	// ErrUnknownKey indicates a reflection key with no records.
	ErrUnknownKey = errors.New("store: unknown reflection key")

	// ErrDomainOutOfRange indicates a domain index past the key's records.
	ErrDomainOutOfRange = errors.New("store: domain index out of range")

	// ErrUnknownBank indicates an observation whose bank has no scale.
	ErrUnknownBank = errors.New("store: no scale for bank")

	// ErrBadScaleConstant indicates a non-positive or non-finite scale constant.
	ErrBadScaleConstant = errors.New("store: scale constant must be positive")

	// ErrCorruptState indicates a persisted state that cannot be loaded.
	ErrCorruptState = errors.New("store: corrupt state")
)

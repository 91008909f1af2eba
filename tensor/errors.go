package tensor

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned when a shape, type, or buffer cannot back a tensor.
	ErrInvalidArgument = errors.New("tensor: invalid argument")
	// ErrOutOfRange is returned for an axis outside [0, rank).
	ErrOutOfRange = errors.New("tensor: axis out of range")
	// ErrOutOfMemory is returned when the requested storage cannot be allocated.
	ErrOutOfMemory = errors.New("tensor: out of memory")
	// ErrTypeMismatch is returned when a typed view does not match the stored element type.
	ErrTypeMismatch = errors.New("tensor: element type mismatch")
	// ErrReleased is returned when a released handle is used.
	ErrReleased = errors.New("tensor: use of released tensor")
)

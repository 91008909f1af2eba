package postprocess

import "github.com/pkg/errors"

var (
	// ErrInvalidConfig is returned by constructors for out-of-range parameters.
	ErrInvalidConfig = errors.New("invalid postprocess config")
	// ErrShapeMismatch is returned when box and score buffers disagree.
	ErrShapeMismatch = errors.New("box/score shape mismatch")
)

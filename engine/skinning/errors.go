package skinning

import "errors"

var (
	// ErrInvalidJob is returned when a skinning job's spans do not match its vertex count,
	// strides or influence count.
	ErrInvalidJob = errors.New("invalid skinning job")

	// ErrRemapOutOfRange is returned when a joint remap points past the model-space matrices.
	ErrRemapOutOfRange = errors.New("joint remap out of range")
)

package animation

import "errors"

var (
	// ErrInvalidSkeleton is returned when a skeleton breaks the parent-before-child ordering
	// or exceeds MaxJoints.
	ErrInvalidSkeleton = errors.New("invalid skeleton")

	// ErrInvalidAnimation is returned when an animation has a non-positive duration or
	// unsorted or out of range keys.
	ErrInvalidAnimation = errors.New("invalid animation")

	// ErrTrackMismatch is returned when the animation track count does not match the skeleton
	// joint count or the sampling context capacity.
	ErrTrackMismatch = errors.New("animation track count mismatch")

	// ErrOutputTooSmall is returned when an output span cannot hold the job result.
	ErrOutputTooSmall = errors.New("output buffer too small")

	// ErrInvalidJob is returned when a job is missing its skeleton or has an invalid range.
	ErrInvalidJob = errors.New("invalid job")
)

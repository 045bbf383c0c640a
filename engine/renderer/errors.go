package renderer

import "errors"

var (
	// ErrNotInitialized is returned by draw calls made before Initialize.
	ErrNotInitialized = errors.New("renderer not initialized")

	// ErrTextureTooLarge is returned when the skinning texture exceeds the device limit.
	ErrTextureTooLarge = errors.New("skinning texture exceeds device limit")

	// ErrInstanceMismatch is returned when skinning and world matrix counts differ.
	ErrInstanceMismatch = errors.New("skinning and world matrix instance counts differ")
)

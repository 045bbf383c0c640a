package model

import "errors"

var (
	// ErrInvalidMesh is returned when a skinned mesh breaks its joint or attribute invariants.
	ErrInvalidMesh = errors.New("invalid mesh")

	// ErrInvalidPart is returned when a mesh asset part is neither a valid static body nor a
	// valid skinned part, or is both.
	ErrInvalidPart = errors.New("invalid mesh part")

	// ErrInvalidSceneNode is returned when a scene node parent does not precede it.
	ErrInvalidSceneNode = errors.New("invalid scene node")
)

// Package vtf lays skinning matrices out in the float order a vertex shader expects when it
// fetches them from an RGBA32F texture. Each matrix spans 4 texels, one per column.
package vtf

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FloatsPerMatrix is the number of floats one 4x4 matrix occupies.
	FloatsPerMatrix = 16

	// TexelsPerMatrix is the number of RGBA texels one matrix occupies.
	TexelsPerMatrix = 4

	// FloatsPerTexel is the number of float components of an RGBA32F texel.
	FloatsPerTexel = 4
)

// ErrCapacityExceeded is returned when a batch needs more floats than the skinning texture
// holds. It is a configuration error: the texture or batch size must change.
var ErrCapacityExceeded = errors.New("skinning data exceeds texture capacity")

// Packer writes batches of skinning matrices for a fixed texture size.
type Packer struct {
	width  int
	height int
}

// NewPacker creates a packer for a texture of the given dimensions in texels.
func NewPacker(width, height int) Packer {
	return Packer{width: width, height: height}
}

// Width returns the texture width in texels.
func (p Packer) Width() int {
	return p.width
}

// Height returns the texture height in texels.
func (p Packer) Height() int {
	return p.height
}

// Capacity returns the number of floats the texture holds.
func (p Packer) Capacity() int {
	return p.width * p.height * FloatsPerTexel
}

// MatrixCapacity returns the number of whole matrices the texture holds.
func (p Packer) MatrixCapacity() int {
	return p.Capacity() / FloatsPerMatrix
}

// MaxInstances returns how many instances of jointCount matrices fit in the texture.
func (p Packer) MaxInstances(jointCount int) int {
	if jointCount <= 0 {
		return 0
	}
	return p.MatrixCapacity() / jointCount
}

// Pack writes jointCount matrices per instance into dst, instance-major: the matrix of
// instance i and slot j starts at float (i*jointCount+j)*16, in column-major order. The rest
// of dst is zeroed so an over-reading shader samples zeros instead of a previous batch.
//
// Parameters:
//   - dst: the scratch buffer, normally Capacity() floats
//   - skins: per-instance skinning matrices, each with at least jointCount entries
//   - jointCount: remap slots per instance
//
// Returns:
//   - int: the number of floats written
//   - error: ErrCapacityExceeded, checked before anything is written
func (p Packer) Pack(dst []float32, skins [][]mgl32.Mat4, jointCount int) (int, error) {
	required := len(skins) * jointCount * FloatsPerMatrix
	if required > p.Capacity() || required > len(dst) {
		return 0, fmt.Errorf("%w: %d instances x %d joints needs %d floats, texture %dx%d holds %d, buffer holds %d",
			ErrCapacityExceeded, len(skins), jointCount, required, p.width, p.height, p.Capacity(), len(dst))
	}
	for i, skin := range skins {
		if len(skin) < jointCount {
			return 0, fmt.Errorf("instance %d has %d skinning matrices, want %d", i, len(skin), jointCount)
		}
	}

	offset := 0
	for _, skin := range skins {
		for j := range jointCount {
			copy(dst[offset:offset+FloatsPerMatrix], skin[j][:])
			offset += FloatsPerMatrix
		}
	}
	clear(dst[offset:])
	return offset, nil
}

// Rows returns how many full texture rows cover the first written floats, which is the
// height of the sub-image update for a batch.
func (p Packer) Rows(written int) int {
	if written <= 0 || p.width <= 0 {
		return 0
	}
	rowFloats := p.width * FloatsPerTexel
	return (written + rowFloats - 1) / rowFloats
}

// Offset returns the float offset of instance i, slot j.
func Offset(instance, slot, jointCount int) int {
	return (instance*jointCount + slot) * FloatsPerMatrix
}

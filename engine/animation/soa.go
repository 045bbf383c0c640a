package animation

import (
	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
)

// SoaWidth is the number of joints packed in each SoA transform.
const SoaWidth = 4

// Transform is a decomposed affine transform for a single joint.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes the transform into a 4x4 affine matrix.
func (t Transform) Matrix() mgl32.Mat4 {
	return common.ComposeTRS(t.Translation, t.Rotation, t.Scale)
}

// SoaFloat3 stores four 3D vectors component-wise.
type SoaFloat3 struct {
	X, Y, Z [SoaWidth]float32
}

// SoaQuaternion stores four quaternions component-wise.
type SoaQuaternion struct {
	X, Y, Z, W [SoaWidth]float32
}

// SoaTransform stores four joint transforms component-wise.
type SoaTransform struct {
	Translation SoaFloat3
	Rotation    SoaQuaternion
	Scale       SoaFloat3
}

// IdentitySoaTransform returns four identity transforms.
func IdentitySoaTransform() SoaTransform {
	var s SoaTransform
	for lane := range SoaWidth {
		s.Set(lane, IdentityTransform())
	}
	return s
}

// SoaCount returns how many SoA transforms are needed to hold the given joint count.
func SoaCount(joints int) int {
	return (joints + SoaWidth - 1) / SoaWidth
}

// Set writes t into the given lane.
func (s *SoaTransform) Set(lane int, t Transform) {
	s.Translation.X[lane] = t.Translation[0]
	s.Translation.Y[lane] = t.Translation[1]
	s.Translation.Z[lane] = t.Translation[2]

	s.Rotation.X[lane] = t.Rotation.V[0]
	s.Rotation.Y[lane] = t.Rotation.V[1]
	s.Rotation.Z[lane] = t.Rotation.V[2]
	s.Rotation.W[lane] = t.Rotation.W

	s.Scale.X[lane] = t.Scale[0]
	s.Scale.Y[lane] = t.Scale[1]
	s.Scale.Z[lane] = t.Scale[2]
}

// Get reads the transform stored in the given lane.
func (s *SoaTransform) Get(lane int) Transform {
	return Transform{
		Translation: mgl32.Vec3{s.Translation.X[lane], s.Translation.Y[lane], s.Translation.Z[lane]},
		Rotation: mgl32.Quat{
			W: s.Rotation.W[lane],
			V: mgl32.Vec3{s.Rotation.X[lane], s.Rotation.Y[lane], s.Rotation.Z[lane]},
		},
		Scale: mgl32.Vec3{s.Scale.X[lane], s.Scale.Y[lane], s.Scale.Z[lane]},
	}
}

// JointTransform reads the transform of a joint from a SoA span.
func JointTransform(soa []SoaTransform, joint int) Transform {
	return soa[joint/SoaWidth].Get(joint % SoaWidth)
}

// SetJointTransform writes the transform of a joint into a SoA span.
func SetJointTransform(soa []SoaTransform, joint int, t Transform) {
	soa[joint/SoaWidth].Set(joint%SoaWidth, t)
}

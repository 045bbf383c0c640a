package loader

import (
	"math"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/animation"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// float is the element type of glTF node transforms.
type float interface {
	~float32 | ~float64
}

func vec3Of[T float](v [3]T) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// quatOf converts glTF's xyzw quaternion order.
func quatOf[T float](q [4]T) mgl32.Quat {
	return mgl32.Quat{W: float32(q[3]), V: mgl32.Vec3{float32(q[0]), float32(q[1]), float32(q[2])}}
}

// mat4Of converts a column-major glTF matrix; mgl32 is column-major too.
func mat4Of[T float](m [16]T) mgl32.Mat4 {
	var out mgl32.Mat4
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

// gltfNodeMatrix composes a node's local matrix from its matrix or its TRS properties.
func gltfNodeMatrix(node *gltf.Node) mgl32.Mat4 {
	m := mat4Of(node.MatrixOrDefault())
	if m != mgl32.Ident4() {
		return m
	}
	return common.ComposeTRS(vec3Of(node.TranslationOrDefault()), quatOf(node.RotationOrDefault()), vec3Of(node.ScaleOrDefault()))
}

// decomposeMatrix splits a column-major matrix into translation, rotation and scale. This is
// an approximation that assumes no shear.
func decomposeMatrix(m mgl32.Mat4) animation.Transform {
	t := animation.Transform{
		Translation: m.Col(3).Vec3(),
		Scale: mgl32.Vec3{
			m.Col(0).Vec3().Len(),
			m.Col(1).Vec3().Len(),
			m.Col(2).Vec3().Len(),
		},
	}

	var r mgl32.Mat4
	for c := range 3 {
		s := t.Scale[c]
		if s < 1e-4 {
			s = 1
		}
		r.SetCol(c, m.Col(c).Mul(1/s))
	}
	r.SetCol(3, mgl32.Vec4{0, 0, 0, 1})

	// A negative determinant means a mirrored basis; fold it into the x scale.
	if r.Mat3().Det() < 0 {
		t.Scale[0] = -t.Scale[0]
		r.SetCol(0, r.Col(0).Mul(-1))
	}
	t.Rotation = mgl32.Mat4ToQuat(r).Normalize()
	return t
}

// minClipDuration keeps single-key clips valid.
const minClipDuration = float32(1e-3)

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Mat4Floats returns a flat float32 view over a slice of matrices, 16 floats per matrix
// in column-major order. The view shares memory with the input.
//
// Parameters:
//   - m: source matrices
//
// Returns:
//   - []float32: flat view of len(m)*16 floats, or nil if m is empty
func Mat4Floats(m []mgl32.Mat4) []float32 {
	if len(m) == 0 {
		return nil
	}
	return unsafe.Slice(&m[0][0], len(m)*16)
}

// PerspectiveZO creates a right-handed perspective projection matrix mapping depth to [0, 1],
// the clip-space convention used by WebGPU. mgl32.Perspective maps depth to [-1, 1] for OpenGL.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func PerspectiveZO(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// ComposeTRS builds an affine matrix from translation, rotation and scale, applied in
// scale, rotate, translate order.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion (need not be normalized)
//   - s: scale
//
// Returns:
//   - mgl32.Mat4: T * R * S
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	m := r.Normalize().Mat4()
	m[0], m[1], m[2] = m[0]*s[0], m[1]*s[0], m[2]*s[0]
	m[4], m[5], m[6] = m[4]*s[1], m[5]*s[1], m[6]*s[1]
	m[8], m[9], m[10] = m[8]*s[2], m[9]*s[2], m[10]*s[2]
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// TransformPoint applies m to p with w = 1.
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformVector applies m to v with w = 0, ignoring translation.
func TransformVector(m mgl32.Mat4, v mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}

package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func boxAround(c mgl32.Vec3, half float32) Box {
	b := EmptyBox()
	b.Extend(c.Sub(mgl32.Vec3{half, half, half}))
	b.Extend(c.Add(mgl32.Vec3{half, half, half}))
	return b
}

func TestFrustumIntersectsBox(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	for i, p := range f.Planes {
		assert.InDelta(t, 1, p.Normal.Len(), 1e-5, "plane %d normalized", i)
	}

	tests := []struct {
		name   string
		box    Box
		margin float32
		want   bool
	}{
		{"centered", boxAround(mgl32.Vec3{}, 0.5), 0, true},
		{"far to the side", boxAround(mgl32.Vec3{100, 0, 0}, 0.5), 0, false},
		{"behind the camera", boxAround(mgl32.Vec3{0, 0, 20}, 0.5), 0, false},
		{"past the far plane", boxAround(mgl32.Vec3{0, 0, -200}, 0.5), 0, false},
		// The half width of the view at the origin is 5 * tan(22.5deg), about 2.07.
		{"just outside", boxAround(mgl32.Vec3{3, 0, 0}, 0.1), 0, false},
		{"pulled in by the margin", boxAround(mgl32.Vec3{3, 0, 0}, 0.1), 1, true},
		{"straddling the edge", boxAround(mgl32.Vec3{2, 0, 0}, 0.5), 0, true},
		{"invalid", EmptyBox(), 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IntersectsBox(tt.box, tt.margin))
		})
	}
}

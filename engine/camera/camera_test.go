package camera_test

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(min, max mgl32.Vec3) common.Box {
	b := common.EmptyBox()
	b.Extend(min)
	b.Extend(max)
	return b
}

func assertVec(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], 1e-3, "component %d of %v", i, got)
	}
}

func TestAutoFrame(t *testing.T) {
	ctrl := camera.NewCameraController()
	cam := camera.NewCamera(camera.WithController(ctrl))

	require.True(t, ctrl.AutoFraming())
	require.True(t, cam.AutoFrame(box(mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, 2, 1})))

	wantRadius := float32(math.Sqrt(3)) * 1.2 / float32(math.Sin(float64(mgl32.DegToRad(45))/2))
	assertVec(t, mgl32.Vec3{0, 1, 0}, ctrl.Target())
	assert.InDelta(t, wantRadius, ctrl.Radius(), 1e-3)
	assert.InDelta(t, wantRadius, ctrl.Position().Sub(ctrl.Target()).Len(), 1e-3)
	assert.True(t, ctrl.AutoFraming(), "framing must not disable itself")

	t.Run("invalid bounds", func(t *testing.T) {
		assert.False(t, cam.AutoFrame(common.EmptyBox()))
		assertVec(t, mgl32.Vec3{0, 1, 0}, ctrl.Target())
	})

	t.Run("single point clamps distance", func(t *testing.T) {
		p := mgl32.Vec3{3, 0, 0}
		assert.True(t, cam.AutoFrame(box(p, p)))
		assertVec(t, p, ctrl.Target())
		assert.InDelta(t, 0.25, ctrl.Radius(), 1e-6)
	})
}

func TestManualInputDisablesAutoFrame(t *testing.T) {
	tests := []struct {
		name  string
		input func(camera.CameraController)
	}{
		{name: "orbit", input: func(c camera.CameraController) { c.Orbit(0.1, 0) }},
		{name: "pan", input: func(c camera.CameraController) { c.Pan(1, 0) }},
		{name: "zoom", input: func(c camera.CameraController) { c.Zoom(1) }},
		{name: "left drag", input: func(c camera.CameraController) { c.HandleMouseDrag(10, 0, common.MouseLeft) }},
		{name: "right drag", input: func(c camera.CameraController) { c.HandleMouseDrag(0, 10, common.MouseRight) }},
		{name: "scroll", input: func(c camera.CameraController) { c.HandleScroll(-1) }},
		{name: "orbit key", input: func(c camera.CameraController) { c.HandleKey(common.KeyLeft, 0.016) }},
		{name: "zoom key", input: func(c camera.CameraController) { c.HandleKey(common.KeyQ, 0.016) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := camera.NewCameraController()
			cam := camera.NewCamera(camera.WithController(ctrl))

			tt.input(ctrl)
			assert.False(t, ctrl.AutoFraming())

			before := ctrl.Target()
			assert.False(t, cam.AutoFrame(box(mgl32.Vec3{10, 10, 10}, mgl32.Vec3{12, 12, 12})))
			assert.Equal(t, before, ctrl.Target())

			ctrl.HandleKey(common.KeyF, 0.016)
			assert.True(t, ctrl.AutoFraming())
			assert.True(t, cam.AutoFrame(box(mgl32.Vec3{10, 10, 10}, mgl32.Vec3{12, 12, 12})))
			assertVec(t, mgl32.Vec3{11, 11, 11}, ctrl.Target())
		})
	}
}

func TestIgnoredInputKeepsAutoFrame(t *testing.T) {
	ctrl := camera.NewCameraController()
	ctrl.HandleMouseDrag(0, 0, common.MouseLeft)
	ctrl.HandleScroll(0)
	ctrl.HandleKey(common.KeySpace, 0.016)
	assert.True(t, ctrl.AutoFraming())
}

func TestControllerClamps(t *testing.T) {
	ctrl := camera.NewCameraController(
		camera.WithRadius(5),
		camera.WithRadiusBounds(1, 10),
		camera.WithElevationBounds(-0.5, 0.5),
	)

	ctrl.Orbit(0, 10)
	assert.InDelta(t, 0.5, ctrl.Elevation(), 1e-6)
	ctrl.Orbit(0, -10)
	assert.InDelta(t, -0.5, ctrl.Elevation(), 1e-6)

	ctrl.Zoom(100)
	assert.InDelta(t, 1, ctrl.Radius(), 1e-6)
	ctrl.Zoom(-100)
	assert.InDelta(t, 10, ctrl.Radius(), 1e-6)
}

func TestPanKeepsOrbit(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithAzimuth(0), camera.WithElevation(0), camera.WithRadius(4))
	offset := ctrl.Position().Sub(ctrl.Target())

	ctrl.Pan(2, 1)

	assertVec(t, offset, ctrl.Position().Sub(ctrl.Target()))
	// Looking down -Z from +Z, right is +X and up is +Y.
	assertVec(t, mgl32.Vec3{2, 1, 0}, ctrl.Target())
}

func TestViewLooksAtTarget(t *testing.T) {
	ctrl := camera.NewCameraController(camera.WithTarget(mgl32.Vec3{1, 2, 3}), camera.WithRadius(4), camera.WithAutoFraming(false))
	cam := camera.NewCamera(camera.WithController(ctrl), camera.WithAspect(16.0/9.0))

	assertVec(t, mgl32.Vec3{0, 0, -4}, common.TransformPoint(cam.View(), ctrl.Target()))
	assert.Equal(t, cam.Projection().Mul4(cam.View()), cam.ViewProjection())

	ctrl.Orbit(1, 0.2)
	cam.Update()
	assertVec(t, mgl32.Vec3{0, 0, -4}, common.TransformPoint(cam.View(), ctrl.Target()))
}

func TestProjectionDepthRange(t *testing.T) {
	near := mgl32.Vec4{0, 0, -0.5, 1}

	gl := camera.NewCamera(camera.WithClipPlanes(0.5, 100)).Projection().Mul4x1(near)
	assert.InDelta(t, -1, gl.Z()/gl.W(), 1e-5)

	zo := camera.NewCamera(camera.WithClipPlanes(0.5, 100), camera.WithZeroToOneDepth(true)).Projection().Mul4x1(near)
	assert.InDelta(t, 0, zo.Z()/zo.W(), 1e-5)
}

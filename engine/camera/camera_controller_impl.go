package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	// Spherical coordinates (offset from target)
	radius    float32
	azimuth   float32 // Horizontal angle around Y axis
	elevation float32 // Vertical angle from horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32

	autoFraming bool
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new orbit controller with auto-framing enabled.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu: &sync.Mutex{},

		radius:    6.0,
		azimuth:   float32(math.Pi / 4),
		elevation: float32(math.Pi / 8),

		minRadius:    0.25,
		maxRadius:    1000.0,
		minElevation: float32(-math.Pi/2 + 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),

		orbitSpeed:       1.5,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.1,

		autoFraming: true,
	}

	for _, option := range options {
		option(cc)
	}

	cc.radius = clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
	return cc
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

// updatePosition recomputes the camera position from spherical coordinates.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position = cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

// localAxes returns the right and up axes matching the LookAt matrix with world up +Y.
// Caller must hold the mutex.
func (cc *cameraControllerImpl) localAxes() (right, up mgl32.Vec3) {
	back := cc.position.Sub(cc.target)
	if back.Len() < 1e-8 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	back = back.Normalize()

	right = mgl32.Vec3{0, 1, 0}.Cross(back)
	if right.Len() < 1e-8 {
		return mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}
	}
	right = right.Normalize()
	return right, back.Cross(right)
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *cameraControllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *cameraControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}

func (cc *cameraControllerImpl) orbit(dAzimuth, dElevation float32) {
	cc.azimuth += dAzimuth
	cc.elevation = clamp(cc.elevation+dElevation, cc.minElevation, cc.maxElevation)
	cc.autoFraming = false
	cc.updatePosition()
}

func (cc *cameraControllerImpl) pan(right, up float32) {
	r, u := cc.localAxes()
	offset := r.Mul(right).Add(u.Mul(up))
	cc.target = cc.target.Add(offset)
	cc.position = cc.position.Add(offset)
	cc.autoFraming = false
}

func (cc *cameraControllerImpl) zoom(delta float32) {
	cc.radius = clamp(cc.radius*float32(math.Pow(float64(1-cc.zoomSpeed), float64(delta))), cc.minRadius, cc.maxRadius)
	cc.autoFraming = false
	cc.updatePosition()
}

func (cc *cameraControllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.orbit(dAzimuth, dElevation)
}

func (cc *cameraControllerImpl) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pan(right, up)
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.zoom(delta)
}

func (cc *cameraControllerImpl) HandleMouseDrag(dx, dy float32, button int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if dx == 0 && dy == 0 {
		return
	}
	switch button {
	case common.MouseLeft:
		cc.orbit(-dx*cc.mouseSensitivity, dy*cc.mouseSensitivity)
	case common.MouseRight, common.MouseMiddle:
		scale := cc.radius * cc.mouseSensitivity
		cc.pan(-dx*scale, dy*scale)
	}
}

func (cc *cameraControllerImpl) HandleScroll(dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if dy == 0 {
		return
	}
	cc.zoom(dy)
}

func (cc *cameraControllerImpl) HandleKey(key int, dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	step := cc.orbitSpeed * dt
	switch key {
	case common.KeyLeft, common.KeyA:
		cc.orbit(-step, 0)
	case common.KeyRight, common.KeyD:
		cc.orbit(step, 0)
	case common.KeyUp, common.KeyW:
		cc.orbit(0, step)
	case common.KeyDown, common.KeyS:
		cc.orbit(0, -step)
	case common.KeyQ:
		cc.zoom(-dt * 10)
	case common.KeyE:
		cc.zoom(dt * 10)
	case common.KeyF:
		cc.autoFraming = true
	}
}

func (cc *cameraControllerImpl) AutoFraming() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.autoFraming
}

func (cc *cameraControllerImpl) SetAutoFraming(enabled bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.autoFraming = enabled
}

func (cc *cameraControllerImpl) Frame(target mgl32.Vec3, radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.radius = clamp(radius, cc.minRadius, cc.maxRadius)
	cc.updatePosition()
}

package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the positional state of an orbit camera: a target (pan center), a
// distance from it and two angles around it. Camera reads from the controller and computes
// view/projection matrices.
//
// Every manual orbit, pan or zoom turns auto-framing off; it stays off until
// SetAutoFraming(true) is called.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget sets the look-at point and recomputes the position.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Radius returns the current distance from the target.
	//
	// Returns:
	//   - float32: distance from target
	Radius() float32

	// SetRadius sets the distance from the target, clamped to the radius bounds.
	//
	// Parameters:
	//   - radius: new distance from target
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	//
	// Returns:
	//   - float32: azimuth in radians
	Azimuth() float32

	// Elevation returns the vertical angle from the horizontal plane in radians.
	//
	// Returns:
	//   - float32: elevation in radians
	Elevation() float32

	// Orbit rotates the camera around the target. Elevation is clamped to its bounds.
	// Disables auto-framing.
	//
	// Parameters:
	//   - dAzimuth: azimuth change in radians
	//   - dElevation: elevation change in radians
	Orbit(dAzimuth, dElevation float32)

	// Pan translates target and position along the camera's right and up axes.
	// Disables auto-framing.
	//
	// Parameters:
	//   - right: distance along the local right axis
	//   - up: distance along the local up axis
	Pan(right, up float32)

	// Zoom scales the distance to the target. Positive delta moves closer.
	// Disables auto-framing.
	//
	// Parameters:
	//   - delta: zoom steps, scaled by the zoom speed
	Zoom(delta float32)

	// HandleMouseDrag applies a mouse drag: the left button orbits, the right and middle
	// buttons pan proportionally to the distance.
	//
	// Parameters:
	//   - dx: horizontal motion in pixels
	//   - dy: vertical motion in pixels
	//   - button: one of common.MouseLeft, MouseRight, MouseMiddle
	HandleMouseDrag(dx, dy float32, button int)

	// HandleScroll zooms by wheel steps.
	//
	// Parameters:
	//   - dy: vertical wheel steps, positive away from the user
	HandleScroll(dy float32)

	// HandleKey applies a held key for dt seconds. Arrows and WASD orbit, Q and E zoom,
	// F re-enables auto-framing. Other keys are ignored.
	//
	// Parameters:
	//   - key: a common.Key* code
	//   - dt: seconds the key was held this frame
	HandleKey(key int, dt float32)

	// AutoFraming reports whether auto-framing is enabled.
	//
	// Returns:
	//   - bool: true if enabled
	AutoFraming() bool

	// SetAutoFraming enables or disables auto-framing.
	//
	// Parameters:
	//   - enabled: the new state
	SetAutoFraming(enabled bool)

	// Frame moves the target and distance without touching the auto-framing state.
	// The distance is clamped to the radius bounds.
	//
	// Parameters:
	//   - target: the new target
	//   - radius: the new distance from target
	Frame(target mgl32.Vec3, radius float32)
}

package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Backend selects the platform layer behind a Window.
type Backend int

const (
	// BackendSDL opens an SDL2 window with an OpenGL 4.1 core context.
	BackendSDL Backend = iota

	// BackendGLFW opens a GLFW window without a client API, for WebGPU surfaces.
	BackendGLFW
)

func (b Backend) String() string {
	switch b {
	case BackendSDL:
		return "sdl"
	case BackendGLFW:
		return "glfw"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetResizeCallback sets the function called when the drawable is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll steps (positive = away from the user)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the common.Key* code
	SetKeyDownCallback(callback func(key int))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the common.Key* code
	SetKeyUpCallback(callback func(key int))

	// SetMouseDragCallback sets the callback for mouse motion while a button is held.
	//
	// Parameters:
	//   - callback: function receiving the motion in pixels and the held common.Mouse* button
	SetMouseDragCallback(callback func(dx, dy float32, button int))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// Backend returns the platform layer of the window.
	//
	// Returns:
	//   - Backend: the backend
	Backend() Backend

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor for creating a WebGPU surface.
	// Only BackendGLFW windows provide one.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// SwapBuffers presents the back buffer of an OpenGL window. It does nothing on
	// windows without a GL context.
	SwapBuffers()

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages drains pending platform events without blocking and dispatches them
	// to the callbacks.
	//
	// Returns:
	//   - bool: false once the window has been asked to close
	ProcessMessages() bool

	// Width returns the current drawable width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current drawable height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// platformWindow is the per-backend half of a Window.
type platformWindow interface {
	pollEvents() bool
	running() bool
	close() error
	swap()
	surfaceDescriptor() *wgpu.SurfaceDescriptor
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, the platform window and event callbacks.
type engineWindow struct {
	title string

	backend Backend
	vsync   bool

	minWidth  int
	minHeight int

	width  int
	height int

	platform platformWindow

	// held is a bitmask of pressed mouse buttons; dragButton is the one reported to onMouseDrag.
	held       uint8
	dragButton int
	lastX      int32
	lastY      int32
	hasLast    bool

	onResize    func(width, height int)
	onScroll    func(delta float32)
	onKeyDown   func(key int)
	onKeyUp     func(key int)
	onMouseDrag func(dx, dy float32, button int)
	onMouseMove func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates and opens a Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: an error if the platform window or its context cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)

	var err error
	switch w.backend {
	case BackendSDL:
		w.platform, err = newSDLWindow(w)
	case BackendGLFW:
		w.platform, err = newGLFWWindow(w)
	default:
		err = fmt.Errorf("unknown window backend %v", w.backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %v window: %w", w.backend, err)
	}
	return w, nil
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-skin",
		backend:   BackendSDL,
		vsync:     true,
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key int)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key int)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseDragCallback(callback func(dx, dy float32, button int)) {
	w.onMouseDrag = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) Backend() Backend {
	return w.backend
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) SwapBuffers() {
	if w.platform != nil {
		w.platform.swap()
	}
}

func (w *engineWindow) IsRunning() bool {
	return w.platform != nil && w.platform.running()
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window is not initialized")
	}
	err := w.platform.close()
	w.platform = nil
	return err
}

func (w *engineWindow) ProcessMessages() bool {
	if w.platform == nil {
		return false
	}
	return w.platform.pollEvents()
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// --- event dispatch shared by the platform layers ---

func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *engineWindow) scrolled(delta float32) {
	if w.onScroll != nil {
		w.onScroll(delta)
	}
}

func (w *engineWindow) keyChanged(key int, pressed bool) {
	if key < 0 {
		return
	}
	if pressed && w.onKeyDown != nil {
		w.onKeyDown(key)
	}
	if !pressed && w.onKeyUp != nil {
		w.onKeyUp(key)
	}
}

// mouseButtonChanged tracks held buttons. The most recently pressed button drives drags.
func (w *engineWindow) mouseButtonChanged(button int, pressed bool, x, y int32) {
	if button < 0 || button > 7 {
		return
	}
	bit := uint8(1) << button
	if pressed {
		w.held |= bit
		w.dragButton = button
	} else {
		w.held &^= bit
		if w.held != 0 && w.dragButton == button {
			for b := range 8 {
				if w.held&(1<<b) != 0 {
					w.dragButton = b
					break
				}
			}
		}
	}
	w.lastX, w.lastY, w.hasLast = x, y, true
}

func (w *engineWindow) mouseMoved(x, y int32) {
	if w.onMouseMove != nil {
		w.onMouseMove(x, y)
	}
	if w.held != 0 && w.hasLast && w.onMouseDrag != nil {
		dx, dy := float32(x-w.lastX), float32(y-w.lastY)
		if dx != 0 || dy != 0 {
			w.onMouseDrag(dx, dy, w.dragButton)
		}
	}
	w.lastX, w.lastY, w.hasLast = x, y, true
}

package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window *glfw.Window
	alive  bool
}

var _ platformWindow = &glfwWindow{}

// newGLFWWindow creates a GLFW window without a client API and wires its input callbacks
// into w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newGLFWWindow(w *engineWindow) (*glfwWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, glfw.DontCare, glfw.DontCare)

	gw := &glfwWindow{
		window: win,
		alive:  true,
	}

	// GLFW key codes are the common.Key* space.
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.alive = false
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press:
			w.keyChanged(int(key), true)
		case glfw.Release:
			w.keyChanged(int(key), false)
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		w.scrolled(float32(yoff))
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		xpos, ypos := win.GetCursorPos()
		var b int
		switch button {
		case glfw.MouseButtonLeft:
			b = common.MouseLeft
		case glfw.MouseButtonRight:
			b = common.MouseRight
		case glfw.MouseButtonMiddle:
			b = common.MouseMiddle
		default:
			return
		}
		w.mouseButtonChanged(b, action == glfw.Press, int32(xpos), int32(ypos))
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		w.mouseMoved(int32(xpos), int32(ypos))
	})

	// Framebuffer size is in pixels, which differs from window size on high-DPI displays.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	w.width, w.height = win.GetFramebufferSize()
	return gw, nil
}

// surfaceDescriptor uses the wgpuglfw bridge, which has per-platform implementations.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (gw *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

func (gw *glfwWindow) running() bool {
	return gw.alive && !gw.window.ShouldClose()
}

func (gw *glfwWindow) close() error {
	gw.alive = false
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	glfw.Terminate()
	return nil
}

// swap is a no-op; the WebGPU surface presents itself.
func (gw *glfwWindow) swap() {}

func (gw *glfwWindow) pollEvents() bool {
	glfw.PollEvents()
	return gw.running()
}

package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/veandco/go-sdl2/sdl"
)

// sdlWindow holds the SDL2 window and its OpenGL context.
type sdlWindow struct {
	parent  *engineWindow
	window  *sdl.Window
	context sdl.GLContext
	alive   bool
}

var _ platformWindow = &sdlWindow{}

// newSDLWindow opens an SDL2 window with a current OpenGL 4.1 core context. GL function
// pointers can be loaded as soon as it returns.
func newSDLWindow(w *engineWindow) (*sdlWindow, error) {
	runtime.LockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL2: %w", err)
	}

	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 1)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_FLAGS, sdl.GL_CONTEXT_FORWARD_COMPATIBLE_FLAG)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 24)

	win, err := sdl.CreateWindow(w.title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(w.width), int32(w.height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_OPENGL|sdl.WINDOW_RESIZABLE|sdl.WINDOW_ALLOW_HIGHDPI)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("failed to create SDL2 window: %w", err)
	}
	win.SetMinimumSize(int32(w.minWidth), int32(w.minHeight))

	ctx, err := win.GLCreateContext()
	if err != nil {
		win.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("failed to create OpenGL context: %w", err)
	}

	interval := 0
	if w.vsync {
		interval = 1
	}
	if err := sdl.GLSetSwapInterval(interval); err != nil {
		common.Logger().Warn("swap interval not supported", "interval", interval, "err", err)
	}

	sw := &sdlWindow{
		parent:  w,
		window:  win,
		context: ctx,
		alive:   true,
	}

	width, height := win.GLGetDrawableSize()
	w.width, w.height = int(width), int(height)
	return sw, nil
}

func (sw *sdlWindow) pollEvents() bool {
	w := sw.parent
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			sw.alive = false

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				width, height := sw.window.GLGetDrawableSize()
				w.resized(int(width), int(height))
			}

		case *sdl.MouseMotionEvent:
			w.mouseMoved(e.X, e.Y)

		case *sdl.MouseButtonEvent:
			var button int
			switch e.Button {
			case sdl.BUTTON_LEFT:
				button = common.MouseLeft
			case sdl.BUTTON_RIGHT:
				button = common.MouseRight
			case sdl.BUTTON_MIDDLE:
				button = common.MouseMiddle
			default:
				continue
			}
			w.mouseButtonChanged(button, e.Type == sdl.MOUSEBUTTONDOWN, e.X, e.Y)

		case *sdl.MouseWheelEvent:
			dy := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				dy = -dy
			}
			w.scrolled(dy)

		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				sw.alive = false
				continue
			}
			w.keyChanged(sdlScancodeToKey(e.Keysym.Scancode), e.Type == sdl.KEYDOWN)
		}
	}
	return sw.alive
}

// sdlScancodeToKey translates the scancodes the engine reacts to into common.Key* codes.
// Unhandled scancodes return -1.
func sdlScancodeToKey(scancode sdl.Scancode) int {
	switch scancode {
	case sdl.SCANCODE_W:
		return common.KeyW
	case sdl.SCANCODE_A:
		return common.KeyA
	case sdl.SCANCODE_S:
		return common.KeyS
	case sdl.SCANCODE_D:
		return common.KeyD
	case sdl.SCANCODE_Q:
		return common.KeyQ
	case sdl.SCANCODE_E:
		return common.KeyE
	case sdl.SCANCODE_F:
		return common.KeyF
	case sdl.SCANCODE_P:
		return common.KeyP
	case sdl.SCANCODE_R:
		return common.KeyR
	case sdl.SCANCODE_SPACE:
		return common.KeySpace
	case sdl.SCANCODE_RIGHT:
		return common.KeyRight
	case sdl.SCANCODE_LEFT:
		return common.KeyLeft
	case sdl.SCANCODE_DOWN:
		return common.KeyDown
	case sdl.SCANCODE_UP:
		return common.KeyUp
	case sdl.SCANCODE_LSHIFT:
		return common.KeyLeftShift
	default:
		return -1
	}
}

func (sw *sdlWindow) running() bool {
	return sw.alive
}

func (sw *sdlWindow) close() error {
	sw.alive = false
	sdl.GLDeleteContext(sw.context)
	if err := sw.window.Destroy(); err != nil {
		sdl.Quit()
		return err
	}
	sdl.Quit()
	return nil
}

func (sw *sdlWindow) swap() {
	sw.window.GLSwap()
}

// surfaceDescriptor returns nil; SDL windows render through their GL context.
func (sw *sdlWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

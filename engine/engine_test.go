package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs for a fixed number of frames and replays scripted input on given frames.
type fakeWindow struct {
	frames  int
	polled  int
	onFrame map[int]func(w *fakeWindow)
	closed  bool

	resize  func(width, height int)
	scroll  func(delta float32)
	keyDown func(key int)
	keyUp   func(key int)
	drag    func(dx, dy float32, button int)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.resize = cb }
func (w *fakeWindow) SetScrollCallback(cb func(delta float32)) { w.scroll = cb }
func (w *fakeWindow) SetKeyDownCallback(cb func(key int)) { w.keyDown = cb }
func (w *fakeWindow) SetKeyUpCallback(cb func(key int)) { w.keyUp = cb }
func (w *fakeWindow) SetMouseDragCallback(cb func(dx, dy float32, b int)) { w.drag = cb }
func (w *fakeWindow) SetMouseMoveCallback(func(x, y int32)) {}
func (w *fakeWindow) Backend() window.Backend { return window.BackendSDL }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) SwapBuffers() {}
func (w *fakeWindow) IsRunning() bool { return w.polled < w.frames }
func (w *fakeWindow) Close() error { w.closed = true; return nil }
func (w *fakeWindow) Width() int { return 800 }
func (w *fakeWindow) Height() int { return 600 }

func (w *fakeWindow) ProcessMessages() bool {
	if w.polled >= w.frames {
		return false
	}
	if f := w.onFrame[w.polled]; f != nil {
		f(w)
	}
	w.polled++
	return true
}

// fakeRenderer counts frames; every other method panics through the nil embedded interface.
type fakeRenderer struct {
	renderer.Renderer
	begun, ended int
	resized      [2]int
	released     bool
}

func (r *fakeRenderer) BeginFrame() error { r.begun++; return nil }
func (r *fakeRenderer) EndFrame() error { r.ended++; return nil }
func (r *fakeRenderer) Stats() renderer.Stats { return renderer.Stats{DrawCalls: 1} }
func (r *fakeRenderer) Resize(width, height int) { r.resized = [2]int{width, height} }
func (r *fakeRenderer) Release() { r.released = true }

// fakeScene records the calls the engine makes.
type fakeScene struct {
	scene.Scene
	name     string
	active   bool
	cam      camera.Camera
	r        renderer.Renderer
	asset    *loader.Asset
	updates  []float32
	draws    int
	drawErr  error
	posture  bool
	paused   bool
	swapped  []*loader.Asset
	released bool
}

func newFakeScene(name string, r renderer.Renderer) *fakeScene {
	return &fakeScene{
		name:   name,
		active: true,
		cam:    camera.NewCamera(camera.WithController(camera.NewCameraController())),
		r:      r,
		asset:  &loader.Asset{Name: name + ".glb"},
	}
}

func (s *fakeScene) Name() string { return s.name }
func (s *fakeScene) Active() bool { return s.active }
func (s *fakeScene) Camera() camera.Camera { return s.cam }
func (s *fakeScene) Renderer() renderer.Renderer { return s.r }
func (s *fakeScene) Asset() *loader.Asset { return s.asset }
func (s *fakeScene) DrawPosture() bool { return s.posture }
func (s *fakeScene) SetDrawPosture(enabled bool) { s.posture = enabled }
func (s *fakeScene) Paused() bool { return s.paused }
func (s *fakeScene) SetPaused(paused bool) { s.paused = paused }
func (s *fakeScene) Update(dt float32) error { s.updates = append(s.updates, dt); return nil }
func (s *fakeScene) DrawCalls() error { s.draws++; return s.drawErr }
func (s *fakeScene) Release() { s.released = true }

func (s *fakeScene) SetAsset(a *loader.Asset) error {
	s.swapped = append(s.swapped, a)
	s.asset = a
	return nil
}

// fakeLoader reloads by handing out a fresh asset under the same name.
type fakeLoader struct {
	loader.Loader
	fail     error
	reloaded []string
}

func (l *fakeLoader) Reload(path string) (*loader.Asset, error) {
	l.reloaded = append(l.reloaded, path)
	if l.fail != nil {
		return nil, l.fail
	}
	return &loader.Asset{Name: path}, nil
}

func TestRunWithoutWindow(t *testing.T) {
	e := NewEngine()
	assert.ErrorIs(t, e.Run(context.Background()), ErrNoWindow)
}

func TestRunDrawsEveryFrame(t *testing.T) {
	r := &fakeRenderer{}
	back, front := newFakeScene("back", r), newFakeScene("front", r)
	hidden := newFakeScene("hidden", r)
	hidden.active = false

	w := &fakeWindow{frames: 3}
	e := NewEngine(WithWindow(w), WithScene(1, front), WithScene(0, back), WithScene(2, hidden))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, r.begun, "one frame per scene group")
	assert.Equal(t, 3, r.ended)
	assert.Equal(t, 3, back.draws)
	assert.Equal(t, 3, front.draws)
	assert.Zero(t, hidden.draws)
	assert.Len(t, back.updates, 3)

	require.NoError(t, e.Close())
	assert.True(t, w.closed)
	assert.True(t, r.released)
	assert.True(t, back.released)
}

func TestFrameCallbackSeesStats(t *testing.T) {
	s := newFakeScene("crowd", &fakeRenderer{})
	e := NewEngine(WithWindow(&fakeWindow{frames: 2}), WithScene(0, s))

	var seen []renderer.Stats
	e.SetFrameCallback(func(stats renderer.Stats) { seen = append(seen, stats) })
	require.NoError(t, e.Run(context.Background()))
	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].DrawCalls)
}

func TestFrameErrorStopsRun(t *testing.T) {
	boom := errors.New("capacity exceeded")
	r := &fakeRenderer{}
	s := newFakeScene("crowd", r)
	s.drawErr = boom

	e := NewEngine(WithWindow(&fakeWindow{frames: 10}), WithScene(0, s))
	assert.ErrorIs(t, e.Run(context.Background()), boom)
	assert.Equal(t, 1, s.draws)
	assert.Zero(t, r.ended)
}

func TestRunStopsOnQuitAndCancel(t *testing.T) {
	t.Run("quit", func(t *testing.T) {
		s := newFakeScene("crowd", &fakeRenderer{})
		e := NewEngine(WithWindow(&fakeWindow{frames: 100}), WithScene(0, s))
		e.Quit()
		e.Quit()
		require.NoError(t, e.Run(context.Background()))
		assert.Zero(t, s.draws)
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		s := newFakeScene("crowd", &fakeRenderer{})
		w := &fakeWindow{frames: 100, onFrame: map[int]func(*fakeWindow){1: func(*fakeWindow) { cancel() }}}
		e := NewEngine(WithWindow(w), WithScene(0, s))
		require.NoError(t, e.Run(ctx))
		assert.Equal(t, 2, s.draws)
	})
}

func TestActiveScenesOrder(t *testing.T) {
	r := &fakeRenderer{}
	back, mid, front := newFakeScene("back", r), newFakeScene("mid", r), newFakeScene("front", r)
	e := NewEngine(WithScene(5, front), WithScene(-1, back)).(*engine)
	e.AddScene(2, mid)

	names := func() []string {
		var out []string
		for _, s := range e.activeScenes() {
			out = append(out, s.Name())
		}
		return out
	}
	assert.Equal(t, []string{"back", "mid", "front"}, names())

	mid.active = false
	assert.Equal(t, []string{"back", "front"}, names())
	assert.Same(t, back.Camera(), e.inputCamera())

	e.RemoveScene(-1)
	e.RemoveScene(7)
	assert.Equal(t, []string{"front"}, names())
	assert.Same(t, front.Camera(), e.inputCamera())

	replaced := newFakeScene("replaced", r)
	e.AddScene(5, replaced)
	mid.active = true
	assert.Equal(t, []string{"mid", "replaced"}, names())
	assert.Equal(t, []int{2, 5}, e.order)

	allocs := testing.AllocsPerRun(100, func() { e.activeScenes() })
	assert.Zero(t, allocs, "activeScenes allocates per frame")
}

func TestFixedStepAccumulator(t *testing.T) {
	s := newFakeScene("crowd", &fakeRenderer{})
	e := NewEngine(WithScene(0, s), WithFixedStep(100, 3)).(*engine)
	active := e.activeScenes()

	require.NoError(t, e.update(active, 25*time.Millisecond))
	assert.Equal(t, []float32{0.01, 0.01}, s.updates)
	assert.Equal(t, 5*time.Millisecond, e.accumulator)

	// A stall larger than the step budget drops the backlog.
	s.updates = nil
	require.NoError(t, e.update(active, time.Second))
	assert.Len(t, s.updates, 3)
	assert.Zero(t, e.accumulator)
}

func TestVariableStepIsClamped(t *testing.T) {
	s := newFakeScene("crowd", &fakeRenderer{})
	e := NewEngine(WithScene(0, s)).(*engine)

	require.NoError(t, e.update(e.activeScenes(), 16*time.Millisecond))
	require.NoError(t, e.update(e.activeScenes(), 2*time.Second))
	require.Len(t, s.updates, 2)
	assert.InDelta(t, 0.016, s.updates[0], 1e-6)
	assert.InDelta(t, maxFrameDelta, s.updates[1], 1e-6)
}

func TestToggleKeys(t *testing.T) {
	s := newFakeScene("crowd", &fakeRenderer{})
	w := &fakeWindow{frames: 4, onFrame: map[int]func(*fakeWindow){
		0: func(w *fakeWindow) {
			w.keyDown(common.KeyP)
			w.keyDown(common.KeyP) // key repeat
			w.keyDown(common.KeySpace)
		},
		1: func(w *fakeWindow) {
			w.keyUp(common.KeyP)
			w.keyUp(common.KeySpace)
		},
		2: func(w *fakeWindow) { w.keyDown(common.KeyP) },
	}}
	e := NewEngine(WithWindow(w), WithScene(0, s))

	require.NoError(t, e.Run(context.Background()))
	assert.False(t, s.posture, "pressed twice")
	assert.True(t, s.paused, "pressed once")
}

func TestHeldKeysDriveCamera(t *testing.T) {
	s := newFakeScene("crowd", &fakeRenderer{})
	ctrl := s.cam.Controller()
	azimuth := ctrl.Azimuth()

	w := &fakeWindow{frames: 3, onFrame: map[int]func(*fakeWindow){
		0: func(w *fakeWindow) { w.keyDown(common.KeyLeft) },
	}}
	e := NewEngine(WithWindow(w), WithScene(0, s)).(*engine)
	clock := time.Unix(0, 0)
	e.now = func() time.Time {
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}

	require.NoError(t, e.Run(context.Background()))
	assert.NotEqual(t, azimuth, ctrl.Azimuth())
	assert.False(t, ctrl.AutoFraming(), "manual orbit disables auto-framing")
}

func TestResizeUpdatesRenderersAndCameras(t *testing.T) {
	r := &fakeRenderer{}
	s := newFakeScene("crowd", r)
	w := &fakeWindow{}
	NewEngine(WithWindow(w), WithScene(0, s))

	w.resize(1600, 800)
	assert.Equal(t, [2]int{1600, 800}, r.resized)
	assert.InDelta(t, 2, s.cam.Aspect(), 1e-6)

	w.resize(0, 0)
	assert.Equal(t, [2]int{1600, 800}, r.resized, "minimized windows are ignored")
}

func TestReloadBetweenFrames(t *testing.T) {
	l := &fakeLoader{}
	crowd := newFakeScene("crowd", &fakeRenderer{})
	other := newFakeScene("other", &fakeRenderer{})
	other.active = false

	w := &fakeWindow{frames: 2, onFrame: map[int]func(*fakeWindow){
		0: func(w *fakeWindow) { w.keyDown(common.KeyR) },
	}}
	e := NewEngine(WithWindow(w), WithLoader(l), WithScene(0, crowd), WithScene(1, other))

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"crowd.glb"}, l.reloaded)
	require.Len(t, crowd.swapped, 1)
	assert.Equal(t, "crowd.glb", crowd.swapped[0].Name)
	assert.Empty(t, other.swapped)

	t.Run("failed reload keeps the asset", func(t *testing.T) {
		l.fail = errors.New("truncated file")
		before := crowd.asset

		e.Reload("crowd.glb")
		e.(*engine).applyReloads()
		assert.Same(t, before, crowd.asset)
		assert.Len(t, crowd.swapped, 1)
	})
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/camera"
	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"

	"github.com/charmbracelet/log"
)

// ErrNoWindow is returned by Run when the engine was built without a window.
var ErrNoWindow = errors.New("engine has no window")

const (
	// defaultMaxSteps bounds the fixed updates run in one frame so a long stall cannot spiral.
	defaultMaxSteps = 5

	// maxFrameDelta clamps the variable timestep after stalls such as a window drag.
	maxFrameDelta = 0.25

	reloadQueueSize = 16
)

// engine implements the Engine interface.
// Everything but animation sampling runs on the goroutine that calls Run, which must own
// the window and the graphics context.
type engine struct {
	logger *log.Logger
	now    func() time.Time

	window window.Window
	scenes map[int]scene.Scene
	order  []int         // scene keys, ascending
	active []scene.Scene // reused by activeScenes

	profiler         *profiler.Profiler
	profilingEnabled bool

	fixedStep   time.Duration // 0 selects a variable timestep
	maxSteps    int
	accumulator time.Duration

	loader     loader.Loader
	watchPaths []string
	watcher    loader.Watcher
	reloads    chan string

	onFrame func(stats renderer.Stats)

	held      map[int]bool
	keyOrder  []int
	quitCh    chan struct{}
	quitOnce  sync.Once
	closeOnce sync.Once
}

// Engine is the main entry point for the engine.
// It owns the frame loop: window events, camera input, animation update, skinning, draw
// submission and profiling, in that order, once per frame.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// AddScene registers a scene at the given z-index key.
	// Scenes are drawn in ascending key order.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// SetFrameCallback registers fn to run after every presented frame with that frame's
	// statistics. It runs on the frame loop goroutine, so it may add or rebuild instances.
	// A nil fn removes the callback.
	//
	// Parameters:
	//   - fn: the callback
	SetFrameCallback(fn func(stats renderer.Stats))

	// Reload queues a reload of the asset loaded from path. The reload is applied between
	// frames and every scene bound to that asset is rebuilt with the new one.
	//
	// Parameters:
	//   - path: the asset path, as passed to the loader
	Reload(path string)

	// Run drives the frame loop on the calling goroutine until the window closes, ctx is
	// done or Quit is called. A frame error stops the loop and is returned.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: ErrNoWindow, a watcher setup error or the first frame error
	Run(ctx context.Context) error

	// Quit stops the frame loop after the current frame.
	// Safe to call multiple times and from any goroutine.
	Quit()

	// Close releases every scene, every renderer and the window.
	//
	// Returns:
	//   - error: the window close error
	Close() error
}

// NewEngine creates a new Engine instance with the provided options.
// Input and resize callbacks are installed on the window when one is given.
//
// Parameters:
//   - options: functional options for engine configuration (window, scenes, timestep, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:   common.Logger().WithPrefix("engine"),
		now:      time.Now,
		scenes:   make(map[int]scene.Scene),
		profiler: profiler.NewProfiler(),
		maxSteps: defaultMaxSteps,
		reloads:  make(chan string, reloadQueueSize),
		held:     make(map[int]bool),
		quitCh:   make(chan struct{}),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.onResize)
		e.window.SetKeyDownCallback(e.onKeyDown)
		e.window.SetKeyUpCallback(e.onKeyUp)
		e.window.SetMouseDragCallback(e.onMouseDrag)
		e.window.SetScrollCallback(e.onScroll)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) AddScene(key int, s scene.Scene) {
	if _, ok := e.scenes[key]; !ok {
		i, _ := slices.BinarySearch(e.order, key)
		e.order = slices.Insert(e.order, i, key)
	}
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	if i, ok := slices.BinarySearch(e.order, key); ok {
		e.order = slices.Delete(e.order, i, i+1)
	}
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	out := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		out[k] = v
	}
	return out
}

func (e *engine) SetFrameCallback(fn func(stats renderer.Stats)) {
	e.onFrame = fn
}

// Reload never blocks, so it is safe from watcher goroutines. A full queue drops the request
// since a reload of the same path is already pending or the loop is stalled anyway.
func (e *engine) Reload(path string) {
	select {
	case e.reloads <- path:
	default:
		e.logger.Warn("reload queue full, dropping", "path", path)
	}
}

func (e *engine) Run(ctx context.Context) error {
	if e.window == nil {
		return ErrNoWindow
	}
	if err := e.startWatcher(); err != nil {
		return err
	}
	defer e.stopWatcher()

	e.logger.Info("engine running", "scenes", len(e.scenes), "fixed_step", e.fixedStep, "profiling", e.profilingEnabled)

	last := e.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitCh:
			return nil
		default:
		}

		now := e.now()
		dt := now.Sub(last)
		last = now

		if !e.window.ProcessMessages() {
			return nil
		}
		if err := e.frame(dt); err != nil {
			e.logger.Error("frame failed, stopping", "err", err)
			return err
		}
	}
}

// Quit is safe to call multiple times; subsequent calls are no-ops.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitCh)
	})
}

func (e *engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		var released []renderer.Renderer
		for _, s := range e.scenes {
			s.Release()
			if r := s.Renderer(); r != nil && !slices.Contains(released, r) {
				r.Release()
				released = append(released, r)
			}
		}
		if e.window != nil {
			err = e.window.Close()
		}
	})
	return err
}

// frame runs one iteration of the loop after window events were pumped.
func (e *engine) frame(dt time.Duration) error {
	e.applyReloads()

	active := e.activeScenes()
	if len(active) == 0 {
		return nil
	}

	e.handleHeldKeys(active[0].Camera(), float32(dt.Seconds()))
	if err := e.update(active, dt); err != nil {
		return err
	}

	frameRenderer := active[0].Renderer()
	if frameRenderer == nil {
		return nil
	}
	if err := frameRenderer.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	for _, s := range active {
		if err := s.DrawCalls(); err != nil {
			return err
		}
	}
	if err := frameRenderer.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}

	stats := frameRenderer.Stats()
	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick(stats)
	}
	if e.onFrame != nil {
		e.onFrame(stats)
	}
	return nil
}

// update advances the active scenes by dt, either in fixed steps drained from the
// accumulator or in a single clamped variable step.
func (e *engine) update(active []scene.Scene, dt time.Duration) error {
	if e.fixedStep <= 0 {
		seconds := min(float32(dt.Seconds()), maxFrameDelta)
		return e.step(active, seconds)
	}

	e.accumulator += dt
	steps := 0
	for e.accumulator >= e.fixedStep && steps < e.maxSteps {
		if err := e.step(active, float32(e.fixedStep.Seconds())); err != nil {
			return err
		}
		e.accumulator -= e.fixedStep
		steps++
	}
	// Drop the backlog the step budget could not absorb.
	if steps == e.maxSteps && e.accumulator >= e.fixedStep {
		e.accumulator = 0
	}
	return nil
}

func (e *engine) step(active []scene.Scene, dt float32) error {
	for _, s := range active {
		if err := s.Update(dt); err != nil {
			return err
		}
	}
	return nil
}

// activeScenes returns the active scenes in ascending z-index order. The slice is reused by
// the next call.
func (e *engine) activeScenes() []scene.Scene {
	e.active = e.active[:0]
	for _, k := range e.order {
		if s := e.scenes[k]; s.Active() {
			e.active = append(e.active, s)
		}
	}
	return e.active
}

// inputCamera returns the camera of the lowest active scene, which receives user input.
func (e *engine) inputCamera() camera.Camera {
	for _, k := range e.order {
		if s := e.scenes[k]; s.Active() {
			return s.Camera()
		}
	}
	return nil
}

func (e *engine) startWatcher() error {
	if len(e.watchPaths) == 0 || e.loader == nil {
		return nil
	}
	w, err := loader.NewWatcher()
	if err != nil {
		return err
	}
	for _, path := range e.watchPaths {
		if err := w.Watch(path, func(string) { e.Reload(path) }); err != nil {
			_ = w.Close()
			return err
		}
	}
	e.watcher = w
	return nil
}

func (e *engine) stopWatcher() {
	if e.watcher != nil {
		_ = e.watcher.Close()
		e.watcher = nil
	}
}

// applyReloads drains the reload queue. A failed reload keeps the scenes on their current
// asset; hot reload must never take the loop down.
func (e *engine) applyReloads() {
	for {
		select {
		case path := <-e.reloads:
			e.reload(path)
		default:
			return
		}
	}
}

func (e *engine) reload(path string) {
	if e.loader == nil {
		e.logger.Warn("reload requested without a loader", "path", path)
		return
	}
	asset, err := e.loader.Reload(path)
	if err != nil {
		e.logger.Error("reload failed, keeping previous asset", "path", path, "err", err)
		return
	}

	for key, s := range e.scenes {
		if current := s.Asset(); current == nil || current.Name != asset.Name {
			continue
		}
		if err := s.SetAsset(asset); err != nil {
			e.logger.Error("scene rejected reloaded asset", "scene", s.Name(), "key", key, "err", err)
			continue
		}
		e.logger.Info("scene reloaded", "scene", s.Name(), "path", path)
	}
}

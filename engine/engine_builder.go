package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/loader"
	"github.com/Carmen-Shannon/oxy-skin/engine/profiler"
	"github.com/Carmen-Shannon/oxy-skin/engine/scene"
	"github.com/Carmen-Shannon/oxy-skin/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//   - options: options for the profiler, e.g. its reporting interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool, options ...profiler.ProfilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
		if len(options) > 0 {
			e.profiler = profiler.NewProfiler(options...)
		}
	}
}

// WithFixedStep runs animation updates at a fixed rate, accumulating frame time and running
// at most maxSteps updates per frame. A rate <= 0 selects a variable timestep (the default).
//
// Parameters:
//   - hz: updates per second
//   - maxSteps: update budget per frame (values < 1 are treated as 1)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFixedStep(hz float64, maxSteps int) EngineBuilderOption {
	return func(e *engine) {
		if hz <= 0 {
			e.fixedStep = 0
			return
		}
		e.fixedStep = time.Duration(float64(time.Second) / hz)
		e.maxSteps = max(maxSteps, 1)
	}
}

// WithWindow sets the window the engine pumps events from and draws into.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithLoader sets the loader used to reload assets.
//
// Parameters:
//   - l: the loader the scene assets came from
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoader(l loader.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.loader = l
	}
}

// WithWatch reloads the given asset paths whenever they change on disk. It requires
// WithLoader.
//
// Parameters:
//   - paths: asset paths, as passed to the loader
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWatch(paths ...string) EngineBuilderOption {
	return func(e *engine) {
		e.watchPaths = append(e.watchPaths, paths...)
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are drawn in ascending key order.
//
// Parameters:
//   - key: the z-index determining draw order (lower draws first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.AddScene(key, s)
	}
}

package scene

import "github.com/Carmen-Shannon/oxy-skin/engine/animation"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithClip selects the animation played by every instance. An empty name plays the asset's
// first animation.
//
// Parameters:
//   - name: the animation name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithClip(name string) SceneBuilderOption {
	return func(s *scene) {
		s.clip = name
	}
}

// WithInstances sets the number of instances created when the scene is built.
//
// Parameters:
//   - count: the instance count
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithInstances(count int) SceneBuilderOption {
	return func(s *scene) {
		s.count = max(count, 0)
	}
}

// WithSpacing sets the distance between neighboring grid cells.
//
// Parameters:
//   - spacing: the cell size in world units
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSpacing(spacing float32) SceneBuilderOption {
	return func(s *scene) {
		if spacing > 0 {
			s.spacing = spacing
		}
	}
}

// WithSeed sets the seed of the per-instance phase and speed randomization.
//
// Parameters:
//   - seed: the random seed
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSeed(seed uint64) SceneBuilderOption {
	return func(s *scene) {
		s.seed = seed
	}
}

// WithSpeed sets the base playback speed and how far each instance may deviate from it, as a
// fraction of the base speed.
//
// Parameters:
//   - speed: the base playback speed
//   - jitter: relative deviation in [0, 1]
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSpeed(speed, jitter float32) SceneBuilderOption {
	return func(s *scene) {
		s.speed = speed
		s.speedJitter = min(max(jitter, 0), 1)
	}
}

// WithDrawPosture enables drawing every instance's skeleton.
//
// Parameters:
//   - enabled: whether postures are drawn
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDrawPosture(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.drawPosture = enabled
	}
}

// WithDrawStatic sets whether the asset's non-skinned parts are drawn with each instance.
//
// Parameters:
//   - enabled: whether static parts are drawn
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDrawStatic(enabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.drawStatic = enabled
	}
}

// WithCulling skips instances outside the camera frustum. Instance bounds only enclose the
// joints, so margin should cover how far the mesh reaches past them.
//
// Parameters:
//   - enabled: whether instances are culled
//   - margin: distance the joint bounds are grown by before testing
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCulling(enabled bool, margin float32) SceneBuilderOption {
	return func(s *scene) {
		s.cull = enabled
		s.cullMargin = max(margin, 0)
	}
}

// WithUpdaterOptions passes options through to the animation updater, e.g. its worker count.
//
// Parameters:
//   - options: the updater options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithUpdaterOptions(options ...animation.UpdaterBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.updaterOptions = append(s.updaterOptions, options...)
	}
}

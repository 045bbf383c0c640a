package animation

import (
	"math"
)

// PlaybackController advances a normalized playhead through an animation.
type PlaybackController struct {
	timeRatio     float32
	previousRatio float32
	speed         float32
	playing       bool
	loop          bool
}

// NewPlaybackController returns a controller that is playing, looping, at normal speed.
func NewPlaybackController() *PlaybackController {
	return &PlaybackController{
		speed:   1,
		playing: true,
		loop:    true,
	}
}

// TimeRatio returns the current normalized time in [0, 1].
func (c *PlaybackController) TimeRatio() float32 {
	return c.timeRatio
}

// PreviousTimeRatio returns the normalized time before the last update.
func (c *PlaybackController) PreviousTimeRatio() float32 {
	return c.previousRatio
}

// SetTimeRatio moves the playhead. Looping controllers wrap the ratio into [0, 1),
// others clamp it to [0, 1].
func (c *PlaybackController) SetTimeRatio(ratio float32) {
	c.previousRatio = c.timeRatio
	if c.loop {
		r := ratio - float32(math.Floor(float64(ratio)))
		// A ratio of exactly 1 plays the last frame instead of wrapping to the first.
		if r == 0 && ratio > 0 {
			r = 1
		}
		c.timeRatio = r
		return
	}
	c.timeRatio = min(max(ratio, 0), 1)
}

// Speed returns the playback speed multiplier.
func (c *PlaybackController) Speed() float32 {
	return c.speed
}

// SetSpeed sets the playback speed multiplier. Negative speeds play backward.
func (c *PlaybackController) SetSpeed(speed float32) {
	c.speed = speed
}

// Playing reports whether Update advances the playhead.
func (c *PlaybackController) Playing() bool {
	return c.playing
}

// Play resumes playback.
func (c *PlaybackController) Play() {
	c.playing = true
}

// Pause stops playback without moving the playhead.
func (c *PlaybackController) Pause() {
	c.playing = false
}

// Loop reports whether the playhead wraps at the ends.
func (c *PlaybackController) Loop() bool {
	return c.loop
}

// SetLoop enables or disables wrapping.
func (c *PlaybackController) SetLoop(loop bool) {
	c.loop = loop
}

// Reset moves the playhead to the start and restores defaults.
func (c *PlaybackController) Reset() {
	*c = *NewPlaybackController()
}

// Update advances the playhead by dt seconds scaled by the playback speed.
//
// Parameters:
//   - anim: the animation being played, for its duration
//   - dt: elapsed time in seconds
func (c *PlaybackController) Update(anim *Animation, dt float32) {
	if !c.playing || anim == nil {
		c.previousRatio = c.timeRatio
		return
	}
	c.SetTimeRatio(c.timeRatio + dt*c.speed/anim.Duration())
}
